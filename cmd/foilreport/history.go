package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/LeCoonEtSaBande/foil-report/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Long: `History lists the runs recorded in the history database, newest first,
as a Markdown table.

Examples:
  # The last 20 runs
  foilreport history

  # Details of one run
  foilreport history --id 42`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .foilreport in current or home directory)")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().IntP("limit", "n", database.DefaultListLimit,
		"Maximum number of runs to list")
	cmd.Flags().Int64("id", 0,
		"Show the details of one run")

	return cmd
}

// errRunNotFound is returned when --id matches no run.
var errRunNotFound = errors.New("run not found")

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if changed(cmd, "db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return err
		}
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}

	setupLogger(cfg)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if id != 0 {
		rec, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: %d", errRunNotFound, id)
		}
		return writeRunRecord(out, rec)
	}

	records, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	counts, err := db.CountByOutcome(ctx)
	if err != nil {
		return err
	}
	return writeHistory(out, records, counts)
}

// writeHistory writes the run list and the outcome totals.
func writeHistory(w io.Writer, records []database.RunRecord, counts map[string]int) error {
	md := markdown.NewMarkdown(w)
	md.H1("Foil Report history")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No run recorded yet.")
		return md.Build()
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Format(time.DateTime),
			r.Outcome,
			r.Stage,
			orDash(r.ReportName),
			strconv.Itoa(r.RawFiles),
			orDash(r.ErrorKind),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Outcome", "Stage", "Report", "Raw files", "Error"},
		Rows:   rows,
	})
	md.PlainText("")

	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	totals := make([]string, len(outcomes))
	for i, o := range outcomes {
		totals[i] = fmt.Sprintf("%s: %d", o, counts[o])
	}
	md.PlainTextf("Totals: %s", strings.Join(totals, ", "))

	return md.Build()
}

// writeRunRecord writes every field of one run.
func writeRunRecord(w io.Writer, r *database.RunRecord) error {
	md := markdown.NewMarkdown(w)
	md.H1(fmt.Sprintf("Run %d", r.ID))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", r.StartedAt.Format(time.DateTime) + " " + r.Timezone},
			{"Finished", formatOptionalTime(r.FinishedAt)},
			{"Outcome", r.Outcome},
			{"Stage", r.Stage},
			{"Failed stage", orDash(r.FailedStage)},
			{"Error kind", orDash(r.ErrorKind)},
			{"Report", orDash(r.ReportName)},
			{"Report size", strconv.FormatInt(r.ReportSize, 10)},
			{"Report SHA3-256", orDash(r.ReportDigest)},
			{"Previous report", orDash(r.PreviousReport)},
			{"Raw files", strconv.Itoa(r.RawFiles)},
			{"Failed sites", orDash(strings.Join(r.FailedSites, ", "))},
		},
	})
	md.PlainText("")

	if r.Error != "" {
		md.Cautionf("%s", r.Error)
		md.PlainText("")
	}
	if r.PublishError != "" {
		md.Warningf("Deploy failed: %s", r.PublishError)
		md.PlainText("")
	}
	return md.Build()
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateTime)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
