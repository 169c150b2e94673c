package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/config"
	"github.com/LeCoonEtSaBande/foil-report/internal/database"
	"github.com/LeCoonEtSaBande/foil-report/internal/metrics"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/LeCoonEtSaBande/foil-report/internal/pipeline"
	"github.com/LeCoonEtSaBande/foil-report/internal/report"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
	"github.com/spf13/cobra"
)

// envStepSummary is the file GitHub Actions renders on the run page.
const envStepSummary = "GITHUB_STEP_SUMMARY"

// Output formats of the run summary printed on stdout.
const (
	formatText = "text"
	formatJSON = "json"
	formatNone = "none"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, render and publish a new report",
		Long: `Run executes the whole pipeline once: prepare the working directory,
fetch the forecasts, render the report, verify it, swap the pointer and
deploy.

The pointer only moves once the new report is verified. Any failure before
that leaves the previous report online and exits with status 1. A deploy
failure after the swap is reported but does not fail the run.

The run start time and timezone come from WORKFLOW_START_TIME and
WORKFLOW_TIMEZONE when set, so every label of a CI run agrees.

Examples:
  # Run with .foilreport from the current directory
  foilreport run

  # Run into another directory without deploying
  foilreport run -w /tmp/foil --no-deploy

  # Write Prometheus metrics for the node-exporter textfile collector
  foilreport run --metrics-file /var/lib/node_exporter/textfile/foilreport.prom`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	addConfigFlags(cmd)
	addRunFlags(cmd)

	return cmd
}

// addRunFlags registers the flags of commands that execute the pipeline.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-deploy", false,
		"Swap the pointer locally but skip the deploy step")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this file after each run")
	cmd.Flags().String("summary", "",
		"Append a Markdown run summary to this file (default: $"+envStepSummary+")")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().StringP("format", "f", formatText,
		"Run summary printed on stdout: text, json or none")
}

// buildRunConfig extends buildConfig with the run flags.
func buildRunConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, "", err
	}

	if cfg.NoDeploy, err = cmd.Flags().GetBool("no-deploy"); err != nil {
		return nil, "", err
	}
	if changed(cmd, "metrics-file") {
		if cfg.MetricsFile, err = cmd.Flags().GetString("metrics-file"); err != nil {
			return nil, "", err
		}
	}
	if cfg.SummaryFile, err = cmd.Flags().GetString("summary"); err != nil {
		return nil, "", err
	}
	if cfg.SummaryFile == "" {
		cfg.SummaryFile = os.Getenv(envStepSummary)
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, "", err
	}
	if noHistory {
		cfg.SaveHistory = false
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, "", err
	}
	switch format {
	case formatText, formatJSON, formatNone:
	default:
		return nil, "", fmt.Errorf("unknown format %q (use text, json or none)", format)
	}
	return cfg, format, nil
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, format, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	run, runErr := executeRun(ctx, cfg, metrics.NewRecorder(), logger)
	if run != nil {
		if err := writeRunSummary(cmd.OutOrStdout(), format, cfg.Verbose, run); err != nil {
			logger.Error("failed to write run summary", "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// executeRun runs the pipeline once and records the outcome. The returned run
// is nil only when the pipeline could not be built.
func executeRun(ctx context.Context, cfg *config.Config, recorder *metrics.Recorder, logger *slog.Logger) (*model.Run, error) {
	rc, err := newRunContext(cfg, time.Now)
	if err != nil {
		return nil, err
	}

	comps, cleanup, err := newComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(pipeline.Steps(comps, pipeline.WithStepLogger(logger))...)

	logger.Info("starting run",
		"start", rc.Start,
		"timezone", rc.Timezone(),
		"workdir", comps.Dir.Path(),
		"steps", p.StepNames(),
	)

	run := model.NewRun(rc, comps.Dir.Path())

	runCtx, cancelRun := context.WithTimeout(ctx, cfg.Timeout)
	runErr := p.Execute(runCtx, run)
	cancelRun()

	// The record outlives a shutdown signal.
	recordRun(context.WithoutCancel(ctx), cfg, comps.Dir, run, recorder, logger)

	return run, runErr
}

// recordRun writes the run to the history database, the metrics textfile and
// the Markdown summary. Failures are logged: a run is never failed by its
// bookkeeping.
func recordRun(ctx context.Context, cfg *config.Config, dir *workdir.Dir, run *model.Run, recorder *metrics.Recorder, logger *slog.Logger) {
	var db *database.HistoryDB
	if cfg.SaveHistory {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("failed to open history database", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			saveRun(ctx, db, dir, run, logger)
		}
	}

	recorder.Observe(run)
	if !run.Succeeded() && db != nil {
		last, err := db.LatestSuccessful(ctx)
		switch {
		case err != nil:
			logger.Warn("failed to read last successful run", "error", err)
		case last != nil:
			recorder.SetLastSuccess(last.StartedAt)
		}
	}
	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", "file", cfg.MetricsFile, "error", err)
		}
	}

	if cfg.SummaryFile != "" {
		if err := appendStepSummary(cfg.SummaryFile, run); err != nil {
			logger.Warn("failed to write step summary", "file", cfg.SummaryFile, "error", err)
		}
	}
}

// saveRun stores the run with the digest of its report.
func saveRun(ctx context.Context, db *database.HistoryDB, dir *workdir.Dir, run *model.Run, logger *slog.Logger) {
	digest, err := reportDigest(dir, run)
	if err != nil {
		logger.Warn("failed to digest report", "report", run.ReportName, "error", err)
	}

	id, err := db.SaveRun(ctx, run, digest)
	if err != nil {
		logger.Warn("failed to save run", "error", err)
		return
	}
	logger.Info("run saved to history", "id", id, "outcome", run.Outcome())
}

// reportDigest hashes the verified report, if the run got that far.
func reportDigest(dir *workdir.Dir, run *model.Run) (string, error) {
	if run.ReportName == "" || !dir.Exists(run.ReportName) {
		return "", nil
	}
	f, err := dir.Open(run.ReportName)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return database.ReportDigest(f)
}

// appendStepSummary appends the Markdown summary to path. GitHub Actions
// expects appends so several steps can share the file.
func appendStepSummary(path string, run *model.Run) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) //nolint:gosec // summary is meant to be read by the CI runner
	if err != nil {
		return fmt.Errorf("failed to open summary file: %w", err)
	}
	defer f.Close()

	if _, err := report.NewMarkdownWriter(f).Write(run); err != nil {
		return err
	}
	return f.Close()
}

// writeRunSummary prints the run in the requested format.
func writeRunSummary(w io.Writer, format string, verbose bool, run *model.Run) error {
	var writer report.Writer
	switch format {
	case formatNone:
		return nil
	case formatJSON:
		writer = report.NewJSONWriter(w, report.WithPrettyPrint())
	default:
		writer = report.NewSimpleWriter(w, report.WithVerbose(verbose))
	}
	_, err := writer.Write(run)
	return err
}
