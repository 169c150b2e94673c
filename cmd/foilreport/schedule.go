package main

import (
	"context"
	"fmt"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/metrics"
	"github.com/LeCoonEtSaBande/foil-report/internal/scheduler"
	"github.com/spf13/cobra"
)

// NewScheduleCmd creates the schedule command.
func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule",
		Long: `Schedule keeps running and executes the pipeline on a cron expression,
evaluated in the run timezone. A run still in progress when the next one is
due makes the scheduler skip that activation.

The schedule comes from --cron, then the "schedule" key of the
configuration file, then the default "0 6,12,18 * * *".

Examples:
  # Three runs a day, the first one right away
  foilreport schedule --run-on-start

  # Every hour, exporting metrics after each run
  foilreport schedule --cron @hourly --metrics-file /var/lib/node_exporter/textfile/foilreport.prom`,
		Args: cobra.NoArgs,
		RunE: runScheduleCmd,
	}

	addConfigFlags(cmd)
	addRunFlags(cmd)
	cmd.Flags().String("cron", "",
		"Cron expression (5 fields or a descriptor such as @hourly)")
	cmd.Flags().Bool("run-on-start", false,
		"Run once immediately instead of waiting for the first activation")

	return cmd
}

// runScheduleCmd executes the schedule command.
func runScheduleCmd(cmd *cobra.Command, _ []string) error {
	cfg, format, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}
	if changed(cmd, "cron") {
		if cfg.Schedule, err = cmd.Flags().GetString("cron"); err != nil {
			return err
		}
	}
	runOnStart, err := cmd.Flags().GetBool("run-on-start")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)

	// The schedule is evaluated in the run timezone.
	rc, err := newRunContext(cfg, time.Now)
	if err != nil {
		return err
	}

	// One recorder for the life of the process, so counters accumulate.
	recorder := metrics.NewRecorder()
	out := cmd.OutOrStdout()

	job := func(ctx context.Context) error {
		// Every activation is a new run starting now.
		runCfg := *cfg
		runCfg.StartTime = ""

		run, err := executeRun(ctx, &runCfg, recorder, logger)
		if run != nil {
			if werr := writeRunSummary(out, format, cfg.Verbose, run); werr != nil {
				logger.Error("failed to write run summary", "error", werr)
			}
		}
		return err
	}

	s, err := scheduler.New(cfg.Schedule, rc.Location, job,
		scheduler.WithLogger(logger),
		scheduler.WithTimeout(cfg.Timeout),
		scheduler.WithRunOnStart(runOnStart),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	fmt.Fprintf(out, "Scheduler running: %q in %s, next run at %s\n",
		cfg.Schedule, rc.Timezone(), s.Next(time.Now()).Format(time.DateTime))
	return s.Run(ctx)
}
