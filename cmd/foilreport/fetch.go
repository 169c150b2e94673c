package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/config"
	"github.com/LeCoonEtSaBande/foil-report/internal/fetcher"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
	"github.com/spf13/cobra"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch forecasts into the working directory",
		Long: `Fetch loads the forecast page of every configured spot in headless Chrome
and writes one forecast_<id>.csv file per spot into the working directory.

It neither cleans the directory nor touches the pointer. It always uses the
built-in Windguru fetcher, so it can serve as the external program of a
command fetcher. The working directory defaults to $FOILREPORT_WORKDIR when
set.

Examples:
  # Fetch into ./public
  foilreport fetch

  # Fetch for a given run start
  foilreport fetch --start-time "2024-05-01 04:00:00 UTC"`,
		Args: cobra.NoArgs,
		RunE: runFetchCmd,
	}

	addConfigFlags(cmd)

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Fetcher.Kind = config.FetcherWindguru

	logger := setupLogger(cfg)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	rc, err := newRunContext(cfg, time.Now)
	if err != nil {
		return err
	}
	dir, err := workdir.New(cfg.WorkDir)
	if err != nil {
		return err
	}
	if err := dir.Ensure(); err != nil {
		return err
	}

	f, cleanup, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fetchCtx, cancelFetch := context.WithTimeout(ctx, cfg.Timeout)
	defer cancelFetch()

	result, err := f.Fetch(fetchCtx, rc, dir)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	printFetchResult(cmd.OutOrStdout(), result)
	if len(result.Written) == 0 {
		return fetcher.ErrNoData
	}
	return nil
}

// printFetchResult lists written files and failed sites.
func printFetchResult(w io.Writer, result *fetcher.Result) {
	for _, name := range result.Written {
		fmt.Fprintf(w, "wrote %s\n", name)
	}
	for _, failure := range result.Failed {
		fmt.Fprintf(w, "no data for site %s: %v\n", failure.SiteID, failure.Err)
	}
}
