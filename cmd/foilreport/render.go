package main

import (
	"context"
	"fmt"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/config"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
	"github.com/spf13/cobra"
)

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the report from the forecasts in the working directory",
		Long: `Render reads every forecast_<id>.csv file of the working directory and
writes report_<start>.html, named after the run start.

It does not verify the report nor move the pointer. It always uses the
built-in HTML renderer, so it can serve as the external program of a command
renderer. The working directory defaults to $FOILREPORT_WORKDIR when set.

Examples:
  # Render ./public
  foilreport render

  # Render with the labels of a CI run
  WORKFLOW_START_TIME="2024-05-01 04:00:00 UTC" foilreport render`,
		Args: cobra.NoArgs,
		RunE: runRenderCmd,
	}

	addConfigFlags(cmd)

	return cmd
}

// runRenderCmd executes the render command.
func runRenderCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Renderer.Kind = config.RendererHTML

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

	r, err := newRenderer(cfg, logger)
	if err != nil {
		return err
	}

	renderCtx, cancelRender := context.WithTimeout(ctx, cfg.Timeout)
	defer cancelRender()

	name, err := r.Render(renderCtx, rc, dir)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", name)
	return nil
}
