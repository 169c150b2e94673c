package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/command"
	"github.com/LeCoonEtSaBande/foil-report/internal/config"
	"github.com/LeCoonEtSaBande/foil-report/internal/log"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/spf13/cobra"
)

// addConfigFlags registers the flags shared by every pipeline command.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .foilreport in current or home directory)")
	cmd.Flags().StringP("workdir", "w", config.DefaultWorkDir,
		"Working directory holding raw data, reports and the pointer")
	cmd.Flags().StringP("timezone", "z", model.DefaultTimezone,
		"IANA timezone of the report labels (overrides WORKFLOW_TIMEZONE)")
	cmd.Flags().String("start-time", "",
		`Run start time, "2006-01-02 15:04:05 UTC" or RFC 3339 (overrides WORKFLOW_START_TIME)`)
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Maximum duration of a run")
	cmd.Flags().Bool("json", false,
		"Write logs as JSON lines")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// changed reports whether a flag exists on cmd and was set by the user.
func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// buildConfig creates a Config from defaults, the .env file, the
// configuration file, the CI environment and finally the command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// A missing file is only an error when the user asked for one.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(cf)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.ApplyEnv()
	if dir := os.Getenv(command.EnvWorkDir); dir != "" {
		cfg.WorkDir = dir
	}

	if changed(cmd, "workdir") {
		if cfg.WorkDir, err = cmd.Flags().GetString("workdir"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "timezone") {
		if cfg.Timezone, err = cmd.Flags().GetString("timezone"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "start-time") {
		if cfg.StartTime, err = cmd.Flags().GetString("start-time"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "timeout") {
		if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Lookup("json") != nil {
		if cfg.JSONLog, err = cmd.Flags().GetBool("json"); err != nil {
			return nil, err
		}
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the secure structured logger and makes it the default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := log.New(os.Stderr, cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)
	return logger
}

// newRunContext resolves the start time and timezone of a run.
func newRunContext(cfg *config.Config, now func() time.Time) (model.RunContext, error) {
	start := now()
	if cfg.StartTime != "" {
		t, err := model.ParseStartTime(cfg.StartTime)
		if err != nil {
			return model.RunContext{}, err
		}
		start = t
	}
	return model.NewRunContext(start, cfg.Timezone)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
