package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for foilreport.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foilreport",
		Short: "Wind forecast report for hydrofoil spots",
		Long: `foilreport fetches wind forecasts for a list of spots, rates every hour
for foiling and publishes the result as a single HTML page.

A run goes through prepare, fetch, render, verify and swap. The pointer file
(index.html) only changes once the new report is verified, so a failed run
leaves the previous report online.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewScheduleCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
