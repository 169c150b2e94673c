package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LeCoonEtSaBande/foil-report/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/foilreport.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new foilreport configuration file",
		Long: `Initialize creates a new .foilreport configuration file in the current directory.

The generated file includes:
- The default working directory, timezone and schedule
- Two example spots with wind criteria
- Commented fetcher, renderer and publisher settings

Examples:
  # Create .foilreport in current directory
  foilreport init

  # Create config file at a specific path
  foilreport init -o ~/.config/foilreport/config.yaml

  # Force overwrite existing file
  foilreport init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/foilreport.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The spots and their wind criteria")
	fmt.Fprintln(out, "  - How forecasts are fetched and the report rendered")
	fmt.Fprintln(out, "  - Where the report is published")

	return nil
}
