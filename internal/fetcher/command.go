package fetcher

import (
	"context"
	"log/slog"

	"github.com/LeCoonEtSaBande/foil-report/internal/command"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

// CommandFetcher runs an external program that writes RawDataFiles into the
// working directory. The program receives WORKFLOW_START_TIME,
// WORKFLOW_TIMEZONE and FOILREPORT_WORKDIR, and runs inside the directory.
type CommandFetcher struct {
	args   []string
	logger *slog.Logger
}

// NewCommandFetcher creates a fetcher running args.
func NewCommandFetcher(args []string, logger *slog.Logger) *CommandFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandFetcher{args: args, logger: logger}
}

// Fetch runs the program. A non-zero exit fails the fetch; otherwise the
// RawDataFiles found in the directory are the result.
func (f *CommandFetcher) Fetch(ctx context.Context, rc model.RunContext, dir *workdir.Dir) (*Result, error) {
	spec := command.Spec{Args: f.args, Dir: dir.Path(), Env: rc.Env()}
	if err := command.Run(ctx, f.logger, spec); err != nil {
		return nil, err
	}
	written, err := dir.RawDataFiles()
	if err != nil {
		return nil, err
	}
	return &Result{Written: written}, nil
}
