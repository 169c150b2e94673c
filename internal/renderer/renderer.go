package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LeCoonEtSaBande/foil-report/internal/command"
	"github.com/LeCoonEtSaBande/foil-report/internal/forecast"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

var (
	// ErrNoRawData is returned when the working directory holds no RawDataFile.
	ErrNoRawData = errors.New("no raw data files to render")

	// ErrNoUsableData is returned when every RawDataFile failed to parse.
	ErrNoUsableData = errors.New("no raw data file could be read")

	// ErrReportExists is returned when the report of this run is already on disk.
	ErrReportExists = errors.New("report already exists")
)

// Renderer writes exactly one ReportFile, named from the run start, and
// returns its name.
type Renderer interface {
	Render(ctx context.Context, rc model.RunContext, dir *workdir.Dir) (string, error)
}

// CriteriaSource provides the rating criteria of a site for a month.
type CriteriaSource interface {
	Criteria(siteID string, month int) (forecast.Criteria, bool)
}

// Site is a spot in report order.
type Site struct {
	ID   string
	Name string
}

// preflight checks the common preconditions of every renderer.
func preflight(rc model.RunContext, dir *workdir.Dir) (string, []string, error) {
	raw, err := dir.RawDataFiles()
	if err != nil {
		return "", nil, err
	}
	if len(raw) == 0 {
		return "", nil, ErrNoRawData
	}
	name := workdir.ReportName(rc.Start)
	if dir.Exists(name) {
		return "", nil, fmt.Errorf("%w: %s", ErrReportExists, name)
	}
	return name, raw, nil
}

// CommandRenderer runs an external program that writes the report. The
// program receives the run context through WORKFLOW_START_TIME and
// WORKFLOW_TIMEZONE and must name the report from them.
type CommandRenderer struct {
	args   []string
	logger *slog.Logger
}

// NewCommandRenderer creates a renderer running args.
func NewCommandRenderer(args []string, logger *slog.Logger) *CommandRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandRenderer{args: args, logger: logger}
}

// Render runs the program and returns the expected report name.
// Whether the file really exists is left to verification.
func (r *CommandRenderer) Render(ctx context.Context, rc model.RunContext, dir *workdir.Dir) (string, error) {
	name, _, err := preflight(rc, dir)
	if err != nil {
		return "", err
	}
	spec := command.Spec{Args: r.args, Dir: dir.Path(), Env: rc.Env()}
	if err := command.Run(ctx, r.logger, spec); err != nil {
		return "", err
	}
	return name, nil
}
