package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/LeCoonEtSaBande/foil-report/internal/fetcher"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/LeCoonEtSaBande/foil-report/internal/publish"
	"github.com/LeCoonEtSaBande/foil-report/internal/renderer"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

var (
	// ErrNoCandidate is returned when verification finds no new report.
	ErrNoCandidate = errors.New("no candidate report")

	// ErrAmbiguousCandidates is returned when verification finds several new reports.
	ErrAmbiguousCandidates = errors.New("more than one candidate report")

	// ErrUnexpectedReport is returned when the only candidate is not named
	// after the run start.
	ErrUnexpectedReport = errors.New("candidate report does not match the run")

	// ErrEmptyReport is returned when the candidate report has no content.
	ErrEmptyReport = errors.New("report is empty")

	// ErrNotHTML is returned when the candidate report lacks an HTML document marker.
	ErrNotHTML = errors.New("report is not an HTML document")

	// ErrLiveReportCollision is returned when the run would overwrite the
	// report the pointer currently serves.
	ErrLiveReportCollision = errors.New("report name collides with the live report")
)

// StepOption configures the steps created by this package.
type StepOption func(*stepBase)

// WithStepLogger sets a custom logger for a step.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(s *stepBase) {
		s.logger = logger
	}
}

// stepBase holds what every step needs.
type stepBase struct {
	dir    *workdir.Dir
	logger *slog.Logger
}

func newStepBase(dir *workdir.Dir, opts []StepOption) stepBase {
	s := stepBase{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// PrepareStep purges stale artifacts from the working directory: every
// RawDataFile, leftovers of interrupted writes, and every ReportFile except
// the one the pointer references. It never touches anything else.
type PrepareStep struct {
	stepBase
}

// NewPrepareStep creates a prepare step.
func NewPrepareStep(dir *workdir.Dir, opts ...StepOption) *PrepareStep {
	return &PrepareStep{stepBase: newStepBase(dir, opts)}
}

// Name returns the step name.
func (s *PrepareStep) Name() string { return "prepare" }

// Stage returns the stage of the step.
func (s *PrepareStep) Stage() model.Stage { return model.StagePreparing }

// Kind returns the error kind of the step.
func (s *PrepareStep) Kind() error { return model.ErrSetup }

// Do executes the prepare step.
func (s *PrepareStep) Do(_ context.Context, run *model.Run) error {
	if err := s.dir.Ensure(); err != nil {
		return err
	}

	live, err := s.dir.CurrentReport()
	switch {
	case err == nil && s.dir.Exists(live):
		run.PreviousReport = live
	case err == nil:
		s.logger.Warn("pointer references a missing report", "report", live)
	case errors.Is(err, workdir.ErrNoPointer):
		s.logger.Debug("no pointer yet")
	case errors.Is(err, workdir.ErrInvalidPointer):
		s.logger.Warn("ignoring unreadable pointer", "error", err)
	default:
		return err
	}

	raw, err := s.dir.RawDataFiles()
	if err != nil {
		return err
	}
	temp, err := s.dir.TempFiles()
	if err != nil {
		return err
	}
	reports, err := s.dir.Reports()
	if err != nil {
		return err
	}
	stale := slices.DeleteFunc(reports, func(name string) bool { return name == run.PreviousReport })

	removed, err := s.dir.Remove(slices.Concat(raw, temp, stale)...)
	run.AddPurged(removed...)
	if err != nil {
		return err
	}

	s.logger.Info("working directory prepared",
		"dir", s.dir.Path(),
		"live_report", run.PreviousReport,
		"purged", len(removed),
	)
	return nil
}

// FetchStep invokes the fetcher. It fails when no RawDataFile was written.
type FetchStep struct {
	stepBase
	fetcher fetcher.Fetcher
}

// NewFetchStep creates a fetch step.
func NewFetchStep(dir *workdir.Dir, f fetcher.Fetcher, opts ...StepOption) *FetchStep {
	return &FetchStep{stepBase: newStepBase(dir, opts), fetcher: f}
}

// Name returns the step name.
func (s *FetchStep) Name() string { return "fetch" }

// Stage returns the stage of the step.
func (s *FetchStep) Stage() model.Stage { return model.StageFetching }

// Kind returns the error kind of the step.
func (s *FetchStep) Kind() error { return model.ErrFetch }

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, run *model.Run) error {
	result, err := s.fetcher.Fetch(ctx, run.Context, s.dir)
	if err != nil {
		return err
	}
	if result != nil {
		run.FailedSites = result.FailedIDs()
	}

	// The directory is the source of truth: external fetchers report nothing.
	raw, err := s.dir.RawDataFiles()
	if err != nil {
		return err
	}
	run.RawFiles = raw
	if len(raw) == 0 {
		return fetcher.ErrNoData
	}

	s.logger.Info("forecasts fetched",
		"files", len(raw),
		"failed_sites", run.FailedSites,
	)
	return nil
}

// RenderStep invokes the renderer.
type RenderStep struct {
	stepBase
	renderer renderer.Renderer
}

// NewRenderStep creates a render step.
func NewRenderStep(dir *workdir.Dir, r renderer.Renderer, opts ...StepOption) *RenderStep {
	return &RenderStep{stepBase: newStepBase(dir, opts), renderer: r}
}

// Name returns the step name.
func (s *RenderStep) Name() string { return "render" }

// Stage returns the stage of the step.
func (s *RenderStep) Stage() model.Stage { return model.StageRendering }

// Kind returns the error kind of the step.
func (s *RenderStep) Kind() error { return model.ErrRender }

// Do executes the render step.
func (s *RenderStep) Do(ctx context.Context, run *model.Run) error {
	raw, err := s.dir.RawDataFiles()
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return renderer.ErrNoRawData
	}

	expected := workdir.ReportName(run.Context.Start)
	if expected == run.PreviousReport {
		return fmt.Errorf("%w: %s", ErrLiveReportCollision, expected)
	}

	name, err := s.renderer.Render(ctx, run.Context, s.dir)
	if err != nil {
		return err
	}
	s.logger.Info("report rendered", "report", name)
	return nil
}

// VerifyStep checks the freshly rendered report before it may go live.
//
// Exactly one report other than the live one must exist, named after the run
// start. It must be non-empty and start with an HTML document marker.
// Ambiguity is a verify error; an empty or malformed report is a render error.
type VerifyStep struct {
	stepBase
}

// NewVerifyStep creates a verify step.
func NewVerifyStep(dir *workdir.Dir, opts ...StepOption) *VerifyStep {
	return &VerifyStep{stepBase: newStepBase(dir, opts)}
}

// Name returns the step name.
func (s *VerifyStep) Name() string { return "verify" }

// Stage returns the stage of the step.
func (s *VerifyStep) Stage() model.Stage { return model.StageVerifying }

// Kind returns the error kind of the step.
func (s *VerifyStep) Kind() error { return model.ErrVerify }

// Do executes the verify step.
func (s *VerifyStep) Do(_ context.Context, run *model.Run) error {
	reports, err := s.dir.Reports()
	if err != nil {
		return err
	}
	candidates := slices.DeleteFunc(reports, func(name string) bool { return name == run.PreviousReport })

	switch len(candidates) {
	case 0:
		return ErrNoCandidate
	case 1:
	default:
		return fmt.Errorf("%w: %v", ErrAmbiguousCandidates, candidates)
	}

	candidate := candidates[0]
	if expected := workdir.ReportName(run.Context.Start); candidate != expected {
		return fmt.Errorf("%w: found %s, expected %s", ErrUnexpectedReport, candidate, expected)
	}

	size, err := s.dir.Size(candidate)
	if err != nil {
		return err
	}
	if size == 0 {
		return model.NewStageError(model.StageVerifying, model.ErrRender, fmt.Errorf("%w: %s", ErrEmptyReport, candidate))
	}

	f, err := s.dir.Open(candidate)
	if err != nil {
		return err
	}
	defer f.Close()

	ok, err := workdir.HasDocumentMarker(f)
	if err != nil || !ok {
		cause := fmt.Errorf("%w: %s", ErrNotHTML, candidate)
		if err != nil {
			cause = fmt.Errorf("%w: %w", cause, err)
		}
		return model.NewStageError(model.StageVerifying, model.ErrRender, cause)
	}

	run.ReportName = candidate
	run.ReportSize = size
	s.logger.Info("report verified", "report", candidate, "bytes", size)
	return nil
}

// SwapStep atomically repoints the publish pointer at the verified report,
// then deletes every other report. Only the pointer write can fail the step.
type SwapStep struct {
	stepBase
}

// NewSwapStep creates a swap step.
func NewSwapStep(dir *workdir.Dir, opts ...StepOption) *SwapStep {
	return &SwapStep{stepBase: newStepBase(dir, opts)}
}

// Name returns the step name.
func (s *SwapStep) Name() string { return "swap" }

// Stage returns the stage of the step.
func (s *SwapStep) Stage() model.Stage { return model.StageSwapping }

// Kind returns the error kind of the step.
func (s *SwapStep) Kind() error { return model.ErrSetup }

// Do executes the swap step.
func (s *SwapStep) Do(_ context.Context, run *model.Run) error {
	if run.ReportName == "" {
		return ErrNoCandidate
	}
	if err := s.dir.WritePointer(run.ReportName); err != nil {
		return err
	}

	reports, err := s.dir.Reports()
	if err != nil {
		s.logger.Warn("failed to list old reports", "error", err)
		return nil
	}
	old := slices.DeleteFunc(reports, func(name string) bool { return name == run.ReportName })
	removed, err := s.dir.Remove(old...)
	run.AddPurged(removed...)
	if err != nil {
		s.logger.Warn("failed to remove old reports", "error", err)
	}
	return nil
}

// DeployStep hands the working directory to the hosting collaborator.
// It runs after the swap, so its failure never fails the run.
type DeployStep struct {
	stepBase
	publisher publish.Publisher
}

// NewDeployStep creates a deploy step.
func NewDeployStep(dir *workdir.Dir, p publish.Publisher, opts ...StepOption) *DeployStep {
	return &DeployStep{stepBase: newStepBase(dir, opts), publisher: p}
}

// Name returns the step name.
func (s *DeployStep) Name() string { return "deploy" }

// Stage returns the stage of the step.
func (s *DeployStep) Stage() model.Stage { return model.StageDeployed }

// Kind returns the error kind of the step.
func (s *DeployStep) Kind() error { return model.ErrPublish }

// Do executes the deploy step.
func (s *DeployStep) Do(ctx context.Context, run *model.Run) error {
	if err := s.publisher.Publish(ctx, s.dir); err != nil {
		return fmt.Errorf("%s publisher: %w", s.publisher.Name(), err)
	}
	run.Deployed = true
	s.logger.Info("deployed", "publisher", s.publisher.Name())
	return nil
}

// Components are the collaborators of a publish pipeline.
type Components struct {
	Dir       *workdir.Dir
	Fetcher   fetcher.Fetcher
	Renderer  renderer.Renderer
	Publisher publish.Publisher
}

// Steps returns prepare, fetch, render, verify, swap and deploy, in order.
// The deploy step is left out when c.Publisher is nil.
func Steps(c Components, opts ...StepOption) []Step {
	steps := []Step{
		NewPrepareStep(c.Dir, opts...),
		NewFetchStep(c.Dir, c.Fetcher, opts...),
		NewRenderStep(c.Dir, c.Renderer, opts...),
		NewVerifyStep(c.Dir, opts...),
		NewSwapStep(c.Dir, opts...),
	}
	if c.Publisher != nil {
		steps = append(steps, NewDeployStep(c.Dir, c.Publisher, opts...))
	}
	return steps
}
