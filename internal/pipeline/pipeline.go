package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the run record that the
// previous steps filled in.
type Step interface {
	// Do executes the pipeline step.
	// A returned error fails the run unless the run is already DEPLOYED.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string

	// Stage is the state the run is in while the step executes.
	Stage() model.Stage

	// Kind is the error kind a failure of this step is reported as, unless
	// the step returns a *model.StageError itself.
	Kind() error
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, a default logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and drives the run through
// the state machine.
//
// Before the swap completes, the first failure moves the run to FAILED and
// is returned as a *model.StageError; later steps do not run. Once the swap
// step succeeds the run is DEPLOYED, and failures of the remaining steps are
// recorded on the run as publish errors while Execute returns nil.
//
// Cancellation is checked before each step. A run canceled or timed out
// before the swap is a failed run.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"stage", run.Stage,
				"reason", err,
			)
			if run.Stage == model.StageDeployed {
				run.RecordPublishError(stageError(run.Stage, step.Kind(), err))
				return nil
			}
			return p.fail(run, step, err)
		}

		if !run.Stage.IsFinal() {
			if err := run.Advance(step.Stage()); err != nil {
				return p.fail(run, step, err)
			}
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"stage", run.Stage,
		)

		start := time.Now()
		err := step.Do(ctx, run)
		run.StepDurations[step.Name()] = time.Since(start)

		if err != nil {
			if run.Stage == model.StageDeployed {
				p.logger.Warn("step failed after swap",
					"step", step.Name(),
					"error", err,
				)
				run.RecordPublishError(stageError(run.Stage, step.Kind(), err))
				continue
			}

			p.logger.Error("step failed",
				"step", step.Name(),
				"stage", run.Stage,
				"error", err,
			)
			return p.fail(run, step, err)
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"duration", run.StepDurations[step.Name()],
		)
		run.Steps = append(run.Steps, step.Name())

		if run.Stage == model.StageSwapping {
			if err := run.Advance(model.StageDeployed); err != nil {
				return p.fail(run, step, err)
			}
			p.logger.Info("pointer swapped", "report", run.ReportName)
		}
	}

	if !run.Stage.IsFinal() {
		p.logger.Warn("pipeline ended before the swap", "stage", run.Stage)
	}
	return nil
}

// fail records err on the run and returns it as a StageError.
func (p *Pipeline) fail(run *model.Run, step Step, err error) error {
	stage := run.Stage
	if stage == model.StageIdle {
		stage = step.Stage()
	}
	se := stageError(stage, step.Kind(), err)
	run.Fail(se)
	return se
}

// stageError wraps err unless it already carries a stage.
func stageError(stage model.Stage, kind, err error) *model.StageError {
	var se *model.StageError
	if errors.As(err, &se) {
		return se
	}
	return model.NewStageError(stage, kind, err)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
