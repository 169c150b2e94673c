package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	stage     model.Stage
	kind      error
	doFunc    func(ctx context.Context, run *model.Run) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, run *model.Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// Stage implements Step.Stage.
func (m *mockStep) Stage() model.Stage {
	return m.stage
}

// Kind implements Step.Kind.
func (m *mockStep) Kind() error {
	if m.kind == nil {
		return model.ErrSetup
	}
	return m.kind
}

// mockSteps returns one mock step per pipeline stage.
func mockSteps() []*mockStep {
	return []*mockStep{
		{name: "prepare", stage: model.StagePreparing, kind: model.ErrSetup},
		{name: "fetch", stage: model.StageFetching, kind: model.ErrFetch},
		{name: "render", stage: model.StageRendering, kind: model.ErrRender},
		{name: "verify", stage: model.StageVerifying, kind: model.ErrVerify},
		{name: "swap", stage: model.StageSwapping, kind: model.ErrSetup},
		{name: "deploy", stage: model.StageDeployed, kind: model.ErrPublish},
	}
}

func newTestRun(t *testing.T) *model.Run {
	t.Helper()

	rc, err := model.NewRunContext(time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC), "Europe/Paris")
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}
	return model.NewRun(rc, "/tmp/public")
}

func newMockPipeline(steps []*mockStep) *Pipeline {
	p := New()
	for _, s := range steps {
		p.AddStep(s)
	}
	return p
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected a default logger")
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

		if got := p.StepNames(); !slices.Equal(got, []string{"first", "second", "third"}) {
			t.Errorf("unexpected order %v", got)
		}
	})
}

// TestPipelineExecute tests the state machine driven by Execute.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("successful run ends DEPLOYED", func(t *testing.T) {
		t.Parallel()

		steps := mockSteps()
		run := newTestRun(t)

		if err := newMockPipeline(steps).Execute(t.Context(), run); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if run.Stage != model.StageDeployed {
			t.Errorf("expected DEPLOYED, got %s", run.Stage)
		}
		if !slices.Equal(run.Steps, []string{"prepare", "fetch", "render", "verify", "swap", "deploy"}) {
			t.Errorf("unexpected steps %v", run.Steps)
		}
		if len(run.StepDurations) != 6 {
			t.Errorf("expected 6 durations, got %d", len(run.StepDurations))
		}
		if run.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("failure before swap stops the run", func(t *testing.T) {
		t.Parallel()

		steps := mockSteps()
		cause := errors.New("no forecast")
		steps[1].doFunc = func(context.Context, *model.Run) error { return cause }
		run := newTestRun(t)

		err := newMockPipeline(steps).Execute(t.Context(), run)

		var se *model.StageError
		if !errors.As(err, &se) {
			t.Fatalf("expected a StageError, got %v", err)
		}
		if se.Stage != model.StageFetching {
			t.Errorf("expected FETCHING, got %s", se.Stage)
		}
		if !errors.Is(err, model.ErrFetch) || !errors.Is(err, cause) {
			t.Errorf("expected fetch kind and cause, got %v", err)
		}
		if run.Stage != model.StageFailed || run.FailedStage != "FETCHING" {
			t.Errorf("unexpected run state %s / %s", run.Stage, run.FailedStage)
		}
		for _, s := range steps[2:] {
			if s.callCount != 0 {
				t.Errorf("step %s should not have run", s.name)
			}
		}
	})

	t.Run("step may choose its error kind", func(t *testing.T) {
		t.Parallel()

		steps := mockSteps()
		steps[3].doFunc = func(context.Context, *model.Run) error {
			return model.NewStageError(model.StageVerifying, model.ErrRender, errors.New("empty"))
		}
		run := newTestRun(t)

		err := newMockPipeline(steps).Execute(t.Context(), run)
		if !errors.Is(err, model.ErrRender) {
			t.Errorf("expected ErrRender, got %v", err)
		}
		if errors.Is(err, model.ErrVerify) {
			t.Error("the step kind should not override the returned kind")
		}
	})

	t.Run("deploy failure does not fail the run", func(t *testing.T) {
		t.Parallel()

		steps := mockSteps()
		steps[5].doFunc = func(context.Context, *model.Run) error { return errors.New("host down") }
		run := newTestRun(t)

		if err := newMockPipeline(steps).Execute(t.Context(), run); err != nil {
			t.Fatalf("expected nil error after swap, got %v", err)
		}
		if run.Stage != model.StageDeployed {
			t.Errorf("expected DEPLOYED, got %s", run.Stage)
		}
		if !errors.Is(run.PublishErr, model.ErrPublish) {
			t.Errorf("expected a publish error, got %v", run.PublishErr)
		}
		if run.Outcome() != "published_locally" {
			t.Errorf("unexpected outcome %q", run.Outcome())
		}
	})

	t.Run("cancellation before swap fails the run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		steps := mockSteps()
		steps[1].doFunc = func(context.Context, *model.Run) error {
			cancel()
			return nil
		}
		run := newTestRun(t)

		err := newMockPipeline(steps).Execute(ctx, run)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if run.Stage != model.StageFailed {
			t.Errorf("expected FAILED, got %s", run.Stage)
		}
		if steps[2].callCount != 0 {
			t.Error("render should not have run")
		}
	})

	t.Run("cancellation after swap keeps DEPLOYED", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		steps := mockSteps()
		steps[4].doFunc = func(context.Context, *model.Run) error {
			cancel()
			return nil
		}
		run := newTestRun(t)

		if err := newMockPipeline(steps).Execute(ctx, run); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		if run.Stage != model.StageDeployed {
			t.Errorf("expected DEPLOYED, got %s", run.Stage)
		}
		if steps[5].callCount != 0 {
			t.Error("deploy should not run on a canceled context")
		}
	})

	t.Run("out of order step fails", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "swap", stage: model.StageSwapping})
		run := newTestRun(t)

		if err := p.Execute(t.Context(), run); err == nil {
			t.Error("expected an illegal transition error")
		}
		if run.Stage != model.StageFailed {
			t.Errorf("expected FAILED, got %s", run.Stage)
		}
	})
}
