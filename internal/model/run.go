package model

import (
	"fmt"
	"time"
)

// Run is the record of one pipeline execution.
// It is created at pipeline start, handed to every step, and written to the
// history database and the run summary once the pipeline returns.
type Run struct {
	// Context is the start time and timezone shared by all stages.
	Context RunContext `json:"-"`

	// StartedAt and Timezone mirror Context for serialization.
	StartedAt time.Time `json:"started_at"`
	Timezone  string    `json:"timezone"`

	// FinishedAt is set when the run reaches a final stage.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Stage is the current state of the run.
	Stage Stage `json:"-"`

	// StageName mirrors Stage for serialization.
	StageName string `json:"stage"`

	// FailedStage is the stage that was running when the run failed.
	FailedStage string `json:"failed_stage,omitempty"`

	// WorkDir is the absolute path of the working directory.
	WorkDir string `json:"work_dir"`

	// PreviousReport is the report the pointer referenced when the run started.
	PreviousReport string `json:"previous_report,omitempty"`

	// RawFiles lists the RawDataFiles written by the fetcher.
	RawFiles []string `json:"raw_files,omitempty"`

	// FailedSites lists site identifiers that produced no data.
	FailedSites []string `json:"failed_sites,omitempty"`

	// ReportName is the file name of the verified report.
	ReportName string `json:"report_name,omitempty"`

	// ReportSize is the size of the verified report in bytes.
	ReportSize int64 `json:"report_size,omitempty"`

	// Purged lists files removed from the working directory during the run.
	Purged []string `json:"purged,omitempty"`

	// Steps lists the steps that completed, in order.
	Steps []string `json:"steps,omitempty"`

	// StepDurations records how long each completed step took.
	StepDurations map[string]time.Duration `json:"step_durations,omitempty"`

	// Err is the error that failed the run. It is not serialized directly.
	Err error `json:"-"`

	// ErrorMessage mirrors Err for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// PublishErr is a deploy failure recorded after the swap.
	PublishErr error `json:"-"`

	// PublishErrorMessage mirrors PublishErr for serialization.
	PublishErrorMessage string `json:"publish_error,omitempty"`

	// Deployed is true once the hosting step succeeded.
	Deployed bool `json:"deployed"`
}

// NewRun creates a run in the IDLE stage.
func NewRun(rc RunContext, workDir string) *Run {
	return &Run{
		Context:       rc,
		StartedAt:     rc.Start,
		Timezone:      rc.Timezone(),
		Stage:         StageIdle,
		StageName:     StageIdle.String(),
		WorkDir:       workDir,
		StepDurations: make(map[string]time.Duration),
	}
}

// Advance moves the run to the next stage.
// It returns an error if the state machine does not allow the transition.
func (r *Run) Advance(next Stage) error {
	if r.Stage == next {
		return nil
	}
	if !r.Stage.CanTransition(next) {
		return fmt.Errorf("illegal stage transition %s -> %s", r.Stage, next)
	}
	r.Stage = next
	r.StageName = next.String()
	if next.IsFinal() {
		r.FinishedAt = time.Now().In(r.Context.locationOrUTC())
	}
	return nil
}

// Fail moves the run to FAILED and records the error.
// A run that is already DEPLOYED stays DEPLOYED.
func (r *Run) Fail(err error) {
	if r.Stage.IsFinal() {
		return
	}
	r.FailedStage = r.Stage.String()
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	_ = r.Advance(StageFailed) //nolint:errcheck // every non-final stage may fail
}

// RecordPublishError stores a deploy failure without changing the stage.
func (r *Run) RecordPublishError(err error) {
	r.PublishErr = err
	if err != nil {
		r.PublishErrorMessage = err.Error()
	}
}

// Succeeded reports whether the run reached DEPLOYED.
func (r *Run) Succeeded() bool {
	return r.Stage == StageDeployed
}

// AddPurged appends removed file names.
func (r *Run) AddPurged(names ...string) {
	r.Purged = append(r.Purged, names...)
}

// Outcome is a one-word result used in metrics and history.
func (r *Run) Outcome() string {
	switch {
	case r.Stage == StageDeployed && r.PublishErr != nil:
		return "published_locally"
	case r.Stage == StageDeployed:
		return "deployed"
	case r.Stage == StageFailed:
		return "failed"
	default:
		return "incomplete"
	}
}

func (rc RunContext) locationOrUTC() *time.Location {
	if rc.Location == nil {
		return time.UTC
	}
	return rc.Location
}
