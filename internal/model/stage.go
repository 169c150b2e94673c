package model

// Stage is a state of the publish pipeline.
//
// The legal path is IDLE → PREPARING → FETCHING → RENDERING → VERIFYING →
// SWAPPING → DEPLOYED. Any stage before DEPLOYED may move to FAILED.
type Stage int

const (
	// StageIdle is the state of a run that has not started.
	StageIdle Stage = iota

	// StagePreparing purges stale artifacts from the working directory.
	StagePreparing

	// StageFetching invokes the fetcher.
	StageFetching

	// StageRendering invokes the renderer.
	StageRendering

	// StageVerifying checks the freshly rendered report.
	StageVerifying

	// StageSwapping repoints the publish pointer at the new report.
	StageSwapping

	// StageDeployed is final: the pointer references the new report.
	// Work done in this stage (uploading to the host) cannot fail the run.
	StageDeployed

	// StageFailed is final: the previous published state stays live.
	StageFailed
)

// String returns the upper-case name of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "IDLE"
	case StagePreparing:
		return "PREPARING"
	case StageFetching:
		return "FETCHING"
	case StageRendering:
		return "RENDERING"
	case StageVerifying:
		return "VERIFYING"
	case StageSwapping:
		return "SWAPPING"
	case StageDeployed:
		return "DEPLOYED"
	case StageFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ParseStage converts a stage name back into a Stage.
// Unknown names return StageIdle and false.
func ParseStage(name string) (Stage, bool) {
	for s := StageIdle; s <= StageFailed; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return StageIdle, false
}

// IsFinal reports whether no further transition is possible.
func (s Stage) IsFinal() bool {
	return s == StageDeployed || s == StageFailed
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s Stage) CanTransition(next Stage) bool {
	if s.IsFinal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	return next == s+1
}
