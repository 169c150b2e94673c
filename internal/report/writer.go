package report

import (
	"io"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
)

// Writer defines the interface for run summary output.
type Writer interface {
	// Write outputs the run summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.Run) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// stepOrder is the order in which step durations are listed.
var stepOrder = []string{"prepare", "fetch", "render", "verify", "swap", "deploy"}

// stepDurations returns the recorded durations in pipeline order, followed by
// any step with another name.
func stepDurations(run *model.Run) []namedDuration {
	out := make([]namedDuration, 0, len(run.StepDurations))
	seen := make(map[string]bool, len(stepOrder))
	for _, name := range stepOrder {
		seen[name] = true
		if d, ok := run.StepDurations[name]; ok {
			out = append(out, namedDuration{name, d})
		}
	}
	for name, d := range run.StepDurations {
		if !seen[name] {
			out = append(out, namedDuration{name, d})
		}
	}
	return out
}

type namedDuration struct {
	Name     string
	Duration time.Duration
}

// statusText describes the result of a run in one line.
func statusText(run *model.Run) string {
	switch {
	case run.Stage == model.StageDeployed && run.PublishErr != nil:
		return "Published locally, deploy failed"
	case run.Stage == model.StageDeployed && run.Deployed:
		return "Deployed"
	case run.Stage == model.StageDeployed:
		return "Published locally"
	case run.Stage == model.StageFailed:
		return "Failed at " + run.FailedStage
	default:
		return "Incomplete (" + run.Stage.String() + ")"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
