package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
)

// SimpleWriter outputs human-readable text summaries for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists purged files and step durations.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeSites(&sb, run)
	if w.verbose {
		w.writeDetails(&sb, run)
	}
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                    FOIL REPORT RUN\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Started:         %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), run.Timezone)
	fmt.Fprintf(sb, "Status:          %s\n", statusText(run))
	fmt.Fprintf(sb, "Report:          %s\n", orDash(run.ReportName))
	if run.ReportSize > 0 {
		fmt.Fprintf(sb, "Report size:     %d bytes\n", run.ReportSize)
	}
	fmt.Fprintf(sb, "Previous report: %s\n", orDash(run.PreviousReport))
	fmt.Fprintf(sb, "Raw data files:  %d\n", len(run.RawFiles))

	if run.ErrorMessage != "" {
		fmt.Fprintf(sb, "Error:           %s\n", run.ErrorMessage)
	}
	if run.PublishErrorMessage != "" {
		fmt.Fprintf(sb, "Deploy error:    %s\n", run.PublishErrorMessage)
	}
	sb.WriteString("\n")
}

// writeSites lists sites that produced no data.
func (w *SimpleWriter) writeSites(sb *strings.Builder, run *model.Run) {
	if len(run.FailedSites) == 0 {
		return
	}
	sb.WriteString("Sites without data:\n")
	for _, id := range run.FailedSites {
		fmt.Fprintf(sb, "  - %s\n", id)
	}
	sb.WriteString("\n")
}

// writeDetails writes step durations and purged files.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, run *model.Run) {
	if steps := stepDurations(run); len(steps) > 0 {
		sb.WriteString("Steps:\n")
		for _, s := range steps {
			fmt.Fprintf(sb, "  %-8s %s\n", s.Name, s.Duration.Round(time.Millisecond))
		}
		sb.WriteString("\n")
	}
	if len(run.Purged) > 0 {
		sb.WriteString("Purged:\n")
		for _, name := range run.Purged {
			fmt.Fprintf(sb, "  - %s\n", name)
		}
		sb.WriteString("\n")
	}
}
