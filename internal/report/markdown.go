package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format, suitable for
// $GITHUB_STEP_SUMMARY.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeAlert(md, run)
	w.writeSites(md, run)
	w.writeSteps(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the summary header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("Foil Report run " + run.Context.DisplayTime())
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Status", statusText(run)},
			{"Stage", run.Stage.String()},
			{"Timezone", run.Timezone},
			{"Report", "`" + orDash(run.ReportName) + "`"},
			{"Report size", strconv.FormatInt(run.ReportSize, 10) + " bytes"},
			{"Previous report", "`" + orDash(run.PreviousReport) + "`"},
			{"Raw data files", strconv.Itoa(len(run.RawFiles))},
		},
	})
	md.PlainText("")
}

// writeAlert writes an alert matching the outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run) {
	switch {
	case run.Stage == model.StageFailed:
		md.Cautionf("The run failed at %s (%s). The previous report stays online. %s",
			run.FailedStage, model.KindName(run.Err), run.ErrorMessage)
	case run.PublishErr != nil:
		md.Warningf("The pointer was swapped but the deploy failed: %s", run.PublishErrorMessage)
	case len(run.FailedSites) > 0:
		md.Note("Some sites produced no forecast and are missing from the report.")
	case run.Succeeded():
		md.Tip("New report is live.")
	}
	md.PlainText("")
}

// writeSites lists sites that produced no data.
func (w *MarkdownWriter) writeSites(md *markdown.Markdown, run *model.Run) {
	if len(run.FailedSites) == 0 {
		return
	}
	md.H2("Sites without data")
	md.PlainText("")
	md.BulletList(run.FailedSites...)
	md.PlainText("")
}

// writeSteps writes step durations as a table and a pie chart.
func (w *MarkdownWriter) writeSteps(md *markdown.Markdown, run *model.Run) {
	steps := stepDurations(run)
	if len(steps) == 0 {
		return
	}

	md.H2("Steps")
	md.PlainText("")

	rows := make([][]string, len(steps))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Time per step"),
		piechart.WithShowData(true),
	)
	charted := 0
	for i, s := range steps {
		rows[i] = []string{s.Name, s.Duration.Round(time.Millisecond).String()}
		if ms := s.Duration.Milliseconds(); ms > 0 {
			chart.LabelAndIntValue(s.Name, uint64(ms))
			charted++
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Step", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")
	if charted > 0 {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if len(run.Purged) > 0 {
		md.Details("Purged files", strings.Join(run.Purged, "\n"))
		md.PlainText("")
	}
}

// writeFooter writes the summary footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Summary generated by foilreport*")
}
