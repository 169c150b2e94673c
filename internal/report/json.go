package report

import (
	"encoding/json"
	"io"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
)

// JSONWriter outputs run summaries in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONRun wraps a run with fields derived at write time.
type JSONRun struct {
	*model.Run

	// Outcome is the one-word result of the run.
	Outcome string `json:"outcome"`

	// ErrorKind is the error kind that failed the run, if any.
	ErrorKind string `json:"error_kind,omitempty"`
}

// Write outputs the run in JSON format.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(JSONRun{
		Run:       run,
		Outcome:   run.Outcome(),
		ErrorKind: model.KindName(run.Err),
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
