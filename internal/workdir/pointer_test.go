package workdir

import (
	"errors"
	"strings"
	"testing"
)

// TestPointerRoundTrip tests writing and reading the publish pointer.
func TestPointerRoundTrip(t *testing.T) {
	t.Parallel()

	d := newTestDir(t)

	if _, err := d.CurrentReport(); !errors.Is(err, ErrNoPointer) {
		t.Fatalf("expected ErrNoPointer, got %v", err)
	}

	if err := d.WritePointer("report_2024-05-01T06:00.html"); !errors.Is(err, ErrInvalidPointer) {
		t.Errorf("expected ErrInvalidPointer for missing report, got %v", err)
	}

	writeFile(t, d, "report_2024-05-01T06:00.html", "<!DOCTYPE html><html></html>")
	if err := d.WritePointer("report_2024-05-01T06:00.html"); err != nil {
		t.Fatalf("WritePointer failed: %v", err)
	}

	got, err := d.CurrentReport()
	if err != nil {
		t.Fatalf("CurrentReport failed: %v", err)
	}
	if got != "report_2024-05-01T06:00.html" {
		t.Errorf("unexpected current report %q", got)
	}
}

// TestPointerDocument tests the redirect document.
func TestPointerDocument(t *testing.T) {
	t.Parallel()

	doc, err := PointerDocument("report_2024-05-01T06:00.html")
	if err != nil {
		t.Fatalf("PointerDocument failed: %v", err)
	}
	s := string(doc)
	if !strings.HasPrefix(s, "<!DOCTYPE html>") {
		t.Errorf("expected doctype first: %s", s)
	}
	if !strings.Contains(s, "url=./report_2024-05-01T06:00.html") {
		t.Errorf("expected refresh target: %s", s)
	}

	if _, err := PointerDocument("../../etc/passwd"); !errors.Is(err, ErrInvalidPointer) {
		t.Errorf("expected ErrInvalidPointer, got %v", err)
	}
}

// TestParsePointer tests pointer documents written by hand or by older runs.
func TestParsePointer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		want    string
		wantErr error
	}{
		{
			name: "meta refresh",
			doc:  `<html><head><META HTTP-EQUIV="Refresh" CONTENT="0;URL='report_2024-05-01T06:00.html'"></head></html>`,
			want: "report_2024-05-01T06:00.html",
		},
		{
			name: "link fallback",
			doc:  `<html><body><a href="/report_2024-05-01T12:00.html">latest</a></body></html>`,
			want: "report_2024-05-01T12:00.html",
		},
		{
			name:    "no reference",
			doc:     `<html><body>nothing here</body></html>`,
			wantErr: ErrInvalidPointer,
		},
		{
			name:    "not a report",
			doc:     `<meta http-equiv="refresh" content="0; url=/etc/passwd">`,
			wantErr: ErrInvalidPointer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePointer(strings.NewReader(tt.doc))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestHasDocumentMarker tests the report sanity check.
func TestHasDocumentMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{name: "doctype", doc: "<!DOCTYPE html>\n<html></html>", want: true},
		{name: "lowercase doctype", doc: "<!doctype html><p>x</p>", want: true},
		{name: "html tag", doc: "<html lang=\"fr\"><body></body></html>", want: true},
		{name: "leading whitespace", doc: "\n\n  <!DOCTYPE html>", want: true},
		{name: "byte order mark", doc: "\ufeff<!DOCTYPE html>", want: true},
		{name: "leading comment", doc: "<!-- generated -->\n<!DOCTYPE html>\n<html></html>", want: true},
		{name: "comment before html tag", doc: "<!-- a --><!-- b --><html></html>", want: true},
		{name: "comment only", doc: "<!-- generated -->"},
		{name: "empty", doc: ""},
		{name: "plain text", doc: "Traceback (most recent call last):"},
		{name: "fragment", doc: "<div>partial</div>"},
		{name: "other doctype", doc: "<!DOCTYPE svg>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := HasDocumentMarker(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
