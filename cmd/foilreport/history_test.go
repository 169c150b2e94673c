package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/database"
)

// TestWriteHistory tests the history table.
func TestWriteHistory(t *testing.T) {
	t.Parallel()

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := writeHistory(&buf, nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No run recorded yet.") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("lists runs and totals", func(t *testing.T) {
		t.Parallel()

		records := []database.RunRecord{
			{ID: 2, StartedAt: time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), Outcome: "failed", Stage: "FAILED", ErrorKind: "fetch"},
			{ID: 1, StartedAt: time.Date(2024, 4, 30, 18, 0, 0, 0, time.UTC), Outcome: "deployed", Stage: "DEPLOYED", ReportName: "report_2024-04-30T18:00.html", RawFiles: 6},
		}
		counts := map[string]int{"failed": 1, "deployed": 1}

		var buf bytes.Buffer
		if err := writeHistory(&buf, records, counts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Index(output, "2024-05-01 06:00:00") > strings.Index(output, "2024-04-30 18:00:00") {
			t.Error("expected newest run first")
		}
		if !strings.Contains(output, "Totals: deployed: 1, failed: 1") {
			t.Errorf("unexpected totals in:\n%s", output)
		}
	})
}

// TestWriteRunRecord tests the details of one run.
func TestWriteRunRecord(t *testing.T) {
	t.Parallel()

	rec := &database.RunRecord{
		ID:           7,
		StartedAt:    time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC),
		Timezone:     "Europe/Paris",
		Outcome:      "published_locally",
		Stage:        "DEPLOYED",
		ReportName:   "report_2024-05-01T06:00.html",
		PublishError: "rsync exited 23",
		FailedSites:  []string{"14", "314"},
	}

	var buf bytes.Buffer
	if err := writeRunRecord(&buf, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"# Run 7", "14, 314", "[!WARNING]", "rsync exited 23"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in:\n%s", want, output)
		}
	}
	if strings.Contains(output, "[!CAUTION]") {
		t.Error("no caution expected without an error")
	}
}
