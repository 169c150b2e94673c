package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/LeCoonEtSaBande/foil-report/internal/fetcher"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

const (
	liveReport = "report_2024-04-30T18:00.html"
	newReport  = "report_2024-05-01T06:00.html"
	validHTML  = "<!DOCTYPE html>\n<html><body>forecast</body></html>\n"
)

// fakeFetcher writes one RawDataFile per site.
type fakeFetcher struct {
	sites  []string
	failed []string
	err    error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ model.RunContext, dir *workdir.Dir) (*fetcher.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := &fetcher.Result{}
	for _, id := range f.sites {
		name := workdir.RawDataName(id)
		if err := dir.WriteFileAtomic(name, []byte("site_id;"+id+"\n")); err != nil {
			return nil, err
		}
		res.Written = append(res.Written, name)
	}
	for _, id := range f.failed {
		res.Failed = append(res.Failed, fetcher.SiteFailure{SiteID: id, Err: errors.New("timeout")})
	}
	return res, nil
}

// fakeRenderer writes the given files and returns the first name.
type fakeRenderer struct {
	files map[string]string
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, rc model.RunContext, dir *workdir.Dir) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	for name, content := range r.files {
		if err := dir.WriteFileAtomic(name, []byte(content)); err != nil {
			return "", err
		}
	}
	return workdir.ReportName(rc.Start), nil
}

// pointerBlockingRenderer renders, then replaces the pointer with a
// non-empty directory so that repointing it fails.
type pointerBlockingRenderer struct {
	fakeRenderer
}

func (r *pointerBlockingRenderer) Render(ctx context.Context, rc model.RunContext, dir *workdir.Dir) (string, error) {
	name, err := r.fakeRenderer.Render(ctx, rc, dir)
	if err != nil {
		return "", err
	}
	pointer := filepath.Join(dir.Path(), workdir.PointerName)
	if err := os.Remove(pointer); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(pointer, "blocked"), 0o750); err != nil {
		return "", err
	}
	return name, nil
}

// fakePublisher records calls.
type fakePublisher struct {
	calls int
	err   error
}

func (p *fakePublisher) Publish(context.Context, *workdir.Dir) error {
	p.calls++
	return p.err
}

func (p *fakePublisher) Name() string { return "fake" }

// newLiveDir returns a working directory already serving liveReport.
func newLiveDir(t *testing.T) *workdir.Dir {
	t.Helper()

	dir, err := workdir.New(filepath.Join(t.TempDir(), "public"))
	if err != nil {
		t.Fatalf("workdir.New failed: %v", err)
	}
	if err := dir.Ensure(); err != nil {
		t.Fatal(err)
	}
	if err := dir.WriteFileAtomic(liveReport, []byte(validHTML)); err != nil {
		t.Fatal(err)
	}
	if err := dir.WritePointer(liveReport); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runPipeline(t *testing.T, c Components) (*model.Run, error) {
	t.Helper()

	run := newTestRun(t)
	p := New()
	p.AddSteps(Steps(c)...)
	err := p.Execute(t.Context(), run)
	return run, err
}

func pointerOf(t *testing.T, dir *workdir.Dir) string {
	t.Helper()

	name, err := dir.CurrentReport()
	if err != nil {
		t.Fatalf("CurrentReport failed: %v", err)
	}
	return name
}

// TestPublishPipeline tests end-to-end runs against a real working directory.
func TestPublishPipeline(t *testing.T) {
	t.Parallel()

	t.Run("successful run swaps the pointer and removes the old report", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		pub := &fakePublisher{}
		run, err := runPipeline(t, Components{
			Dir:       dir,
			Fetcher:   &fakeFetcher{sites: []string{"14", "179", "193"}},
			Renderer:  &fakeRenderer{files: map[string]string{newReport: validHTML}},
			Publisher: pub,
		})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}

		if run.Stage != model.StageDeployed || !run.Deployed {
			t.Errorf("expected a deployed run, got %s deployed=%v", run.Stage, run.Deployed)
		}
		if got := pointerOf(t, dir); got != newReport {
			t.Errorf("pointer references %q, expected %q", got, newReport)
		}
		reports, err := dir.Reports()
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(reports, []string{newReport}) {
			t.Errorf("expected exactly the new report, got %v", reports)
		}
		if run.PreviousReport != liveReport || run.ReportName != newReport {
			t.Errorf("unexpected run reports %q -> %q", run.PreviousReport, run.ReportName)
		}
		if len(run.RawFiles) != 3 {
			t.Errorf("expected 3 raw files, got %v", run.RawFiles)
		}
		if !slices.Contains(run.Purged, liveReport) {
			t.Errorf("expected the old report to be purged, got %v", run.Purged)
		}
		if pub.calls != 1 {
			t.Errorf("expected one deploy, got %d", pub.calls)
		}
	})

	t.Run("first run without pointer", func(t *testing.T) {
		t.Parallel()

		dir, err := workdir.New(filepath.Join(t.TempDir(), "public"))
		if err != nil {
			t.Fatal(err)
		}
		run, err := runPipeline(t, Components{
			Dir:      dir,
			Fetcher:  &fakeFetcher{sites: []string{"14"}},
			Renderer: &fakeRenderer{files: map[string]string{newReport: validHTML}},
		})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if run.Stage != model.StageDeployed {
			t.Errorf("expected DEPLOYED, got %s", run.Stage)
		}
		if got := pointerOf(t, dir); got != newReport {
			t.Errorf("pointer references %q", got)
		}
	})

	t.Run("no raw data halts at FETCHING", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		rend := &fakeRenderer{files: map[string]string{newReport: validHTML}}
		run, err := runPipeline(t, Components{
			Dir:      dir,
			Fetcher:  &fakeFetcher{failed: []string{"14", "179"}},
			Renderer: rend,
		})
		if !errors.Is(err, model.ErrFetch) || !errors.Is(err, fetcher.ErrNoData) {
			t.Fatalf("expected a fetch error, got %v", err)
		}
		if run.Stage != model.StageFailed || run.FailedStage != "FETCHING" {
			t.Errorf("unexpected state %s / %s", run.Stage, run.FailedStage)
		}
		if !slices.Equal(run.FailedSites, []string{"14", "179"}) {
			t.Errorf("unexpected failed sites %v", run.FailedSites)
		}
		if dir.Exists(newReport) {
			t.Error("renderer should not have run")
		}
		if got := pointerOf(t, dir); got != liveReport {
			t.Errorf("pointer changed to %q", got)
		}
	})

	t.Run("fetcher error halts at FETCHING", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		_, err := runPipeline(t, Components{
			Dir:      dir,
			Fetcher:  &fakeFetcher{err: errors.New("browser crashed")},
			Renderer: &fakeRenderer{},
		})
		if !errors.Is(err, model.ErrFetch) {
			t.Errorf("expected a fetch error, got %v", err)
		}
	})

	t.Run("renderer failure keeps the live report", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		_, err := runPipeline(t, Components{
			Dir:      dir,
			Fetcher:  &fakeFetcher{sites: []string{"14"}},
			Renderer: &fakeRenderer{err: errors.New("template error")},
		})
		if !errors.Is(err, model.ErrRender) {
			t.Errorf("expected a render error, got %v", err)
		}
		if got := pointerOf(t, dir); got != liveReport {
			t.Errorf("pointer changed to %q", got)
		}
	})

	t.Run("failed pointer write keeps every report", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		pub := &fakePublisher{}
		run, err := runPipeline(t, Components{
			Dir:       dir,
			Fetcher:   &fakeFetcher{sites: []string{"14"}},
			Renderer:  &pointerBlockingRenderer{fakeRenderer{files: map[string]string{newReport: validHTML}}},
			Publisher: pub,
		})
		if !errors.Is(err, model.ErrSetup) {
			t.Fatalf("expected a setup error, got %v", err)
		}
		if run.Stage != model.StageFailed || run.FailedStage != "SWAPPING" {
			t.Errorf("expected failure at SWAPPING, got %s at %s", run.Stage, run.FailedStage)
		}
		if !dir.Exists(liveReport) {
			t.Error("the live report was deleted although the pointer was not repointed")
		}
		if !dir.Exists(newReport) {
			t.Error("the candidate report was deleted")
		}
		info, err := os.Stat(filepath.Join(dir.Path(), workdir.PointerName))
		if err != nil || !info.IsDir() {
			t.Errorf("the pointer path was rewritten: %v", err)
		}
		if slices.Contains(run.Purged, liveReport) {
			t.Errorf("the live report is listed as purged: %v", run.Purged)
		}
		if pub.calls != 0 {
			t.Error("a failed run must not deploy")
		}
	})

	t.Run("zero-byte report is rejected", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		pub := &fakePublisher{}
		run, err := runPipeline(t, Components{
			Dir:       dir,
			Fetcher:   &fakeFetcher{sites: []string{"14"}},
			Renderer:  &fakeRenderer{files: map[string]string{newReport: ""}},
			Publisher: pub,
		})
		if !errors.Is(err, model.ErrRender) || !errors.Is(err, ErrEmptyReport) {
			t.Fatalf("expected an empty report render error, got %v", err)
		}
		if run.FailedStage != "VERIFYING" {
			t.Errorf("expected failure at VERIFYING, got %s", run.FailedStage)
		}
		if got := pointerOf(t, dir); got != liveReport {
			t.Errorf("pointer changed to %q", got)
		}
		if pub.calls != 0 {
			t.Error("a failed run must not deploy")
		}
	})

	t.Run("report without document marker is rejected", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		_, err := runPipeline(t, Components{
			Dir:      dir,
			Fetcher:  &fakeFetcher{sites: []string{"14"}},
			Renderer: &fakeRenderer{files: map[string]string{newReport: "Traceback (most recent call last)"}},
		})
		if !errors.Is(err, model.ErrRender) || !errors.Is(err, ErrNotHTML) {
			t.Errorf("expected a malformed report render error, got %v", err)
		}
		if got := pointerOf(t, dir); got != liveReport {
			t.Errorf("pointer changed to %q", got)
		}
	})

	t.Run("two candidates are ambiguous", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		_, err := runPipeline(t, Components{
			Dir:     dir,
			Fetcher: &fakeFetcher{sites: []string{"14"}},
			Renderer: &fakeRenderer{files: map[string]string{
				newReport:                      validHTML,
				"report_2024-05-01T06:01.html": validHTML,
			}},
		})
		if !errors.Is(err, model.ErrVerify) || !errors.Is(err, ErrAmbiguousCandidates) {
			t.Errorf("expected an ambiguity verify error, got %v", err)
		}
		if got := pointerOf(t, dir); got != liveReport {
			t.Errorf("pointer changed to %q", got)
		}
	})

	t.Run("wrongly named report is rejected", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		_, err := runPipeline(t, Components{
			Dir:      dir,
			Fetcher:  &fakeFetcher{sites: []string{"14"}},
			Renderer: &fakeRenderer{files: map[string]string{"report_2024-05-01T07:00.html": validHTML}},
		})
		if !errors.Is(err, model.ErrVerify) || !errors.Is(err, ErrUnexpectedReport) {
			t.Errorf("expected an unexpected report verify error, got %v", err)
		}
	})

	t.Run("renderer that writes nothing", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		_, err := runPipeline(t, Components{
			Dir:      dir,
			Fetcher:  &fakeFetcher{sites: []string{"14"}},
			Renderer: &fakeRenderer{},
		})
		if !errors.Is(err, model.ErrVerify) || !errors.Is(err, ErrNoCandidate) {
			t.Errorf("expected a no candidate verify error, got %v", err)
		}
	})

	t.Run("same minute rerun collides with the live report", func(t *testing.T) {
		t.Parallel()

		dir, err := workdir.New(filepath.Join(t.TempDir(), "public"))
		if err != nil {
			t.Fatal(err)
		}
		if err := dir.Ensure(); err != nil {
			t.Fatal(err)
		}
		if err := dir.WriteFileAtomic(newReport, []byte(validHTML)); err != nil {
			t.Fatal(err)
		}
		if err := dir.WritePointer(newReport); err != nil {
			t.Fatal(err)
		}

		rend := &fakeRenderer{files: map[string]string{newReport: "overwritten"}}
		_, err = runPipeline(t, Components{
			Dir:      dir,
			Fetcher:  &fakeFetcher{sites: []string{"14"}},
			Renderer: rend,
		})
		if !errors.Is(err, model.ErrRender) || !errors.Is(err, ErrLiveReportCollision) {
			t.Fatalf("expected a collision render error, got %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir.Path(), newReport))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != validHTML {
			t.Error("live report was modified")
		}
	})

	t.Run("deploy failure still exits cleanly", func(t *testing.T) {
		t.Parallel()

		dir := newLiveDir(t)
		run, err := runPipeline(t, Components{
			Dir:       dir,
			Fetcher:   &fakeFetcher{sites: []string{"14"}},
			Renderer:  &fakeRenderer{files: map[string]string{newReport: validHTML}},
			Publisher: &fakePublisher{err: errors.New("401 unauthorized")},
		})
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if run.Stage != model.StageDeployed || run.Deployed {
			t.Errorf("unexpected state %s deployed=%v", run.Stage, run.Deployed)
		}
		if !errors.Is(run.PublishErr, model.ErrPublish) {
			t.Errorf("expected a publish error, got %v", run.PublishErr)
		}
		if got := pointerOf(t, dir); got != newReport {
			t.Errorf("pointer references %q", got)
		}
	})
}

// TestPrepareStep tests purging of stale artifacts.
func TestPrepareStep(t *testing.T) {
	t.Parallel()

	dir := newLiveDir(t)
	for _, name := range []string{
		workdir.RawDataName("14"),
		workdir.RawDataName("193"),
		"report_2024-04-30T12:00.html",
		".index.html.tmp-123",
		"robots.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir.Path(), name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	run := newTestRun(t)
	if err := NewPrepareStep(dir).Do(t.Context(), run); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if run.PreviousReport != liveReport {
		t.Errorf("expected live report %q, got %q", liveReport, run.PreviousReport)
	}
	for _, gone := range []string{workdir.RawDataName("14"), workdir.RawDataName("193"), "report_2024-04-30T12:00.html", ".index.html.tmp-123"} {
		if dir.Exists(gone) {
			t.Errorf("%s should have been purged", gone)
		}
	}
	for _, kept := range []string{liveReport, workdir.PointerName, "robots.txt"} {
		if !dir.Exists(kept) {
			t.Errorf("%s should have been kept", kept)
		}
	}
	if len(run.Purged) != 4 {
		t.Errorf("expected 4 purged files, got %v", run.Purged)
	}
}

// TestPrepareStepBrokenPointer tests that an unreadable pointer protects nothing.
func TestPrepareStepBrokenPointer(t *testing.T) {
	t.Parallel()

	dir := newLiveDir(t)
	if err := os.WriteFile(filepath.Join(dir.Path(), workdir.PointerName), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	run := newTestRun(t)
	if err := NewPrepareStep(dir).Do(t.Context(), run); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if run.PreviousReport != "" {
		t.Errorf("expected no live report, got %q", run.PreviousReport)
	}
	if dir.Exists(liveReport) {
		t.Error("unreferenced report should have been purged")
	}
}

// TestSteps tests the standard step list.
func TestSteps(t *testing.T) {
	t.Parallel()

	dir := newLiveDir(t)

	withDeploy := Steps(Components{Dir: dir, Publisher: &fakePublisher{}})
	if len(withDeploy) != 6 {
		t.Errorf("expected 6 steps, got %d", len(withDeploy))
	}

	withoutDeploy := Steps(Components{Dir: dir})
	names := make([]string, 0, len(withoutDeploy))
	for _, s := range withoutDeploy {
		names = append(names, s.Name())
	}
	if !slices.Equal(names, []string{"prepare", "fetch", "render", "verify", "swap"}) {
		t.Errorf("unexpected steps %v", names)
	}
}
