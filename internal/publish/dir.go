package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

// versionLayout names version directories. It sorts in time order.
const versionLayout = "20060102T150405.000000000"

var (
	// ErrTargetNotLink is returned when the target exists but is not a symlink.
	// The publisher refuses to replace a real directory.
	ErrTargetNotLink = errors.New("publish target exists and is not a symlink")

	// ErrNothingToPublish is returned when the working directory holds
	// neither a pointer nor a report.
	ErrNothingToPublish = errors.New("nothing to publish")
)

// DirPublisher publishes to a local web root. Each deploy copies the public
// files into a new version directory next to the target, then atomically
// repoints the target symlink to it:
//
//	/srv/www/foil -> foil.d/20240501T040000.000000000
//
// Old versions beyond the retention count are removed afterwards.
type DirPublisher struct {
	target string
	keep   int
	logger *slog.Logger
	now    func() time.Time
}

// NewDirPublisher creates a publisher for the target symlink path.
// keep below 1 is treated as 1.
func NewDirPublisher(target string, keep int, logger *slog.Logger) *DirPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirPublisher{
		target: filepath.Clean(target),
		keep:   max(keep, 1),
		logger: logger,
		now:    time.Now,
	}
}

// Name implements Publisher.
func (p *DirPublisher) Name() string { return "dir" }

// VersionsDir returns the directory holding the published versions.
func (p *DirPublisher) VersionsDir() string {
	return p.target + ".d"
}

// Publish implements Publisher.
func (p *DirPublisher) Publish(ctx context.Context, dir *workdir.Dir) error {
	if info, err := os.Lstat(p.target); err == nil {
		if info.Mode()&fs.ModeSymlink == 0 {
			return fmt.Errorf("%w: %s", ErrTargetNotLink, p.target)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to inspect publish target: %w", err)
	}

	files, err := dir.PublicFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNothingToPublish
	}

	versions := p.VersionsDir()
	if err := os.MkdirAll(versions, 0o750); err != nil {
		return fmt.Errorf("failed to create versions directory: %w", err)
	}
	stamp := p.now().UTC().Format(versionLayout)
	version := filepath.Join(versions, stamp)
	if err := os.Mkdir(version, 0o755); err != nil { //nolint:gosec // served by a web server
		return fmt.Errorf("failed to create version directory: %w", err)
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			_ = os.RemoveAll(version)
			return err
		}
		if err := copyFile(dir, name, filepath.Join(version, name)); err != nil {
			_ = os.RemoveAll(version)
			return err
		}
	}

	// The link target is relative to the parent of the target.
	link := filepath.Join(filepath.Dir(p.target), "."+filepath.Base(p.target)+".tmp-"+stamp)
	if err := os.Symlink(filepath.Join(filepath.Base(versions), stamp), link); err != nil {
		_ = os.RemoveAll(version)
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	if err := os.Rename(link, p.target); err != nil {
		_ = os.Remove(link)
		_ = os.RemoveAll(version)
		return fmt.Errorf("failed to switch publish target: %w", err)
	}
	p.logger.Info("published", "target", p.target, "version", stamp, "files", len(files))

	p.prune(stamp)
	return nil
}

// prune removes the oldest versions beyond the retention count. The current
// version is never removed. Failures are logged only.
func (p *DirPublisher) prune(current string) {
	entries, err := os.ReadDir(p.VersionsDir())
	if err != nil {
		p.logger.Warn("failed to list published versions", "error", err)
		return
	}
	var stamps []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != current {
			stamps = append(stamps, e.Name())
		}
	}
	slices.Sort(stamps)

	excess := len(stamps) - (p.keep - 1)
	for i := 0; i < excess; i++ {
		if err := os.RemoveAll(filepath.Join(p.VersionsDir(), stamps[i])); err != nil {
			p.logger.Warn("failed to remove old version", "version", stamps[i], "error", err)
			continue
		}
		p.logger.Debug("removed old version", "version", stamps[i])
	}
}

func copyFile(dir *workdir.Dir, name, dst string) error {
	src, err := dir.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // served by a web server
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", name, err)
	}
	return out.Close()
}
