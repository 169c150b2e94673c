package workdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// File naming of the working directory.
const (
	// PointerName is the publish pointer served as the site root.
	PointerName = "index.html"

	// ReportTimeLayout formats the run timestamp inside a report name.
	ReportTimeLayout = "2006-01-02T15:04"

	rawPrefix    = "forecast_"
	rawExt       = ".csv"
	reportPrefix = "report_"
	reportExt    = ".html"
	tempMarker   = ".tmp-"
)

var (
	reportPattern = regexp.MustCompile(`^report_\d{4}-\d{2}-\d{2}T\d{2}:\d{2}\.html$`)
	rawPattern    = regexp.MustCompile(`^forecast_([A-Za-z0-9-]+)\.csv$`)
	siteIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

var (
	// ErrInvalidName is returned for names that would escape the working directory.
	ErrInvalidName = errors.New("invalid file name")

	// ErrNotDirectory is returned when the working directory path is a file.
	ErrNotDirectory = errors.New("working directory path is not a directory")
)

// Dir is a handle on the pipeline working directory. Every file operation of
// the pipeline goes through it and is confined to the directory itself.
type Dir struct {
	path string
}

// New returns a handle on path. The directory is not created until Ensure.
func New(path string) (*Dir, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidName)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return &Dir{path: abs}, nil
}

// Path returns the absolute path of the directory.
func (d *Dir) Path() string {
	return d.path
}

// Ensure creates the directory if needed.
func (d *Dir) Ensure() error {
	info, err := os.Stat(d.path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDirectory, d.path)
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to stat working directory: %w", err)
	}
	if err := os.MkdirAll(d.path, 0o755); err != nil { //nolint:gosec // published tree must be world-readable
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	return nil
}

// Join returns the path of a file directly inside the directory.
func (d *Dir) Join(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.path, name), nil
}

// ValidSiteID reports whether id can name a RawDataFile that the listing
// functions recognise.
func ValidSiteID(id string) bool {
	return siteIDPattern.MatchString(id)
}

// RawDataName is the fixed file name of a site's RawDataFile.
func RawDataName(siteID string) string {
	return rawPrefix + siteID + rawExt
}

// ReportName is the deterministic file name of the report of a run started at t.
// t must already be in the run timezone.
func ReportName(t time.Time) string {
	return reportPrefix + t.Format(ReportTimeLayout) + reportExt
}

// IsReportName reports whether name follows the report naming scheme.
func IsReportName(name string) bool {
	return reportPattern.MatchString(name)
}

// IsRawDataName reports whether name follows the RawDataFile naming scheme.
func IsRawDataName(name string) bool {
	return rawPattern.MatchString(name)
}

// SiteID extracts the site identifier from a RawDataFile name.
func SiteID(rawName string) (string, bool) {
	m := rawPattern.FindStringSubmatch(rawName)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, tempMarker)
}

// RawDataFiles lists the RawDataFiles in name order.
func (d *Dir) RawDataFiles() ([]string, error) {
	return d.list(IsRawDataName)
}

// Reports lists the ReportFiles in name order, which is also time order.
func (d *Dir) Reports() ([]string, error) {
	return d.list(IsReportName)
}

// PublicFiles lists what the host serves: the pointer and the reports.
func (d *Dir) PublicFiles() ([]string, error) {
	return d.list(func(name string) bool {
		return name == PointerName || IsReportName(name)
	})
}

// TempFiles lists leftovers of interrupted atomic writes.
func (d *Dir) TempFiles() ([]string, error) {
	return d.list(isTempName)
}

func (d *Dir) list(match func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to list working directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && match(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Exists reports whether a regular file with the given name exists.
func (d *Dir) Exists(name string) bool {
	p, err := d.Join(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the size of a file in bytes.
func (d *Dir) Size(name string) (int64, error) {
	p, err := d.Join(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open opens a file of the directory for reading.
func (d *Dir) Open(name string) (*os.File, error) {
	p, err := d.Join(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p) //nolint:gosec // confined to the working directory by Join
}

// Remove deletes the named files. Missing files are ignored.
// It returns the names actually removed and every failure joined.
func (d *Dir) Remove(names ...string) ([]string, error) {
	var removed []string
	var errs []error
	for _, name := range names {
		p, err := d.Join(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(p); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("failed to remove %s: %w", name, err))
			}
			continue
		}
		removed = append(removed, name)
	}
	return removed, errors.Join(errs...)
}

// WriteFileAtomic writes data to name through a temporary file and a rename,
// so readers see either the old content or the new one.
func (d *Dir) WriteFileAtomic(name string, data []byte) (err error) {
	target, err := d.Join(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.path, "."+name+tempMarker+"*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // published files must be world-readable
		return fmt.Errorf("failed to chmod %s: %w", name, err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
