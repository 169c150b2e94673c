package config

import (
	"path/filepath"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/forecast"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "foilreport"

	// DefaultWorkDir is the working directory holding raw data, the report
	// and the publish pointer. It is also the tree handed to the host.
	DefaultWorkDir = "public"

	// DefaultTimeout bounds a whole pipeline run. A run that exceeds it
	// before the pointer swap is a failed run.
	DefaultTimeout = 15 * time.Minute

	// DefaultSchedule runs the pipeline three times a day, in the run timezone.
	DefaultSchedule = "0 6,12,18 * * *"

	// DefaultBaseURL is the forecast source.
	DefaultBaseURL = "https://www.windguru.cz"

	// DefaultConcurrency is the number of sites fetched in parallel.
	// Each site holds a browser tab, so keep this small.
	DefaultConcurrency = 3

	// DefaultPageTimeout is how long a single forecast page may take to
	// show its tables.
	DefaultPageTimeout = 60 * time.Second

	// DefaultSettleDelay lets page scripts finish drawing the tables after
	// they appear.
	DefaultSettleDelay = 500 * time.Millisecond

	// DefaultSitePause spaces out site starts to stay polite with the source.
	DefaultSitePause = 1 * time.Second

	// DefaultBreakerFailures is the number of consecutive site failures after
	// which the remaining sites are skipped.
	DefaultBreakerFailures = 3

	// DefaultKeepVersions is how many published versions the dir publisher keeps.
	DefaultKeepVersions = 3
)

// Fetcher kinds.
const (
	FetcherWindguru = "windguru"
	FetcherCommand  = "command"
)

// Renderer kinds.
const (
	RendererHTML    = "html"
	RendererCommand = "command"
)

// Publisher kinds.
const (
	PublisherNone    = "none"
	PublisherDir     = "dir"
	PublisherCommand = "command"
)

// FetcherConfig selects and tunes the component that writes RawDataFiles.
type FetcherConfig struct {
	// Kind is FetcherWindguru or FetcherCommand.
	Kind string

	// Command is the external program run by the command fetcher.
	// The first element is the executable.
	Command []string

	// BaseURL is the forecast site root; the site ID is appended as a path.
	BaseURL string

	// Concurrency is the number of sites fetched in parallel.
	Concurrency int

	// PageTimeout bounds the load of one forecast page.
	PageTimeout time.Duration

	// SettleDelay is waited after the tables appear.
	SettleDelay time.Duration

	// SitePause is waited between two site starts.
	SitePause time.Duration

	// BreakerFailures is the consecutive-failure count that opens the breaker.
	BreakerFailures int

	// ChromePath overrides the browser executable. Empty means auto-detect.
	ChromePath string

	// Headful shows the browser window. Useful only when debugging locally.
	Headful bool
}

// RendererConfig selects the component that writes the ReportFile.
type RendererConfig struct {
	// Kind is RendererHTML or RendererCommand.
	Kind string

	// Command is the external program run by the command renderer.
	Command []string
}

// PublisherConfig selects how the working directory reaches the host.
type PublisherConfig struct {
	// Kind is PublisherNone, PublisherDir or PublisherCommand.
	Kind string

	// Target is the symlink replaced by the dir publisher.
	Target string

	// KeepVersions is how many versions the dir publisher retains.
	KeepVersions int

	// Command is the deploy program of the command publisher.
	// The literal "{dir}" in any argument is replaced by the working directory.
	Command []string
}

// Config holds all runtime options for foilreport.
// It is populated from defaults, then the configuration file, then CLI flags,
// and passed down explicitly.
type Config struct {
	// WorkDir is the working directory of the pipeline.
	WorkDir string

	// Timezone is the IANA timezone of every human-facing label.
	Timezone string

	// StartTime overrides WORKFLOW_START_TIME. Empty means environment or now.
	StartTime string

	// Timeout bounds one pipeline run.
	Timeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches logs to JSON lines.
	JSONLog bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string

	// NoDeploy skips the deploy step regardless of the publisher.
	NoDeploy bool

	// MetricsFile is the Prometheus textfile written after each run.
	// Empty disables metrics output.
	MetricsFile string

	// SummaryFile receives the Markdown run summary. Empty disables it.
	SummaryFile string

	// DBDir holds the run history database.
	DBDir string

	// SaveHistory records every run in the history database.
	SaveHistory bool

	// Schedule is the cron expression used by the schedule command.
	Schedule string

	// Sites are the forecast spots, in report order.
	Sites []SiteConfig

	Fetcher   FetcherConfig
	Renderer  RendererConfig
	Publisher PublisherConfig
}

// NewConfig creates a Config with default values and the default spots.
func NewConfig() *Config {
	return &Config{
		WorkDir:     DefaultWorkDir,
		Timezone:    model.DefaultTimezone,
		Timeout:     DefaultTimeout,
		DBDir:       XDGDataDir(),
		SaveHistory: true,
		Schedule:    DefaultSchedule,
		Sites:       DefaultSites(),
		Fetcher: FetcherConfig{
			Kind:            FetcherWindguru,
			BaseURL:         DefaultBaseURL,
			Concurrency:     DefaultConcurrency,
			PageTimeout:     DefaultPageTimeout,
			SettleDelay:     DefaultSettleDelay,
			SitePause:       DefaultSitePause,
			BreakerFailures: DefaultBreakerFailures,
		},
		Renderer: RendererConfig{
			Kind: RendererHTML,
		},
		Publisher: PublisherConfig{
			Kind:         PublisherNone,
			KeepVersions: DefaultKeepVersions,
		},
	}
}

// XDGDataDir returns the XDG data directory for foilreport.
// On Linux: ~/.local/share/foilreport
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for foilreport.
// On Linux: ~/.config/foilreport
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SiteIDs returns the configured site identifiers in report order.
func (c *Config) SiteIDs() []string {
	ids := make([]string, 0, len(c.Sites))
	for _, s := range c.Sites {
		ids = append(ids, s.ID)
	}
	return ids
}

// Site returns the configuration of a site by ID.
func (c *Config) Site(id string) (SiteConfig, bool) {
	for _, s := range c.Sites {
		if s.ID == id {
			return s, true
		}
	}
	return SiteConfig{}, false
}

// Criteria returns the rating criteria of a site for a month (1-12).
func (c *Config) Criteria(siteID string, month int) (forecast.Criteria, bool) {
	s, ok := c.Site(siteID)
	if !ok {
		return forecast.Criteria{}, false
	}
	return s.Criteria(month), true
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return ErrNoWorkDir
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if len(c.Sites) == 0 {
		return ErrNoSites
	}

	seen := make(map[string]bool, len(c.Sites))
	for _, s := range c.Sites {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.ID] {
			return wrapSite(ErrDuplicateSite, s.ID)
		}
		seen[s.ID] = true
	}

	switch c.Fetcher.Kind {
	case FetcherWindguru:
		if c.Fetcher.Concurrency <= 0 {
			return ErrInvalidConcurrency
		}
		if c.Fetcher.PageTimeout <= 0 {
			return ErrInvalidTimeout
		}
		if c.Fetcher.SettleDelay < 0 || c.Fetcher.SitePause < 0 {
			return ErrInvalidDelay
		}
	case FetcherCommand:
		if len(c.Fetcher.Command) == 0 {
			return ErrMissingCommand
		}
	default:
		return wrapKind(ErrUnknownFetcher, c.Fetcher.Kind)
	}

	switch c.Renderer.Kind {
	case RendererHTML:
	case RendererCommand:
		if len(c.Renderer.Command) == 0 {
			return ErrMissingCommand
		}
	default:
		return wrapKind(ErrUnknownRenderer, c.Renderer.Kind)
	}

	switch c.Publisher.Kind {
	case PublisherNone:
	case PublisherDir:
		if c.Publisher.Target == "" {
			return ErrMissingTarget
		}
	case PublisherCommand:
		if len(c.Publisher.Command) == 0 {
			return ErrMissingCommand
		}
	default:
		return wrapKind(ErrUnknownPublisher, c.Publisher.Kind)
	}

	return nil
}
