package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".foilreport"

// xdgConfigFile is the file name looked up in the XDG config directory.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .foilreport configuration file.
// Every field is optional; zero values leave the defaults untouched.
type File struct {
	WorkDir   string        `yaml:"workDir,omitempty"`
	Timezone  string        `yaml:"timezone,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Schedule  string        `yaml:"schedule,omitempty"`
	History   *bool         `yaml:"history,omitempty"`
	DBDir     string        `yaml:"dbDir,omitempty"`
	Metrics   string        `yaml:"metricsFile,omitempty"`
	Sites     []SiteConfig  `yaml:"sites,omitempty"`
	Fetcher   FetcherFile   `yaml:"fetcher,omitempty"`
	Renderer  RendererFile  `yaml:"renderer,omitempty"`
	Publisher PublisherFile `yaml:"publisher,omitempty"`
}

// FetcherFile is the fetcher section of the configuration file.
type FetcherFile struct {
	Kind            string        `yaml:"kind,omitempty"`
	Command         []string      `yaml:"command,omitempty"`
	BaseURL         string        `yaml:"baseURL,omitempty"`
	Concurrency     int           `yaml:"concurrency,omitempty"`
	PageTimeout     time.Duration `yaml:"pageTimeout,omitempty"`
	SettleDelay     time.Duration `yaml:"settleDelay,omitempty"`
	SitePause       time.Duration `yaml:"sitePause,omitempty"`
	BreakerFailures int           `yaml:"breakerFailures,omitempty"`
	ChromePath      string        `yaml:"chromePath,omitempty"`
	Headful         bool          `yaml:"headful,omitempty"`
}

// RendererFile is the renderer section of the configuration file.
type RendererFile struct {
	Kind    string   `yaml:"kind,omitempty"`
	Command []string `yaml:"command,omitempty"`
}

// PublisherFile is the publisher section of the configuration file.
type PublisherFile struct {
	Kind         string   `yaml:"kind,omitempty"`
	Target       string   `yaml:"target,omitempty"`
	KeepVersions int      `yaml:"keepVersions,omitempty"`
	Command      []string `yaml:"command,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .foilreport in the current directory
// 3. Look for .foilreport in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// LoadDotEnv loads environment variables from the given .env files, or from
// ./.env when none is given. Missing files are not an error; variables
// already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Apply overlays the non-zero values of the file onto the configuration.
func (c *Config) Apply(cf *File) {
	if cf == nil {
		return
	}

	if cf.WorkDir != "" {
		c.WorkDir = cf.WorkDir
	}
	if cf.Timezone != "" {
		c.Timezone = cf.Timezone
	}
	if cf.Timeout != 0 {
		c.Timeout = cf.Timeout
	}
	if cf.Schedule != "" {
		c.Schedule = cf.Schedule
	}
	if cf.History != nil {
		c.SaveHistory = *cf.History
	}
	if cf.DBDir != "" {
		c.DBDir = cf.DBDir
	}
	if cf.Metrics != "" {
		c.MetricsFile = cf.Metrics
	}
	if len(cf.Sites) > 0 {
		c.Sites = cf.Sites
	}

	f := cf.Fetcher
	if f.Kind != "" {
		c.Fetcher.Kind = f.Kind
	}
	if len(f.Command) > 0 {
		c.Fetcher.Command = f.Command
	}
	if f.BaseURL != "" {
		c.Fetcher.BaseURL = f.BaseURL
	}
	if f.Concurrency != 0 {
		c.Fetcher.Concurrency = f.Concurrency
	}
	if f.PageTimeout != 0 {
		c.Fetcher.PageTimeout = f.PageTimeout
	}
	if f.SettleDelay != 0 {
		c.Fetcher.SettleDelay = f.SettleDelay
	}
	if f.SitePause != 0 {
		c.Fetcher.SitePause = f.SitePause
	}
	if f.BreakerFailures != 0 {
		c.Fetcher.BreakerFailures = f.BreakerFailures
	}
	if f.ChromePath != "" {
		c.Fetcher.ChromePath = f.ChromePath
	}
	if f.Headful {
		c.Fetcher.Headful = true
	}

	if cf.Renderer.Kind != "" {
		c.Renderer.Kind = cf.Renderer.Kind
	}
	if len(cf.Renderer.Command) > 0 {
		c.Renderer.Command = cf.Renderer.Command
	}

	p := cf.Publisher
	if p.Kind != "" {
		c.Publisher.Kind = p.Kind
	}
	if p.Target != "" {
		c.Publisher.Target = p.Target
	}
	if p.KeepVersions != 0 {
		c.Publisher.KeepVersions = p.KeepVersions
	}
	if len(p.Command) > 0 {
		c.Publisher.Command = p.Command
	}
}

// ApplyEnv overlays the CI workflow variables WORKFLOW_START_TIME and
// WORKFLOW_TIMEZONE. A start time that does not parse is ignored, so the run
// starts now.
func (c *Config) ApplyEnv() {
	if tz := os.Getenv(model.EnvTimezone); tz != "" {
		c.Timezone = tz
	}
	if raw := os.Getenv(model.EnvStartTime); raw != "" {
		if _, err := model.ParseStartTime(raw); err == nil {
			c.StartTime = raw
		}
	}
}
