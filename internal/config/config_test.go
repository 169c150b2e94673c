package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default WorkDir is public", func(t *testing.T) {
		t.Parallel()
		if cfg.WorkDir != "public" {
			t.Errorf("expected WorkDir to be 'public', got '%s'", cfg.WorkDir)
		}
	})

	t.Run("default Timezone is Europe/Paris", func(t *testing.T) {
		t.Parallel()
		if cfg.Timezone != "Europe/Paris" {
			t.Errorf("expected Europe/Paris, got '%s'", cfg.Timezone)
		}
	})

	t.Run("default Timeout is 15 minutes", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 15*time.Minute {
			t.Errorf("expected Timeout to be 15m, got %v", cfg.Timeout)
		}
	})

	t.Run("default sites are the six spots", func(t *testing.T) {
		t.Parallel()
		want := []string{"72305", "193", "314", "28061", "179", "14"}
		got := cfg.SiteIDs()
		if len(got) != len(want) {
			t.Fatalf("expected %d sites, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("site %d: expected %s, got %s", i, want[i], got[i])
			}
		}
	})

	t.Run("default fetcher is windguru", func(t *testing.T) {
		t.Parallel()
		if cfg.Fetcher.Kind != FetcherWindguru || cfg.Fetcher.Concurrency != 3 {
			t.Errorf("unexpected fetcher defaults %+v", cfg.Fetcher)
		}
		if cfg.Fetcher.SettleDelay != 500*time.Millisecond {
			t.Errorf("expected 500ms settle delay, got %v", cfg.Fetcher.SettleDelay)
		}
	})

	t.Run("default publisher is none", func(t *testing.T) {
		t.Parallel()
		if cfg.Publisher.Kind != PublisherNone {
			t.Errorf("expected none publisher, got %q", cfg.Publisher.Kind)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case breaks exactly one rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{
			name:    "empty workdir",
			modify:  func(c *Config) { c.WorkDir = "" },
			wantErr: ErrNoWorkDir,
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "no sites",
			modify:  func(c *Config) { c.Sites = nil },
			wantErr: ErrNoSites,
		},
		{
			name:    "duplicate site",
			modify:  func(c *Config) { c.Sites = append(c.Sites, c.Sites[0]) },
			wantErr: ErrDuplicateSite,
		},
		{
			name:    "site without id",
			modify:  func(c *Config) { c.Sites[0].ID = "" },
			wantErr: ErrInvalidSite,
		},
		{
			name:    "site id with underscore",
			modify:  func(c *Config) { c.Sites[0].ID = "my_spot" },
			wantErr: ErrInvalidSite,
		},
		{
			name:    "site id with path separator",
			modify:  func(c *Config) { c.Sites[0].ID = "../72305" },
			wantErr: ErrInvalidSite,
		},
		{
			name:    "decreasing thresholds",
			modify:  func(c *Config) { c.Sites[0].Wind = WindThresholds{15, 11, 9} },
			wantErr: ErrInvalidSite,
		},
		{
			name:    "zero concurrency",
			modify:  func(c *Config) { c.Fetcher.Concurrency = 0 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "negative pause",
			modify:  func(c *Config) { c.Fetcher.SitePause = -time.Second },
			wantErr: ErrInvalidDelay,
		},
		{
			name:    "command fetcher without command",
			modify:  func(c *Config) { c.Fetcher.Kind = FetcherCommand },
			wantErr: ErrMissingCommand,
		},
		{
			name:    "unknown renderer",
			modify:  func(c *Config) { c.Renderer.Kind = "pdf" },
			wantErr: ErrUnknownRenderer,
		},
		{
			name:    "dir publisher without target",
			modify:  func(c *Config) { c.Publisher.Kind = PublisherDir },
			wantErr: ErrMissingTarget,
		},
		{
			name:    "unknown publisher",
			modify:  func(c *Config) { c.Publisher.Kind = "ftp" },
			wantErr: ErrUnknownPublisher,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestSiteCriteria tests seasonal overrides.
func TestSiteCriteria(t *testing.T) {
	t.Parallel()

	site := SiteConfig{
		ID:         "179",
		Directions: [][]float64{{320, 40}},
		Wind:       WindThresholds{14, 17, 20},
		Seasons: []Season{
			{Months: []int{6, 7, 8}, Wind: &WindThresholds{10, 13, 16}},
		},
	}

	t.Run("base criteria outside the season", func(t *testing.T) {
		t.Parallel()

		c := site.Criteria(1)
		if c.Medium != 14 || c.Excellent != 20 {
			t.Errorf("unexpected thresholds %+v", c)
		}
		if len(c.Directions) != 1 || c.Directions[0].From != 320 {
			t.Errorf("unexpected directions %+v", c.Directions)
		}
	})

	t.Run("seasonal thresholds in summer", func(t *testing.T) {
		t.Parallel()

		c := site.Criteria(7)
		if c.Medium != 10 || c.Good != 13 {
			t.Errorf("expected summer thresholds, got %+v", c)
		}
		if len(c.Directions) != 1 {
			t.Error("expected base directions to be kept")
		}
	})

	t.Run("invalid month is rejected", func(t *testing.T) {
		t.Parallel()

		bad := site
		bad.Seasons = []Season{{Months: []int{13}}}
		if err := bad.Validate(); !errors.Is(err, ErrInvalidSite) {
			t.Errorf("expected ErrInvalidSite, got %v", err)
		}
	})

	t.Run("malformed direction pair is rejected", func(t *testing.T) {
		t.Parallel()

		bad := site
		bad.Directions = [][]float64{{320}}
		if err := bad.Validate(); !errors.Is(err, ErrInvalidSite) {
			t.Errorf("expected ErrInvalidSite, got %v", err)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.foilreport")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".foilreport")

		content := `workDir: site
timezone: Europe/Zurich
timeout: 5m
history: false
sites:
  - id: "179"
    name: Lac Léman
    directions: [[320, 40]]
    wind: {medium: 14, good: 17, excellent: 20}
    seasons:
      - months: [6, 7, 8]
        wind: {medium: 10, good: 13, excellent: 16}
fetcher:
  concurrency: 2
  settleDelay: 1s
publisher:
  kind: command
  command: ["netlify", "deploy", "--dir", "{dir}", "--prod"]
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		cfg.Apply(cf)

		if cfg.WorkDir != "site" || cfg.Timezone != "Europe/Zurich" {
			t.Errorf("unexpected workdir/timezone %q %q", cfg.WorkDir, cfg.Timezone)
		}
		if cfg.Timeout != 5*time.Minute {
			t.Errorf("expected 5m timeout, got %v", cfg.Timeout)
		}
		if cfg.SaveHistory {
			t.Error("expected history to be disabled")
		}
		if len(cfg.Sites) != 1 || cfg.Sites[0].Name != "Lac Léman" {
			t.Fatalf("unexpected sites %+v", cfg.Sites)
		}
		if cfg.Sites[0].Criteria(7).Medium != 10 {
			t.Error("expected seasonal override to load")
		}
		if cfg.Fetcher.Concurrency != 2 || cfg.Fetcher.SettleDelay != time.Second {
			t.Errorf("unexpected fetcher %+v", cfg.Fetcher)
		}
		if cfg.Fetcher.PageTimeout != DefaultPageTimeout {
			t.Error("expected untouched fields to keep defaults")
		}
		if cfg.Publisher.Kind != PublisherCommand || len(cfg.Publisher.Command) != 5 {
			t.Errorf("unexpected publisher %+v", cfg.Publisher)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected loaded config to validate, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".foilreport")

		content := `invalid: yaml: content: [}`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestApplyNil tests that a nil file leaves defaults alone.
func TestApplyNil(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Apply(nil)
	if cfg.WorkDir != DefaultWorkDir {
		t.Errorf("expected default workdir, got %q", cfg.WorkDir)
	}
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "custom.yaml")

		if err := os.WriteFile(configPath, []byte("timezone: UTC"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		result := FindConfigFile(configPath)
		if result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		result := FindConfigFile("/nonexistent/path/config.yaml")
		if result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds the file in the current directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(tmpDir, DefaultConfigFile), []byte("timezone: UTC"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		t.Chdir(tmpDir)

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile {
			t.Errorf("expected %s in cwd, got %q", DefaultConfigFile, result)
		}
	})
}

// TestLoadDotEnv tests optional .env loading.
func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is not an error", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("loads variables without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "FOILREPORT_TEST_A=from-file\nFOILREPORT_TEST_B=from-file\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("FOILREPORT_TEST_B", "from-env")
		t.Cleanup(func() { _ = os.Unsetenv("FOILREPORT_TEST_A") })

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if os.Getenv("FOILREPORT_TEST_A") != "from-file" {
			t.Error("expected variable from file")
		}
		if os.Getenv("FOILREPORT_TEST_B") != "from-env" {
			t.Error("expected environment to win")
		}
	})
}

// TestApplyEnv tests the CI workflow variables.
// Not parallel: it sets environment variables.
func TestApplyEnv(t *testing.T) {
	t.Run("overrides timezone and start time", func(t *testing.T) {
		t.Setenv("WORKFLOW_TIMEZONE", "UTC")
		t.Setenv("WORKFLOW_START_TIME", "2024-05-01 04:00:00 UTC")

		cfg := NewConfig()
		cfg.ApplyEnv()
		if cfg.Timezone != "UTC" {
			t.Errorf("expected UTC, got %q", cfg.Timezone)
		}
		if cfg.StartTime != "2024-05-01 04:00:00 UTC" {
			t.Errorf("unexpected start time %q", cfg.StartTime)
		}
	})

	t.Run("ignores malformed start time", func(t *testing.T) {
		t.Setenv("WORKFLOW_TIMEZONE", "")
		t.Setenv("WORKFLOW_START_TIME", "yesterday-ish")

		cfg := NewConfig()
		cfg.ApplyEnv()
		if cfg.StartTime != "" {
			t.Errorf("expected no start time, got %q", cfg.StartTime)
		}
		if cfg.Timezone != "Europe/Paris" {
			t.Errorf("expected default timezone, got %q", cfg.Timezone)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if XDGDataDir() == "" {
		t.Error("expected non-empty XDG data dir")
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected config dir to end with %s, got %q", AppName, XDGConfigDir())
	}
}

// TestConfigCriteria tests criteria lookup by site.
func TestConfigCriteria(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	c, ok := cfg.Criteria("179", 5)
	if !ok {
		t.Fatal("expected criteria for 179")
	}
	if c.Medium != 14 || c.Good != 17 || c.Excellent != 20 {
		t.Errorf("unexpected thresholds %+v", c)
	}
	if _, ok := cfg.Criteria("999", 5); ok {
		t.Error("expected no criteria for unknown site")
	}
}
