package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/forecast"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

// PageLoader returns the rendered HTML of a page.
type PageLoader interface {
	Load(ctx context.Context, rc model.RunContext, url string) (string, error)
}

// WindguruFetcher fetches every configured spot from Windguru.
//
// Sites are fetched concurrently up to a limit, with a pause between two
// site starts. A circuit breaker stops hammering the source once several
// sites in a row failed to load; the remaining sites then fail fast.
type WindguruFetcher struct {
	loader      PageLoader
	sites       []Site
	baseURL     string
	concurrency int
	pause       time.Duration
	failures    uint32
	logger      *slog.Logger
}

// Option configures a WindguruFetcher.
type Option func(*WindguruFetcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *WindguruFetcher) {
		f.logger = logger
	}
}

// WithBaseURL sets the forecast site root.
func WithBaseURL(u string) Option {
	return func(f *WindguruFetcher) {
		f.baseURL = strings.TrimRight(u, "/")
	}
}

// WithConcurrency sets how many sites load in parallel.
func WithConcurrency(n int) Option {
	return func(f *WindguruFetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithSitePause sets the delay between two site starts.
func WithSitePause(d time.Duration) Option {
	return func(f *WindguruFetcher) {
		f.pause = d
	}
}

// WithBreakerFailures sets the consecutive failures that open the breaker.
// Zero disables the breaker.
func WithBreakerFailures(n int) Option {
	return func(f *WindguruFetcher) {
		if n >= 0 {
			f.failures = uint32(n) //nolint:gosec // bounded by the check above
		}
	}
}

// NewWindguruFetcher creates a fetcher for the given sites.
func NewWindguruFetcher(loader PageLoader, sites []Site, opts ...Option) *WindguruFetcher {
	f := &WindguruFetcher{
		loader:      loader,
		sites:       sites,
		baseURL:     "https://www.windguru.cz",
		concurrency: 3,
		failures:    3,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *WindguruFetcher) newBreaker() *gobreaker.CircuitBreaker {
	threshold := f.failures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "windguru",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Fetch loads every site and writes a RawDataFile per site with a WG forecast.
// Site failures do not fail the fetch; only cancellation does.
func (f *WindguruFetcher) Fetch(ctx context.Context, rc model.RunContext, dir *workdir.Dir) (*Result, error) {
	breaker := f.newBreaker()
	written := make([]string, len(f.sites))
	var (
		mu     sync.Mutex
		failed []SiteFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, site := range f.sites {
		if i > 0 && f.pause > 0 {
			select {
			case <-gctx.Done():
			case <-time.After(f.pause):
			}
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			name, err := f.fetchSite(gctx, breaker, rc, dir, site)
			if err != nil {
				f.logger.Warn("site fetch failed", "site", site.ID, "error", err)
				mu.Lock()
				failed = append(failed, SiteFailure{SiteID: site.ID, Err: err})
				mu.Unlock()
				return nil
			}
			f.logger.Info("site fetched", "site", site.ID, "file", name)
			written[i] = name
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch interrupted: %w", err)
	}

	res := &Result{}
	for _, name := range written {
		if name != "" {
			res.Written = append(res.Written, name)
		}
	}
	res.Failed = failed
	return res, nil
}

// fetchSite loads, parses and stores one site.
func (f *WindguruFetcher) fetchSite(ctx context.Context, breaker *gobreaker.CircuitBreaker, rc model.RunContext, dir *workdir.Dir, site Site) (string, error) {
	url := f.baseURL + "/" + site.ID

	result, err := breaker.Execute(func() (interface{}, error) {
		return f.loader.Load(ctx, rc, url)
	})
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}
	page, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected page type %T", result)
	}

	sf, err := ParseForecastPage(strings.NewReader(page), site.ID, rc.UpdateLabel())
	if err != nil {
		return "", err
	}
	if sf.SiteName == "" {
		sf.SiteName = site.Name
	}
	if sf.SiteName == "" {
		sf.SiteName = "Site " + site.ID
	}
	if _, ok := sf.Model(forecast.ModelAROME); !ok {
		f.logger.Debug("AROME forecast missing", "site", site.ID)
	}

	var buf bytes.Buffer
	if err := forecast.WriteCSV(&buf, sf); err != nil {
		return "", err
	}
	name := workdir.RawDataName(site.ID)
	if err := dir.WriteFileAtomic(name, buf.Bytes()); err != nil {
		return "", err
	}
	return name, nil
}
