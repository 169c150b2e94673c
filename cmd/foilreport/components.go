package main

import (
	"fmt"
	"log/slog"

	"github.com/LeCoonEtSaBande/foil-report/internal/config"
	"github.com/LeCoonEtSaBande/foil-report/internal/fetcher"
	"github.com/LeCoonEtSaBande/foil-report/internal/pipeline"
	"github.com/LeCoonEtSaBande/foil-report/internal/publish"
	"github.com/LeCoonEtSaBande/foil-report/internal/renderer"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

// newFetcher builds the configured fetcher. The returned cleanup function
// releases the browser, if one was started, and is never nil.
func newFetcher(cfg *config.Config, logger *slog.Logger) (fetcher.Fetcher, func(), error) {
	switch cfg.Fetcher.Kind {
	case config.FetcherWindguru:
		loader := fetcher.NewBrowserLoader(fetcher.BrowserOptions{
			PageTimeout: cfg.Fetcher.PageTimeout,
			SettleDelay: cfg.Fetcher.SettleDelay,
			ChromePath:  cfg.Fetcher.ChromePath,
			Headful:     cfg.Fetcher.Headful,
			Logger:      logger,
		})
		sites := make([]fetcher.Site, len(cfg.Sites))
		for i, s := range cfg.Sites {
			sites[i] = fetcher.Site{ID: s.ID, Name: s.Name}
		}
		f := fetcher.NewWindguruFetcher(loader, sites,
			fetcher.WithLogger(logger),
			fetcher.WithBaseURL(cfg.Fetcher.BaseURL),
			fetcher.WithConcurrency(cfg.Fetcher.Concurrency),
			fetcher.WithSitePause(cfg.Fetcher.SitePause),
			fetcher.WithBreakerFailures(cfg.Fetcher.BreakerFailures),
		)
		cleanup := func() {
			if err := loader.Close(); err != nil {
				logger.Warn("failed to stop browser", "error", err)
			}
		}
		return f, cleanup, nil
	case config.FetcherCommand:
		return fetcher.NewCommandFetcher(cfg.Fetcher.Command, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher.Kind)
	}
}

// newRenderer builds the configured renderer.
func newRenderer(cfg *config.Config, logger *slog.Logger) (renderer.Renderer, error) {
	switch cfg.Renderer.Kind {
	case config.RendererHTML:
		sites := make([]renderer.Site, len(cfg.Sites))
		for i, s := range cfg.Sites {
			sites[i] = renderer.Site{ID: s.ID, Name: s.Name}
		}
		return renderer.NewHTMLRenderer(sites, cfg, logger), nil
	case config.RendererCommand:
		return renderer.NewCommandRenderer(cfg.Renderer.Command, logger), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer.Kind)
	}
}

// newPublisher builds the configured publisher. It returns nil when nothing
// should be deployed, which leaves the deploy step out of the pipeline.
func newPublisher(cfg *config.Config, logger *slog.Logger) (publish.Publisher, error) {
	if cfg.NoDeploy {
		return nil, nil
	}
	switch cfg.Publisher.Kind {
	case config.PublisherNone:
		return nil, nil
	case config.PublisherDir:
		return publish.NewDirPublisher(cfg.Publisher.Target, cfg.Publisher.KeepVersions, logger), nil
	case config.PublisherCommand:
		return publish.NewCommandPublisher(cfg.Publisher.Command, nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown publisher %q", cfg.Publisher.Kind)
	}
}

// newComponents builds every collaborator of a publish pipeline.
func newComponents(cfg *config.Config, logger *slog.Logger) (pipeline.Components, func(), error) {
	dir, err := workdir.New(cfg.WorkDir)
	if err != nil {
		return pipeline.Components{}, nil, err
	}
	f, cleanup, err := newFetcher(cfg, logger)
	if err != nil {
		return pipeline.Components{}, nil, err
	}
	r, err := newRenderer(cfg, logger)
	if err != nil {
		cleanup()
		return pipeline.Components{}, nil, err
	}
	p, err := newPublisher(cfg, logger)
	if err != nil {
		cleanup()
		return pipeline.Components{}, nil, err
	}
	return pipeline.Components{Dir: dir, Fetcher: f, Renderer: r, Publisher: p}, cleanup, nil
}
