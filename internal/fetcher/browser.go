package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// readySelector is the element that marks a rendered forecast page.
const readySelector = "table.tabulka"

// BrowserOptions configures a BrowserLoader.
type BrowserOptions struct {
	// PageTimeout bounds the load of one page, including the settle delay.
	PageTimeout time.Duration

	// SettleDelay is waited after the forecast tables appear.
	SettleDelay time.Duration

	// ChromePath overrides the browser executable.
	ChromePath string

	// Headful shows the browser window.
	Headful bool

	// Logger receives browser debug output.
	Logger *slog.Logger
}

// BrowserLoader renders pages in a shared headless Chrome, one tab per load.
// The browser starts lazily on the first Load and stops on Close.
type BrowserLoader struct {
	opts BrowserOptions

	once          sync.Once
	startErr      error
	allocCancel   context.CancelFunc
	browserCtx    context.Context //nolint:containedctx // the browser outlives single calls
	browserCancel context.CancelFunc
}

// NewBrowserLoader creates a loader. No browser is started yet.
func NewBrowserLoader(opts BrowserOptions) *BrowserLoader {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &BrowserLoader{opts: opts}
}

func (b *BrowserLoader) start() error {
	b.once.Do(func() {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", !b.opts.Headful),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(`Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36`),
		)
		if b.opts.ChromePath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ChromePath))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
		logger := b.opts.Logger
		browserCtx, browserCancel := chromedp.NewContext(allocCtx,
			chromedp.WithDebugf(func(format string, args ...any) {
				logger.Debug(fmt.Sprintf(format, args...))
			}),
		)

		// Running with no actions launches the browser.
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			b.startErr = fmt.Errorf("failed to start browser: %w", err)
			return
		}

		b.allocCancel = allocCancel
		b.browserCtx = browserCtx
		b.browserCancel = browserCancel
	})
	return b.startErr
}

// Load opens url in a new tab with the browser clock set to the run
// timezone, waits for the forecast tables and returns the page HTML.
func (b *BrowserLoader) Load(ctx context.Context, rc model.RunContext, url string) (string, error) {
	if err := b.start(); err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.PageTimeout)
	defer cancelTimeout()

	var page string
	err := chromedp.Run(tabCtx,
		emulation.SetTimezoneOverride(rc.Timezone()),
		chromedp.Navigate(url),
		chromedp.WaitReady(readySelector, chromedp.ByQuery),
		chromedp.Sleep(b.opts.SettleDelay),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return page, nil
}

// Close stops the browser.
func (b *BrowserLoader) Close() error {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}
