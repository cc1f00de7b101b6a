// Package headless implements the page fetcher on top of chromedp and
// headless Chrome.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/crawler"
)

// Config controls the headless fetcher.
type Config struct {
	UserAgent  string
	NavTimeout time.Duration
}

// Fetcher renders pages with a headless browser. The browser process is
// started lazily on the first Fetch, shared across sequential fetches, and
// torn down by Close. Leaking it exhausts process resources on repeated
// invocations, so Close must run on every exit path.
type Fetcher struct {
	mu            sync.Mutex
	cfg           Config
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	started       bool
	closed        bool
}

// New creates a headless Fetcher. No browser is launched until the first
// Fetch call.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// Fetch navigates to rawURL, waits for the body plus a fixed post-load grace
// period for client-side-rendered content, and returns the rendered DOM.
// Failures never surface as Go errors; they are folded into the result.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts crawler.FetchOptions) crawler.FetchResult {
	result := crawler.FetchResult{URL: rawURL, FetchedAt: time.Now().UTC()}

	browserCtx, err := f.ensureBrowser()
	if err != nil {
		result.Error = fmt.Sprintf("start browser: %v", err)
		return result
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.cfg.NavTimeout
	}
	taskCtx, cancelTask := context.WithTimeout(tabCtx, timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	html, err := f.runNavigation(taskCtx, rawURL, opts)
	if err != nil {
		result.Error = fmt.Sprintf("navigate: %v", err)
		return result
	}

	result.HTML = html
	result.StatusCode = meta.status()
	if result.StatusCode == 0 {
		// The document response event can be missed for cached loads.
		result.StatusCode = http.StatusOK
	}
	return result
}

func (f *Fetcher) runNavigation(ctx context.Context, rawURL string, opts crawler.FetchOptions) (string, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = f.cfg.UserAgent
	}
	postLoadWait := opts.PostLoadWait

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
	}
	if userAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(userAgent))
	}
	if len(opts.ExtraHeaders) > 0 {
		tasks = append(tasks, network.SetExtraHTTPHeaders(toNetworkHeaders(opts.ExtraHeaders)))
	}
	tasks = append(tasks,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if postLoadWait > 0 {
		// Flat grace period for client-side rendering; there is no DOM
		// mutation observation.
		tasks = append(tasks, chromedp.Sleep(postLoadWait))
	}
	tasks = append(tasks, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

// ensureBrowser lazily launches the shared browser process.
func (f *Fetcher) ensureBrowser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("fetcher is closed")
	}
	if f.started {
		return f.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser warmup: %w", err)
	}

	f.allocCancel = allocCancel
	f.browserCtx = browserCtx
	f.browserCancel = browserCancel
	f.started = true
	f.logger.Info("headless browser started")
	return f.browserCtx, nil
}

// Close tears down the browser and allocator. Safe to call whether or not a
// browser was ever launched, and idempotent.
func (f *Fetcher) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if !f.started {
		return nil
	}
	f.browserCancel()
	f.allocCancel()
	f.logger.Info("headless browser stopped")
	return nil
}

// responseMeta records the status of the main document response. Events
// arrive on the CDP listener goroutine while status() is read by the caller,
// so access is mutex-guarded.
type responseMeta struct {
	mu         sync.Mutex
	captured   bool
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captured {
		return
	}
	m.captured = true
	m.statusCode = int(resp.Response.Status)
}

func (m *responseMeta) status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCode
}

func toNetworkHeaders(h map[string]string) network.Headers {
	headers := network.Headers{}
	for key, value := range h {
		headers[key] = value
	}
	return headers
}

// forwardCancel propagates cancellation from the caller's context into the
// chromedp task context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
