package crawler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/extract"
)

// Config controls ConferenceCrawler behavior.
type Config struct {
	UserAgent     string
	FetchTimeout  time.Duration
	PostLoadWait  time.Duration
	MaxCrawlDelay time.Duration
	ExtraHeaders  map[string]string
}

const (
	defaultFetchTimeout  = 60 * time.Second
	defaultPostLoadWait  = 3 * time.Second
	defaultMaxCrawlDelay = 30 * time.Second
)

// ConferenceCrawler runs the per-URL pipeline: normalize, robots check,
// crawl-delay wait, fetch, extract. Each invocation reaches a terminal
// outcome; there are no retries at this level.
type ConferenceCrawler struct {
	gate    RobotsChecker
	fetcher PageFetcher
	pause   pauseController
	logger  *zap.Logger
	cfg     Config
}

// New constructs a ConferenceCrawler.
func New(gate RobotsChecker, fetcher PageFetcher, cfg Config, logger *zap.Logger) *ConferenceCrawler {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.PostLoadWait <= 0 {
		cfg.PostLoadWait = defaultPostLoadWait
	}
	if cfg.MaxCrawlDelay <= 0 {
		cfg.MaxCrawlDelay = defaultMaxCrawlDelay
	}
	return &ConferenceCrawler{
		gate:    gate,
		fetcher: fetcher,
		pause:   &timerPauseController{},
		logger:  logger,
		cfg:     cfg,
	}
}

// Crawl executes one end-to-end crawl. All failure paths are represented in
// the returned Result; Crawl never returns an error.
func (c *ConferenceCrawler) Crawl(ctx context.Context, rawURL string) Result {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return Result{URL: rawURL, Error: fmt.Sprintf("normalize url: %v", err), FetchedAt: time.Now().UTC()}
	}

	decision := c.gate.Check(ctx, normalized, c.cfg.UserAgent)
	if !decision.Allowed {
		c.logger.Info("crawl denied by robots.txt",
			zap.String("url", normalized), zap.String("reason", decision.Reason))
		return Result{
			URL:       normalized,
			Error:     decision.Reason,
			Denied:    true,
			FetchedAt: time.Now().UTC(),
		}
	}

	if decision.CrawlDelay > 0 {
		delay := decision.CrawlDelay
		if delay > c.cfg.MaxCrawlDelay {
			delay = c.cfg.MaxCrawlDelay
		}
		c.logger.Debug("respecting crawl delay",
			zap.String("url", normalized), zap.Duration("delay", delay))
		c.pause.Pause(ctx, delay)
	}

	fetched := c.fetcher.Fetch(ctx, normalized, FetchOptions{
		Timeout:      c.cfg.FetchTimeout,
		PostLoadWait: c.cfg.PostLoadWait,
		UserAgent:    c.cfg.UserAgent,
		ExtraHeaders: c.cfg.ExtraHeaders,
	})

	result := Result{
		URL:        normalized,
		HTML:       fetched.HTML,
		StatusCode: fetched.StatusCode,
		Error:      fetched.Error,
		FetchedAt:  fetched.FetchedAt,
	}
	if fetched.Error != "" || fetched.StatusCode != http.StatusOK {
		if result.Error == "" {
			result.Error = fmt.Sprintf("HTTP %d", fetched.StatusCode)
		}
		return result
	}

	doc, err := extract.Parse(fetched.HTML)
	if err != nil {
		result.Error = fmt.Sprintf("parse page: %v", err)
		return result
	}

	result.Data = runExtractors(doc, normalized)
	return result
}

// Close releases the underlying fetcher session.
func (c *ConferenceCrawler) Close(ctx context.Context) error {
	return c.fetcher.Close(ctx)
}

// runExtractors runs the five extractors over the shared document. They are
// pure and order-independent, so they run concurrently.
func runExtractors(doc *extract.Document, sourceURL string) *Bundle {
	bundle := &Bundle{}
	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); bundle.BasicInfo = doc.BasicInfo() }()
	go func() { defer wg.Done(); bundle.Speakers = doc.Speakers() }()
	go func() { defer wg.Done(); bundle.Exhibitors = doc.Exhibitors() }()
	go func() { defer wg.Done(); bundle.Pricing = doc.Pricing(sourceURL) }()
	go func() { defer wg.Done(); bundle.Contact = doc.Contact(sourceURL) }()
	wg.Wait()
	return bundle
}

// pauseController abstracts how the crawler waits out a crawl delay.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (p *timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
