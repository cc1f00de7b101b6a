// Package static implements the page fetcher with plain HTTP via Colly, for
// conference sites that render server-side and need no JavaScript.
package static

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/crawler"
)

// Config controls the static fetcher.
type Config struct {
	UserAgent      string
	RequestTimeout time.Duration
}

// Fetcher fetches pages over plain HTTP using a Colly collector.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a static Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

type collectResult struct {
	statusCode int
	body       []byte
	err        error
}

// Fetch retrieves rawURL. Like the headless fetcher it never returns a Go
// error; failures are carried in the result.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts crawler.FetchOptions) crawler.FetchResult {
	result := crawler.FetchResult{URL: rawURL, FetchedAt: time.Now().UTC()}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = f.cfg.UserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.cfg.RequestTimeout
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	// Robots enforcement happens in the politeness gate before any fetch.
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(timeout)

	if len(opts.ExtraHeaders) > 0 {
		collector.OnRequest(func(r *colly.Request) {
			for key, value := range opts.ExtraHeaders {
				r.Headers.Set(key, value)
			}
		})
	}

	resultCh := make(chan collectResult, 1)
	var once sync.Once
	send := func(res collectResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(collectResult{
			statusCode: r.StatusCode,
			body:       append([]byte(nil), r.Body...),
		})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		// Whatever HTML arrived still gets returned; the caller treats
		// non-200 as a failed crawl regardless.
		status := 0
		var body []byte
		if r != nil {
			status = r.StatusCode
			body = append([]byte(nil), r.Body...)
		}
		send(collectResult{statusCode: status, body: body, err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		result.Error = err.Error()
		return result
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		result.StatusCode = res.statusCode
		result.HTML = string(res.body)
		if res.err != nil {
			result.Error = res.err.Error()
			f.logger.Debug("static fetch failed", zap.String("url", rawURL), zap.Error(res.err))
		}
		if ctxErr := ctx.Err(); ctxErr != nil && result.Error == "" {
			result.Error = ctxErr.Error()
		}
		return result
	default:
		result.Error = "fetch produced no result"
		return result
	}
}

// Close satisfies crawler.PageFetcher; the static fetcher holds no session.
func (f *Fetcher) Close(_ context.Context) error {
	return nil
}
