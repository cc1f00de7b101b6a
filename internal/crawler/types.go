// Package crawler composes the politeness gate, the page fetcher, and the
// field extractors into a single per-URL crawl operation.
package crawler

import (
	"context"
	"net/http"
	"time"

	"github.com/confatlas/confcrawler/internal/extract"
)

// FetchOptions carries per-fetch knobs handed to a PageFetcher.
type FetchOptions struct {
	Timeout      time.Duration
	PostLoadWait time.Duration
	UserAgent    string
	ExtraHeaders map[string]string
}

// FetchResult is the outcome of one page load. Fetchers never return a Go
// error: every failure is folded into StatusCode 0 plus an Error string, and
// callers branch on the result shape only.
type FetchResult struct {
	URL        string
	HTML       string
	StatusCode int
	Error      string
	FetchedAt  time.Time
}

// PageFetcher loads a URL and returns the fully rendered HTML. The underlying
// session is acquired lazily, reused across calls, and must be released via
// Close on every exit path.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) FetchResult
	Close(ctx context.Context) error
}

// RobotsDecision is the politeness gate's verdict for one URL.
type RobotsDecision struct {
	Allowed    bool
	CrawlDelay time.Duration
	Reason     string
}

// RobotsChecker decides whether fetching a URL is permitted for a user agent.
type RobotsChecker interface {
	Check(ctx context.Context, rawURL, userAgent string) RobotsDecision
}

// Bundle is the merged output of the five field extractors.
type Bundle struct {
	BasicInfo  extract.BasicInfo
	Speakers   []extract.Speaker
	Exhibitors []extract.Exhibitor
	Pricing    extract.Pricing
	Contact    extract.Contact
}

// Result is the terminal outcome of one crawl invocation. Data is nil unless
// the fetch returned HTTP 200 and the page parsed.
type Result struct {
	URL        string
	HTML       string
	StatusCode int
	Error      string
	Denied     bool
	FetchedAt  time.Time
	Data       *Bundle
}

// Failed reports whether the crawl terminated without extractable content.
func (r Result) Failed() bool {
	return r.Error != "" || r.StatusCode != http.StatusOK
}
