package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsGate resolves and caches robots.txt per host and decides whether a
// fetch is permitted. It never returns an error: every failure path degrades
// to allowed with a diagnostic reason, because an inability to verify
// robots.txt must not block otherwise-legitimate crawling.
type RobotsGate struct {
	client *http.Client
	cache  sync.Map
	logger *zap.Logger
}

// NewRobotsGate builds a gate with a bounded robots.txt fetch timeout.
func NewRobotsGate(timeout time.Duration, logger *zap.Logger) *RobotsGate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RobotsGate{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Check decides allow/deny for rawURL and surfaces any crawl-delay directive.
// The delay is reported, not enforced here; the caller waits before fetching.
func (g *RobotsGate) Check(ctx context.Context, rawURL, userAgent string) RobotsDecision {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RobotsDecision{Allowed: true, Reason: fmt.Sprintf("unparseable url: %v", err)}
	}

	data, reason := g.load(ctx, parsed, userAgent)
	if data == nil {
		return RobotsDecision{Allowed: true, Reason: reason}
	}

	group := data.FindGroup(userAgent)
	if group == nil {
		return RobotsDecision{Allowed: true}
	}
	if !group.Test(parsed.Path) {
		return RobotsDecision{Allowed: false, Reason: "disallowed by robots.txt"}
	}
	return RobotsDecision{Allowed: true, CrawlDelay: group.CrawlDelay}
}

// load fetches and parses {origin}/robots.txt, caching per host. A nil result
// means the host has no usable robots file and everything is allowed.
func (g *RobotsGate) load(ctx context.Context, parsed *url.URL, userAgent string) (*robotstxt.RobotsData, string) {
	hostKey := strings.ToLower(parsed.Host)
	if cached, ok := g.cache.Load(hostKey); ok {
		entry, _ := cached.(*robotsCacheEntry)
		if entry == nil {
			return nil, "robots cache corrupt"
		}
		return entry.data, entry.reason
	}

	data, reason := g.fetch(ctx, parsed, userAgent)
	g.cache.Store(hostKey, &robotsCacheEntry{data: data, reason: reason})
	return data, reason
}

func (g *RobotsGate) fetch(ctx context.Context, parsed *url.URL, userAgent string) (*robotstxt.RobotsData, string) {
	robotsURL := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Sprintf("build robots request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("robots fetch failed; allowing access",
			zap.String("host", parsed.Host), zap.Error(err))
		return nil, fmt.Sprintf("robots.txt fetch failed: %v", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			g.logger.Debug("close robots body", zap.Error(cerr))
		}
	}()

	// Absence of a robots file is not a denial.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Sprintf("robots.txt returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Sprintf("read robots.txt: %v", err)
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Sprintf("parse robots.txt: %v", err)
	}
	return data, ""
}

type robotsCacheEntry struct {
	data   *robotstxt.RobotsData
	reason string
}
