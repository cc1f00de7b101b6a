package crawler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGate struct {
	decision RobotsDecision
	calls    int
}

func (g *stubGate) Check(_ context.Context, _, _ string) RobotsDecision {
	g.calls++
	return g.decision
}

type stubFetcher struct {
	result FetchResult
	calls  int
	closed bool
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string, _ FetchOptions) FetchResult {
	f.calls++
	res := f.result
	res.URL = rawURL
	return res
}

func (f *stubFetcher) Close(context.Context) error {
	f.closed = true
	return nil
}

type recordingPause struct {
	delays []time.Duration
}

func (p *recordingPause) Pause(_ context.Context, delay time.Duration) {
	p.delays = append(p.delays, delay)
}

const crawlPageHTML = `<html><head><title>TechConf 2026</title></head><body>
	<h1>TechConf 2026</h1>
	<div class="speakers">
		<div class="speaker"><h3>Jane Smith</h3><p class="title">CTO</p></div>
	</div>
</body></html>`

func newTestCrawler(gate RobotsChecker, fetcher PageFetcher, cfg Config) *ConferenceCrawler {
	return New(gate, fetcher, cfg, zap.NewNop())
}

func TestCrawlExtractsBundleOnSuccess(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: FetchResult{
		HTML:       crawlPageHTML,
		StatusCode: http.StatusOK,
		FetchedAt:  time.Now().UTC(),
	}}
	c := newTestCrawler(&stubGate{decision: RobotsDecision{Allowed: true}}, fetcher, Config{UserAgent: "confcrawler-bot"})

	result := c.Crawl(context.Background(), "https://TechConf.Example.com/2026/")

	require.False(t, result.Failed())
	require.Equal(t, "https://techconf.example.com/2026", result.URL)
	require.NotNil(t, result.Data)
	require.Equal(t, "TechConf 2026", result.Data.BasicInfo.Name)
	require.Len(t, result.Data.Speakers, 1)
}

func TestCrawlDenialSkipsFetch(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	c := newTestCrawler(&stubGate{decision: RobotsDecision{Allowed: false, Reason: "disallowed by robots.txt"}}, fetcher, Config{UserAgent: "confcrawler-bot"})

	result := c.Crawl(context.Background(), "https://techconf.example.com/2026")

	require.True(t, result.Denied)
	require.True(t, result.Failed())
	require.Contains(t, result.Error, "disallowed")
	require.Zero(t, fetcher.calls)
	require.Nil(t, result.Data)
}

func TestCrawlNon200IsFailure(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: FetchResult{
		HTML:       "<html><body>gone</body></html>",
		StatusCode: http.StatusNotFound,
		FetchedAt:  time.Now().UTC(),
	}}
	c := newTestCrawler(&stubGate{decision: RobotsDecision{Allowed: true}}, fetcher, Config{UserAgent: "confcrawler-bot"})

	result := c.Crawl(context.Background(), "https://techconf.example.com/2026")

	require.True(t, result.Failed())
	require.Equal(t, "HTTP 404", result.Error)
	require.Nil(t, result.Data)
	require.NotEmpty(t, result.HTML, "body is kept for diagnostics")
}

func TestCrawlFetchErrorIsFailure(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: FetchResult{Error: "context deadline exceeded", FetchedAt: time.Now().UTC()}}
	c := newTestCrawler(&stubGate{decision: RobotsDecision{Allowed: true}}, fetcher, Config{UserAgent: "confcrawler-bot"})

	result := c.Crawl(context.Background(), "https://techconf.example.com/2026")

	require.True(t, result.Failed())
	require.Equal(t, "context deadline exceeded", result.Error)
	require.Nil(t, result.Data)
}

func TestCrawlInvalidURLSkipsGateAndFetch(t *testing.T) {
	t.Parallel()

	gate := &stubGate{decision: RobotsDecision{Allowed: true}}
	fetcher := &stubFetcher{}
	c := newTestCrawler(gate, fetcher, Config{UserAgent: "confcrawler-bot"})

	result := c.Crawl(context.Background(), "ftp://techconf.example.com/2026")

	require.True(t, result.Failed())
	require.Contains(t, result.Error, "normalize url")
	require.Zero(t, gate.calls)
	require.Zero(t, fetcher.calls)
}

func TestCrawlClampsCrawlDelay(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: FetchResult{HTML: crawlPageHTML, StatusCode: http.StatusOK}}
	c := newTestCrawler(&stubGate{decision: RobotsDecision{Allowed: true, CrawlDelay: 90 * time.Second}}, fetcher, Config{
		UserAgent:     "confcrawler-bot",
		MaxCrawlDelay: 10 * time.Second,
	})
	pause := &recordingPause{}
	c.pause = pause

	result := c.Crawl(context.Background(), "https://techconf.example.com/2026")

	require.False(t, result.Failed())
	require.Equal(t, []time.Duration{10 * time.Second}, pause.delays)
}

func TestCrawlCloseReleasesFetcher(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	c := newTestCrawler(&stubGate{decision: RobotsDecision{Allowed: true}}, fetcher, Config{UserAgent: "confcrawler-bot"})

	require.NoError(t, c.Close(context.Background()))
	require.True(t, fetcher.closed)
}
