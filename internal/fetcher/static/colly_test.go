package static

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/crawler"
)

func newFetchServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestStaticFetchReturnsRenderedPage(t *testing.T) {
	t.Parallel()

	var gotAgent, gotHeader string
	srv := newFetchServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		gotHeader = r.Header.Get("X-Crawl-Run")
		_, _ = w.Write([]byte("<html><body><h1>TechConf 2026</h1></body></html>"))
	})

	f := New(Config{UserAgent: "confcrawler-bot"}, zap.NewNop())
	result := f.Fetch(context.Background(), srv.URL, crawler.FetchOptions{
		Timeout:      5 * time.Second,
		UserAgent:    "confcrawler-bot/0.1",
		ExtraHeaders: map[string]string{"X-Crawl-Run": "batch-7"},
	})

	require.Empty(t, result.Error)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Contains(t, result.HTML, "TechConf 2026")
	require.Equal(t, "confcrawler-bot/0.1", gotAgent)
	require.Equal(t, "batch-7", gotHeader)
	require.False(t, result.FetchedAt.IsZero())
}

func TestStaticFetchKeepsNon200Body(t *testing.T) {
	t.Parallel()

	srv := newFetchServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><body>page moved</body></html>"))
	})

	f := New(Config{UserAgent: "confcrawler-bot"}, zap.NewNop())
	result := f.Fetch(context.Background(), srv.URL, crawler.FetchOptions{Timeout: 5 * time.Second})

	require.Equal(t, http.StatusNotFound, result.StatusCode)
	require.Contains(t, result.HTML, "page moved")
	require.NotEmpty(t, result.Error)
}

func TestStaticFetchUnreachableHost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	f := New(Config{UserAgent: "confcrawler-bot"}, zap.NewNop())
	result := f.Fetch(context.Background(), srv.URL, crawler.FetchOptions{Timeout: time.Second})

	require.NotEmpty(t, result.Error)
	require.Zero(t, result.StatusCode)
	require.Empty(t, result.HTML)
}

func TestStaticFetcherCloseIsNoOp(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "confcrawler-bot"}, zap.NewNop())
	require.NoError(t, f.Close(context.Background()))
}
