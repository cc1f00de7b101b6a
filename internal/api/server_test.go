package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/model"
	"github.com/confatlas/confcrawler/internal/service"
	storememory "github.com/confatlas/confcrawler/internal/store/memory"
)

type fakeOrchestrator struct {
	byURL   map[string]service.Outcome
	byID    map[string]service.Outcome
	lastOpt service.Options
}

func (f *fakeOrchestrator) CrawlByURL(_ context.Context, rawURL string, opts service.Options) service.Outcome {
	f.lastOpt = opts
	if out, ok := f.byURL[rawURL]; ok {
		return out
	}
	return service.Outcome{Status: model.CrawlStatusFailed, Error: "unexpected url"}
}

func (f *fakeOrchestrator) CrawlByID(_ context.Context, id string, opts service.Options) service.Outcome {
	f.lastOpt = opts
	if out, ok := f.byID[id]; ok {
		return out
	}
	return service.Outcome{Status: model.CrawlStatusFailed, Error: "conference not found"}
}

func newTestServer(orch *fakeOrchestrator, logs *storememory.Store) *Server {
	return NewServer(orch, logs, time.Minute, zap.NewNop())
}

func TestServer_TriggerCrawlByURL(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{byURL: map[string]service.Outcome{
		"https://techconf.example.com": {
			Success:       true,
			ConferenceID:  "conf-1",
			ConferenceURL: "https://techconf.example.com",
			Status:        model.CrawlStatusSuccess,
			Stats:         service.Stats{SpeakersCreated: 3, TotalFields: model.TotalFieldCount},
		},
	}}
	server := newTestServer(orch, storememory.New())

	body := []byte(`{"url":"https://techconf.example.com","options":{"save_html_to_storage":true}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "conf-1")
	require.True(t, orch.lastOpt.SaveHTMLToStorage)
}

func TestServer_TriggerCrawlByID(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{byID: map[string]service.Outcome{
		"conf-1": {
			Success:      true,
			ConferenceID: "conf-1",
			Status:       model.CrawlStatusPartial,
		},
	}}
	server := newTestServer(orch, storememory.New())

	body := []byte(`{"conference_id":"conf-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"partial"`)
}

func TestServer_TriggerCrawlValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"neither field", `{}`},
		{"both fields", `{"url":"https://a.example.com","conference_id":"conf-1"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(&fakeOrchestrator{}, storememory.New())
			req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewReader([]byte(tc.body)))
			rec := httptest.NewRecorder()

			server.Handler().ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_TriggerCrawlFailureIsUnprocessable(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{byURL: map[string]service.Outcome{
		"https://techconf.example.com": {
			Status: model.CrawlStatusFailed,
			Error:  "disallowed by robots.txt rule",
		},
	}}
	server := newTestServer(orch, storememory.New())

	body := []byte(`{"url":"https://techconf.example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "robots")
}

func TestServer_ListCrawlLogsFiltersByStatus(t *testing.T) {
	t.Parallel()

	logs := storememory.New()
	confID := "conf-1"
	for _, status := range []model.CrawlStatus{model.CrawlStatusSuccess, model.CrawlStatusFailed} {
		require.NoError(t, logs.Append(context.Background(), model.CrawlLogEntry{
			ConferenceID: &confID,
			Status:       status,
			CrawledAt:    time.Unix(1700000000, 0).UTC(),
		}))
	}

	server := newTestServer(&fakeOrchestrator{}, logs)
	req := httptest.NewRequest(http.MethodGet, "/v1/crawl-logs?status=failed", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Entries []model.CrawlLogEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Entries, 1)
	require.Equal(t, model.CrawlStatusFailed, payload.Entries[0].Status)
}

func TestServer_ListCrawlLogsRejectsBadParams(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeOrchestrator{}, storememory.New())

	for _, target := range []string{
		"/v1/crawl-logs?status=bogus",
		"/v1/crawl-logs?limit=0",
		"/v1/crawl-logs?limit=nope",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := newTestServer(&fakeOrchestrator{}, storememory.New())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}
