package headless

import (
	"context"
	"sync"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/crawler"
)

func TestCloseWithoutLaunchIsNoOp(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "confcrawler-bot"}, zap.NewNop())
	require.NoError(t, f.Close(context.Background()))
	require.NoError(t, f.Close(context.Background()), "Close is idempotent")
}

func TestFetchAfterCloseFails(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "confcrawler-bot"}, zap.NewNop())
	require.NoError(t, f.Close(context.Background()))

	result := f.Fetch(context.Background(), "https://techconf.example.com/", crawler.FetchOptions{})
	require.Contains(t, result.Error, "fetcher is closed")
	require.Zero(t, result.StatusCode)
}

func TestResponseMetaKeepsFirstDocumentStatus(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 500},
	})
	require.Zero(t, meta.status(), "non-document responses are ignored")

	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 301},
	})
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200},
	})
	require.Equal(t, 301, meta.status())
}

func TestResponseMetaConcurrentCapture(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta.captureEvent(&network.EventResponseReceived{
				Type:     network.ResourceTypeDocument,
				Response: &network.Response{Status: 200},
			})
			_ = meta.status()
		}()
	}
	wg.Wait()
	require.Equal(t, 200, meta.status())
}

func TestForwardCancelPropagates(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	task, cancelTask := context.WithCancel(context.Background())
	defer cancelTask()

	stop := forwardCancel(parent, cancelTask)
	defer stop()

	cancelParent()
	<-task.Done()
	require.ErrorIs(t, task.Err(), context.Canceled)
}
