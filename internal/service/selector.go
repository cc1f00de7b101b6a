package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/model"
)

// SelectStale returns the conferences due for a re-crawl: never crawled, or
// last crawled before the configured staleness window.
func (s *Service) SelectStale(ctx context.Context) ([]model.ConferenceRecord, error) {
	cutoff := s.clock.Now().Add(-s.cfg.StaleAfter)
	return s.conferences.SelectStale(ctx, cutoff, s.cfg.BatchLimit)
}

// RunBatch crawls the given URLs sequentially with a fixed delay between
// crawls. Fetches never run concurrently: the browser session is shared and
// target servers are not hammered. A cancelled context stops the batch early.
func (s *Service) RunBatch(ctx context.Context, urls []string, opts Options) []Outcome {
	outcomes := make([]Outcome, 0, len(urls))
	for i, rawURL := range urls {
		if i > 0 && s.cfg.InterCrawlDelay > 0 {
			if !sleepCtx(ctx, s.cfg.InterCrawlDelay) {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, s.CrawlByURL(ctx, rawURL, opts))
	}
	return outcomes
}

// RunStale selects stale conferences and crawls them as one batch.
func (s *Service) RunStale(ctx context.Context, opts Options) ([]Outcome, error) {
	stale, err := s.SelectStale(ctx)
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		s.logger.Info("no stale conferences to crawl")
		return nil, nil
	}

	urls := make([]string, 0, len(stale))
	for _, rec := range stale {
		urls = append(urls, rec.URL)
	}
	s.logger.Info("starting stale re-crawl batch", zap.Int("count", len(urls)))
	return s.RunBatch(ctx, urls, opts), nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
