// Package store defines the persistence contracts consumed by the crawl
// orchestration service. The service treats these as pass-through
// collaborators: no caching, no transactions, last write wins.
package store

import (
	"context"
	"time"

	"github.com/confatlas/confcrawler/internal/model"
)

// ConferenceStore persists canonical conference records.
type ConferenceStore interface {
	// FindByURL looks up a record by its normalized URL. A missing record is
	// (nil, nil), not an error.
	FindByURL(ctx context.Context, url string) (*model.ConferenceRecord, error)

	// FindByID looks up a record by id. A missing record is (nil, nil).
	FindByID(ctx context.Context, id string) (*model.ConferenceRecord, error)

	// Insert creates a new record and fills in its ID.
	Insert(ctx context.Context, rec *model.ConferenceRecord) error

	// Update overwrites the stored record identified by rec.ID.
	Update(ctx context.Context, rec *model.ConferenceRecord) error

	// SelectStale returns up to limit records that were never crawled or were
	// last crawled before olderThan, oldest (nulls first) first.
	SelectStale(ctx context.Context, olderThan time.Time, limit int) ([]model.ConferenceRecord, error)
}

// SpeakerStore persists speaker child rows.
type SpeakerStore interface {
	InsertManySpeakers(ctx context.Context, speakers []model.Speaker) (int, error)
	DeleteSpeakersByConference(ctx context.Context, conferenceID string) error
}

// ExhibitorStore persists exhibitor child rows.
type ExhibitorStore interface {
	InsertManyExhibitors(ctx context.Context, exhibitors []model.Exhibitor) (int, error)
	DeleteExhibitorsByConference(ctx context.Context, conferenceID string) error
}

// CrawlLogStore persists the append-only crawl audit log.
type CrawlLogStore interface {
	Append(ctx context.Context, entry model.CrawlLogEntry) error

	// ListByStatus returns recent entries, newest first, optionally filtered
	// by status ("" means all).
	ListByStatus(ctx context.Context, status model.CrawlStatus, limit int) ([]model.CrawlLogEntry, error)
}
