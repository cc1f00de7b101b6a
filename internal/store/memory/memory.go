// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/confatlas/confcrawler/internal/model"
)

// Store implements every persistence contract in process memory.
type Store struct {
	mu          sync.RWMutex
	conferences map[string]model.ConferenceRecord
	speakers    map[string][]model.Speaker
	exhibitors  map[string][]model.Exhibitor
	logs        []model.CrawlLogEntry
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		conferences: make(map[string]model.ConferenceRecord),
		speakers:    make(map[string][]model.Speaker),
		exhibitors:  make(map[string][]model.Exhibitor),
	}
}

// FindByURL returns the record whose normalized URL matches, or nil.
func (s *Store) FindByURL(_ context.Context, url string) (*model.ConferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.conferences {
		if rec.URL == url {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

// FindByID returns the record with the given id, or nil.
func (s *Store) FindByID(_ context.Context, id string) (*model.ConferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.conferences[id]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

// Insert stores a new record, assigning an id.
func (s *Store) Insert(_ context.Context, rec *model.ConferenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.conferences {
		if existing.URL == rec.URL {
			return fmt.Errorf("conference with url %q already exists", rec.URL)
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.conferences[rec.ID] = *rec
	return nil
}

// Update overwrites the stored record.
func (s *Store) Update(_ context.Context, rec *model.ConferenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conferences[rec.ID]; !ok {
		return fmt.Errorf("conference %q not found", rec.ID)
	}
	s.conferences[rec.ID] = *rec
	return nil
}

// SelectStale returns records never crawled or crawled before olderThan,
// never-crawled first, then oldest first.
func (s *Store) SelectStale(_ context.Context, olderThan time.Time, limit int) ([]model.ConferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stale []model.ConferenceRecord
	for _, rec := range s.conferences {
		if rec.LastCrawledAt == nil || rec.LastCrawledAt.Before(olderThan) {
			stale = append(stale, rec)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		a, b := stale[i].LastCrawledAt, stale[j].LastCrawledAt
		switch {
		case a == nil && b == nil:
			return stale[i].ID < stale[j].ID
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// InsertManySpeakers appends speaker rows, assigning ids.
func (s *Store) InsertManySpeakers(_ context.Context, speakers []model.Speaker) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sp := range speakers {
		if sp.ID == "" {
			sp.ID = uuid.NewString()
		}
		s.speakers[sp.ConferenceID] = append(s.speakers[sp.ConferenceID], sp)
	}
	return len(speakers), nil
}

// DeleteSpeakersByConference removes a conference's speaker rows.
func (s *Store) DeleteSpeakersByConference(_ context.Context, conferenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.speakers, conferenceID)
	return nil
}

// SpeakersFor returns the stored speaker rows for a conference.
func (s *Store) SpeakersFor(conferenceID string) []model.Speaker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Speaker(nil), s.speakers[conferenceID]...)
}

// InsertManyExhibitors appends exhibitor rows, assigning ids.
func (s *Store) InsertManyExhibitors(_ context.Context, exhibitors []model.Exhibitor) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range exhibitors {
		if ex.ID == "" {
			ex.ID = uuid.NewString()
		}
		s.exhibitors[ex.ConferenceID] = append(s.exhibitors[ex.ConferenceID], ex)
	}
	return len(exhibitors), nil
}

// DeleteExhibitorsByConference removes a conference's exhibitor rows.
func (s *Store) DeleteExhibitorsByConference(_ context.Context, conferenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.exhibitors, conferenceID)
	return nil
}

// ExhibitorsFor returns the stored exhibitor rows for a conference.
func (s *Store) ExhibitorsFor(conferenceID string) []model.Exhibitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Exhibitor(nil), s.exhibitors[conferenceID]...)
}

// Append records a crawl log entry.
func (s *Store) Append(_ context.Context, entry model.CrawlLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.logs = append(s.logs, entry)
	return nil
}

// ListByStatus returns recent log entries, newest first.
func (s *Store) ListByStatus(_ context.Context, status model.CrawlStatus, limit int) ([]model.CrawlLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.CrawlLogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		if status != "" && s.logs[i].Status != status {
			continue
		}
		out = append(out, s.logs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Logs returns every stored log entry in insertion order.
func (s *Store) Logs() []model.CrawlLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CrawlLogEntry(nil), s.logs...)
}

// ConferenceCount reports how many conference records exist.
func (s *Store) ConferenceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conferences)
}
