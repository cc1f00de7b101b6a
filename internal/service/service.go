// Package service orchestrates crawls: it runs the conference crawler,
// scores completeness, reconciles the result against stored records, and
// writes the audit trail.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/crawler"
	"github.com/confatlas/confcrawler/internal/metrics"
	"github.com/confatlas/confcrawler/internal/model"
	"github.com/confatlas/confcrawler/internal/publisher"
	"github.com/confatlas/confcrawler/internal/storage"
	"github.com/confatlas/confcrawler/internal/store"
)

// Options is the per-call options bag supplied by the trigger. SavePDFToStorage
// and OverwriteExisting are accepted for interface compatibility but have no
// effect today.
type Options struct {
	SaveHTMLToStorage bool `json:"save_html_to_storage"`
	SavePDFToStorage  bool `json:"save_pdf_to_storage"`
	OverwriteExisting bool `json:"overwrite_existing"`
}

// Stats summarizes what one crawl created and populated.
type Stats struct {
	SpeakersCreated   int `json:"speakers_created"`
	ExhibitorsCreated int `json:"exhibitors_created"`
	FieldsPopulated   int `json:"fields_populated"`
	TotalFields       int `json:"total_fields"`
}

// Outcome is the synchronous result of one crawl call. Every call returns an
// Outcome with an explicit status; the service never propagates a panic or an
// unhandled error to its caller.
type Outcome struct {
	Success       bool              `json:"success"`
	ConferenceID  string            `json:"conference_id,omitempty"`
	ConferenceURL string            `json:"conference_url"`
	Status        model.CrawlStatus `json:"status"`
	Message       string            `json:"message,omitempty"`
	Stats         Stats             `json:"stats"`
	Error         string            `json:"error,omitempty"`
}

// Crawler is the per-URL crawl operation the service drives.
type Crawler interface {
	Crawl(ctx context.Context, rawURL string) crawler.Result
}

// Clock supplies the current time; swapped out in tests.
type Clock interface {
	Now() time.Time
}

// ChildRowPolicy decides what happens to existing speaker/exhibitor rows when
// a conference is re-crawled.
type ChildRowPolicy string

// Child row policies.
const (
	// ChildRowsReplace deletes a conference's existing child rows before
	// inserting the freshly extracted ones. This is the default: re-crawls
	// converge instead of accumulating duplicates.
	ChildRowsReplace ChildRowPolicy = "replace"
	// ChildRowsAppend always appends new rows, preserving prior extractions.
	ChildRowsAppend ChildRowPolicy = "append"
)

// Config controls service behavior.
type Config struct {
	ChildRows       ChildRowPolicy
	EventTopic      string
	StaleAfter      time.Duration
	BatchLimit      int
	InterCrawlDelay time.Duration
}

const (
	defaultStaleAfter      = 30 * 24 * time.Hour
	defaultBatchLimit      = 10
	defaultInterCrawlDelay = 2 * time.Second
)

// Service is the crawl orchestrator.
type Service struct {
	crawler     Crawler
	conferences store.ConferenceStore
	speakers    store.SpeakerStore
	exhibitors  store.ExhibitorStore
	logs        store.CrawlLogStore
	blobs       storage.BlobStore
	events      publisher.Publisher
	clock       Clock
	logger      *zap.Logger
	cfg         Config
}

// Stores groups the persistence collaborators handed to New.
type Stores struct {
	Conferences store.ConferenceStore
	Speakers    store.SpeakerStore
	Exhibitors  store.ExhibitorStore
	CrawlLogs   store.CrawlLogStore
}

// New constructs a Service. Blobs and events may be nil; HTML archiving and
// event publishing are then disabled.
func New(cr Crawler, stores Stores, blobs storage.BlobStore, events publisher.Publisher, clock Clock, cfg Config, logger *zap.Logger) (*Service, error) {
	if cr == nil {
		return nil, fmt.Errorf("crawler is required")
	}
	if stores.Conferences == nil || stores.Speakers == nil || stores.Exhibitors == nil || stores.CrawlLogs == nil {
		return nil, fmt.Errorf("all stores are required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.ChildRows == "" {
		cfg.ChildRows = ChildRowsReplace
	}
	if cfg.ChildRows != ChildRowsReplace && cfg.ChildRows != ChildRowsAppend {
		return nil, fmt.Errorf("unknown child row policy %q", cfg.ChildRows)
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaultBatchLimit
	}
	if cfg.InterCrawlDelay < 0 {
		cfg.InterCrawlDelay = defaultInterCrawlDelay
	}
	return &Service{
		crawler:     cr,
		conferences: stores.Conferences,
		speakers:    stores.Speakers,
		exhibitors:  stores.Exhibitors,
		logs:        stores.CrawlLogs,
		blobs:       blobs,
		events:      events,
		clock:       clock,
		logger:      logger,
		cfg:         cfg,
	}, nil
}

// CrawlByURL crawls one URL end-to-end and persists the result.
func (s *Service) CrawlByURL(ctx context.Context, rawURL string, opts Options) Outcome {
	started := s.clock.Now()

	normalized, err := crawler.NormalizeURL(rawURL)
	if err != nil {
		out := s.failureOutcome(rawURL, "", fmt.Sprintf("invalid url: %v", err))
		s.appendLog(ctx, nil, model.CrawlStatusFailed, Stats{TotalFields: model.TotalFieldCount}, out.Error)
		metrics.ObserveCrawl(string(model.CrawlStatusFailed), s.clock.Now().Sub(started), 0)
		return out
	}

	existing, err := s.conferences.FindByURL(ctx, normalized)
	if err != nil {
		out := s.failureOutcome(normalized, "", fmt.Sprintf("look up conference: %v", err))
		s.appendLog(ctx, nil, model.CrawlStatusFailed, Stats{TotalFields: model.TotalFieldCount}, out.Error)
		metrics.ObserveCrawl(string(model.CrawlStatusFailed), s.clock.Now().Sub(started), 0)
		return out
	}

	res := s.crawler.Crawl(ctx, normalized)
	if res.Denied {
		metrics.ObserveRobotsDenial(normalized)
	}
	if res.Failed() {
		var confID *string
		var id string
		if existing != nil {
			confID = &existing.ID
			id = existing.ID
		}
		out := s.failureOutcome(normalized, id, res.Error)
		s.appendLog(ctx, confID, model.CrawlStatusFailed, Stats{TotalFields: model.TotalFieldCount}, res.Error)
		metrics.ObserveCrawl(string(model.CrawlStatusFailed), s.clock.Now().Sub(started), 0)
		return out
	}

	out, err := s.persist(ctx, normalized, existing, res, opts)
	if err != nil {
		// Catch-all boundary: persistence errors become a failed outcome plus
		// a failed log entry, never a propagated error.
		s.logger.Error("crawl persistence failed",
			zap.String("url", normalized), zap.Error(err))
		failed := s.failureOutcome(normalized, "", err.Error())
		s.appendLog(ctx, nil, model.CrawlStatusFailed, Stats{TotalFields: model.TotalFieldCount}, err.Error())
		metrics.ObserveCrawl(string(model.CrawlStatusFailed), s.clock.Now().Sub(started), 0)
		return failed
	}

	metrics.ObserveCrawl(string(out.Status), s.clock.Now().Sub(started), out.Stats.FieldsPopulated)
	metrics.ObserveChildRows(out.Stats.SpeakersCreated, out.Stats.ExhibitorsCreated)
	s.publishEvent(ctx, out)
	return out
}

// CrawlByID resolves the stored URL for a record and delegates to CrawlByURL.
func (s *Service) CrawlByID(ctx context.Context, id string, opts Options) Outcome {
	rec, err := s.conferences.FindByID(ctx, id)
	if err != nil {
		return s.failureOutcome("", id, fmt.Sprintf("look up conference %s: %v", id, err))
	}
	if rec == nil {
		return s.failureOutcome("", id, fmt.Sprintf("conference %s not found", id))
	}
	return s.CrawlByURL(ctx, rec.URL, opts)
}

// persist runs steps 4-9 of the orchestration algorithm. Any returned error is
// handled by the caller's catch-all boundary.
func (s *Service) persist(ctx context.Context, normalized string, existing *model.ConferenceRecord, res crawler.Result, opts Options) (Outcome, error) {
	bundle := res.Data
	if bundle == nil {
		return Outcome{}, fmt.Errorf("crawl produced no extraction bundle")
	}

	now := s.clock.Now()
	populated := countPopulatedFields(bundle)

	rec := existing
	if rec == nil {
		// A brand-new record needs at least a name; this is a hard failure,
		// not a partial outcome.
		if bundle.BasicInfo.Name == "" {
			return Outcome{}, fmt.Errorf("no conference name extracted for new record %s", normalized)
		}
		rec = &model.ConferenceRecord{URL: normalized}
	}
	applyBundle(rec, bundle, populated, now)

	if existing != nil {
		if err := s.conferences.Update(ctx, rec); err != nil {
			return Outcome{}, err
		}
	} else {
		if err := s.conferences.Insert(ctx, rec); err != nil {
			return Outcome{}, err
		}
	}

	if opts.SaveHTMLToStorage && s.blobs != nil && res.HTML != "" {
		s.archiveHTML(ctx, rec.ID, normalized, res.HTML, now)
	}

	speakersCreated, exhibitorsCreated, err := s.persistChildren(ctx, rec.ID, normalized, bundle, now)
	if err != nil {
		return Outcome{}, err
	}

	status := model.CrawlStatusSuccess
	message := "crawl completed"
	if bundle.BasicInfo.Name == "" || speakersCreated == 0 {
		status = model.CrawlStatusPartial
		message = "crawl completed with partial data"
	}

	stats := Stats{
		SpeakersCreated:   speakersCreated,
		ExhibitorsCreated: exhibitorsCreated,
		FieldsPopulated:   populated,
		TotalFields:       model.TotalFieldCount,
	}
	s.appendLog(ctx, &rec.ID, status, stats, "")

	return Outcome{
		Success:       true,
		ConferenceID:  rec.ID,
		ConferenceURL: normalized,
		Status:        status,
		Message:       message,
		Stats:         stats,
	}, nil
}

// persistChildren writes speaker and exhibitor rows per the configured policy.
func (s *Service) persistChildren(ctx context.Context, conferenceID, sourceURL string, bundle *crawler.Bundle, now time.Time) (int, int, error) {
	if s.cfg.ChildRows == ChildRowsReplace {
		if err := s.speakers.DeleteSpeakersByConference(ctx, conferenceID); err != nil {
			return 0, 0, err
		}
		if err := s.exhibitors.DeleteExhibitorsByConference(ctx, conferenceID); err != nil {
			return 0, 0, err
		}
	}

	speakers := make([]model.Speaker, 0, len(bundle.Speakers))
	for _, sp := range bundle.Speakers {
		speakers = append(speakers, model.Speaker{
			ConferenceID: conferenceID,
			Name:         sp.Name,
			Title:        optString(sp.Title),
			Company:      optString(sp.Company),
			SourceURL:    sourceURL,
			CreatedAt:    now,
		})
	}
	speakersCreated, err := s.speakers.InsertManySpeakers(ctx, speakers)
	if err != nil {
		return speakersCreated, 0, err
	}

	exhibitors := make([]model.Exhibitor, 0, len(bundle.Exhibitors))
	for _, ex := range bundle.Exhibitors {
		exhibitors = append(exhibitors, model.Exhibitor{
			ConferenceID:   conferenceID,
			CompanyName:    ex.CompanyName,
			TierRaw:        optString(ex.TierRaw),
			TierNormalized: optString(ex.TierNormalized),
			EstimatedCost:  optInt(ex.EstimatedCost),
			SourceURL:      sourceURL,
			CreatedAt:      now,
		})
	}
	exhibitorsCreated, err := s.exhibitors.InsertManyExhibitors(ctx, exhibitors)
	if err != nil {
		return speakersCreated, exhibitorsCreated, err
	}

	return speakersCreated, exhibitorsCreated, nil
}

// archiveHTML stores the raw page under {conferenceID}/{host}_{timestamp}.html.
// Archive failures never fail the crawl.
func (s *Service) archiveHTML(ctx context.Context, conferenceID, sourceURL, html string, now time.Time) {
	path := fmt.Sprintf("%s/%s_%s.html",
		conferenceID, sanitizeHost(sourceURL), now.Format("20060102T150405Z"))
	if _, err := s.blobs.PutObject(ctx, path, "text/html", strings.NewReader(html)); err != nil {
		s.logger.Warn("html archive failed",
			zap.String("url", sourceURL), zap.String("path", path), zap.Error(err))
	}
}

// appendLog writes the audit entry for one crawl attempt. Failures are
// swallowed: the audit trail must never abort or downgrade a crawl.
func (s *Service) appendLog(ctx context.Context, conferenceID *string, status model.CrawlStatus, stats Stats, errMsg string) {
	entry := model.CrawlLogEntry{
		ConferenceID:        conferenceID,
		Status:              status,
		SpeakersExtracted:   stats.SpeakersCreated,
		ExhibitorsExtracted: stats.ExhibitorsCreated,
		FieldsPopulated:     stats.FieldsPopulated,
		ErrorMessage:        optString(errMsg),
		CrawledAt:           s.clock.Now(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn("crawl log write failed", zap.Error(err))
	}
}

// publishEvent emits the crawl outcome; publishing is best-effort.
func (s *Service) publishEvent(ctx context.Context, out Outcome) {
	if s.events == nil || s.cfg.EventTopic == "" {
		return
	}
	if _, err := s.events.Publish(ctx, s.cfg.EventTopic, out); err != nil {
		s.logger.Warn("outcome event publish failed",
			zap.String("topic", s.cfg.EventTopic), zap.Error(err))
	}
}

func (s *Service) failureOutcome(conferenceURL, conferenceID, errMsg string) Outcome {
	return Outcome{
		ConferenceID:  conferenceID,
		ConferenceURL: conferenceURL,
		Status:        model.CrawlStatusFailed,
		Message:       "crawl failed",
		Stats:         Stats{TotalFields: model.TotalFieldCount},
		Error:         errMsg,
	}
}

// applyBundle overwrites every crawler-owned field from the extraction
// bundle. Fields the extractors found nothing for are cleared, so the
// completeness score is recomputed fresh on every crawl rather than inherited.
// Name falls back to the stored name when extraction found none.
// LastVerifiedAt is untouched.
func applyBundle(rec *model.ConferenceRecord, bundle *crawler.Bundle, populated int, now time.Time) {
	if bundle.BasicInfo.Name != "" {
		rec.Name = bundle.BasicInfo.Name
	}
	rec.StartDate = optDate(bundle.BasicInfo.StartDate)
	rec.EndDate = optDate(bundle.BasicInfo.EndDate)
	rec.City = optString(bundle.BasicInfo.City)
	rec.Country = optString(bundle.BasicInfo.Country)
	rec.Industry = bundle.BasicInfo.Industry
	rec.AttendanceEstimate = optInt(bundle.BasicInfo.AttendanceEstimate)
	rec.AgendaURL = optString(bundle.Contact.AgendaURL)
	rec.PricingURL = optString(bundle.Pricing.PricingURL)
	rec.OrganizerName = optString(bundle.Contact.OrganizerName)
	rec.OrganizerEmail = optString(bundle.Contact.OrganizerEmail)
	rec.OrganizerPhone = optString(bundle.Contact.OrganizerPhone)
	rec.FieldsPopulated = populated
	rec.TotalFields = model.TotalFieldCount
	rec.LastCrawledAt = &now
}

// countPopulatedFields tests the fixed list of 11 crawler-owned fields: the
// seven basic-info fields plus the four contact/agenda fields. The remaining
// four of the fifteen are outside crawler scope.
func countPopulatedFields(bundle *crawler.Bundle) int {
	count := 0
	for _, present := range []bool{
		bundle.BasicInfo.Name != "",
		bundle.BasicInfo.StartDate != "",
		bundle.BasicInfo.EndDate != "",
		bundle.BasicInfo.City != "",
		bundle.BasicInfo.Country != "",
		len(bundle.BasicInfo.Industry) > 0,
		bundle.BasicInfo.AttendanceEstimate > 0,
		bundle.Contact.OrganizerName != "",
		bundle.Contact.OrganizerEmail != "",
		bundle.Contact.OrganizerPhone != "",
		bundle.Contact.AgendaURL != "",
	} {
		if present {
			count++
		}
	}
	return count
}

// sanitizeHost extracts a filesystem-safe hostname for archive paths.
func sanitizeHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, host)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func optDate(iso string) *time.Time {
	if iso == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return nil
	}
	return &t
}
