// Package model defines the domain entities persisted by the crawl pipeline.
package model

import "time"

// CrawlStatus classifies the outcome of a single crawl attempt.
type CrawlStatus string

// Crawl statuses recorded in crawl log entries.
const (
	CrawlStatusSuccess CrawlStatus = "success"
	CrawlStatusPartial CrawlStatus = "partial"
	CrawlStatusFailed  CrawlStatus = "failed"
)

// TotalFieldCount is the fixed denominator for the completeness score. It
// covers every independently extractable field, including the four fields
// outside crawler scope (manually verified data), so FieldsPopulated is
// always <= TotalFieldCount.
const TotalFieldCount = 15

// ConferenceRecord is the canonical conference entity. URL is the normalized
// identity key and is unique independent of ID. LastVerifiedAt belongs to the
// human verification flow and is never written by the crawler.
type ConferenceRecord struct {
	ID                 string     `json:"id"`
	URL                string     `json:"url"`
	Name               string     `json:"name"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	City               *string    `json:"city,omitempty"`
	Country            *string    `json:"country,omitempty"`
	Industry           []string   `json:"industry,omitempty"`
	AttendanceEstimate *int       `json:"attendance_estimate,omitempty"`
	AgendaURL          *string    `json:"agenda_url,omitempty"`
	PricingURL         *string    `json:"pricing_url,omitempty"`
	OrganizerName      *string    `json:"organizer_name,omitempty"`
	OrganizerEmail     *string    `json:"organizer_email,omitempty"`
	OrganizerPhone     *string    `json:"organizer_phone,omitempty"`
	FieldsPopulated    int        `json:"fields_populated_count"`
	TotalFields        int        `json:"total_fields_count"`
	LastCrawledAt      *time.Time `json:"last_crawled_at,omitempty"`
	LastVerifiedAt     *time.Time `json:"last_verified_at,omitempty"`
}

// Speaker is a child row owned by exactly one conference. SourceURL records
// the page the speaker was extracted from.
type Speaker struct {
	ID           string    `json:"id"`
	ConferenceID string    `json:"conference_id"`
	Name         string    `json:"name"`
	Title        *string   `json:"title,omitempty"`
	Company      *string   `json:"company,omitempty"`
	SourceURL    string    `json:"source_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// Exhibitor is a child row owned by exactly one conference. EstimatedCost is
// populated only when an explicit monetary figure appeared in the source
// text; it is never inferred.
type Exhibitor struct {
	ID             string    `json:"id"`
	ConferenceID   string    `json:"conference_id"`
	CompanyName    string    `json:"company_name"`
	TierRaw        *string   `json:"exhibitor_tier_raw,omitempty"`
	TierNormalized *string   `json:"exhibitor_tier_normalized,omitempty"`
	EstimatedCost  *int      `json:"estimated_cost,omitempty"`
	SourceURL      string    `json:"source_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// CrawlLogEntry is the immutable audit record written exactly once per crawl
// attempt. ConferenceID is nil when the crawl failed before a record could be
// resolved.
type CrawlLogEntry struct {
	ID                  string      `json:"id"`
	ConferenceID        *string     `json:"conference_id,omitempty"`
	Status              CrawlStatus `json:"status"`
	SpeakersExtracted   int         `json:"speakers_extracted"`
	ExhibitorsExtracted int         `json:"exhibitors_extracted"`
	FieldsPopulated     int         `json:"fields_populated"`
	ErrorMessage        *string     `json:"error_message,omitempty"`
	CrawledAt           time.Time   `json:"crawled_at"`
}
