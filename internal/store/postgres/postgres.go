// Package postgres provides pgx-backed implementations of the persistence
// contracts.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/confatlas/confcrawler/internal/model"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// querier is the subset of pgxpool.Pool the stores need; pgxmock satisfies
// it in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements every persistence contract on a shared pool.
type Store struct {
	pool querier
}

// New connects a pool and returns a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool, primarily for tests.
func NewWithPool(pool querier) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const conferenceColumns = `id, url, name, start_date, end_date, city, country, industry,
attendance_estimate, agenda_url, pricing_url, organizer_name, organizer_email,
organizer_phone, fields_populated_count, total_fields_count, last_crawled_at, last_verified_at`

// FindByURL looks up a conference by normalized URL. Missing rows return
// (nil, nil).
func (s *Store) FindByURL(ctx context.Context, url string) (*model.ConferenceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM conferences WHERE url = $1`, conferenceColumns)
	return s.scanConference(s.pool.QueryRow(ctx, query, url))
}

// FindByID looks up a conference by id. Missing rows return (nil, nil).
func (s *Store) FindByID(ctx context.Context, id string) (*model.ConferenceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM conferences WHERE id = $1`, conferenceColumns)
	return s.scanConference(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) scanConference(row pgx.Row) (*model.ConferenceRecord, error) {
	var rec model.ConferenceRecord
	err := row.Scan(
		&rec.ID, &rec.URL, &rec.Name, &rec.StartDate, &rec.EndDate,
		&rec.City, &rec.Country, &rec.Industry, &rec.AttendanceEstimate,
		&rec.AgendaURL, &rec.PricingURL, &rec.OrganizerName, &rec.OrganizerEmail,
		&rec.OrganizerPhone, &rec.FieldsPopulated, &rec.TotalFields,
		&rec.LastCrawledAt, &rec.LastVerifiedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conference: %w", err)
	}
	return &rec, nil
}

// Insert creates a conference row and fills in the generated id.
func (s *Store) Insert(ctx context.Context, rec *model.ConferenceRecord) error {
	query := `
INSERT INTO conferences (
	url, name, start_date, end_date, city, country, industry,
	attendance_estimate, agenda_url, pricing_url, organizer_name,
	organizer_email, organizer_phone, fields_populated_count,
	total_fields_count, last_crawled_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING id`
	err := s.pool.QueryRow(ctx, query,
		rec.URL, rec.Name, rec.StartDate, rec.EndDate, rec.City, rec.Country,
		rec.Industry, rec.AttendanceEstimate, rec.AgendaURL, rec.PricingURL,
		rec.OrganizerName, rec.OrganizerEmail, rec.OrganizerPhone,
		rec.FieldsPopulated, rec.TotalFields, rec.LastCrawledAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert conference: %w", err)
	}
	return nil
}

// Update overwrites the crawler-owned columns of a conference row.
// last_verified_at is deliberately untouched: it belongs to the human
// verification flow.
func (s *Store) Update(ctx context.Context, rec *model.ConferenceRecord) error {
	query := `
UPDATE conferences SET
	url = $2, name = $3, start_date = $4, end_date = $5, city = $6,
	country = $7, industry = $8, attendance_estimate = $9, agenda_url = $10,
	pricing_url = $11, organizer_name = $12, organizer_email = $13,
	organizer_phone = $14, fields_populated_count = $15,
	total_fields_count = $16, last_crawled_at = $17
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		rec.ID, rec.URL, rec.Name, rec.StartDate, rec.EndDate, rec.City,
		rec.Country, rec.Industry, rec.AttendanceEstimate, rec.AgendaURL,
		rec.PricingURL, rec.OrganizerName, rec.OrganizerEmail,
		rec.OrganizerPhone, rec.FieldsPopulated, rec.TotalFields,
		rec.LastCrawledAt,
	)
	if err != nil {
		return fmt.Errorf("update conference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conference %q not found", rec.ID)
	}
	return nil
}

// SelectStale returns conferences never crawled or crawled before olderThan.
func (s *Store) SelectStale(ctx context.Context, olderThan time.Time, limit int) ([]model.ConferenceRecord, error) {
	query := fmt.Sprintf(`
SELECT %s FROM conferences
WHERE last_crawled_at IS NULL OR last_crawled_at < $1
ORDER BY last_crawled_at ASC NULLS FIRST
LIMIT $2`, conferenceColumns)
	rows, err := s.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("select stale conferences: %w", err)
	}
	defer rows.Close()

	var out []model.ConferenceRecord
	for rows.Next() {
		rec, err := s.scanConference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale conferences: %w", err)
	}
	return out, nil
}

// InsertManySpeakers bulk-inserts speaker rows.
func (s *Store) InsertManySpeakers(ctx context.Context, speakers []model.Speaker) (int, error) {
	query := `
INSERT INTO speakers (conference_id, name, title, company, source_url, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`
	created := 0
	for _, sp := range speakers {
		if _, err := s.pool.Exec(ctx, query,
			sp.ConferenceID, sp.Name, sp.Title, sp.Company, sp.SourceURL, sp.CreatedAt,
		); err != nil {
			return created, fmt.Errorf("insert speaker %q: %w", sp.Name, err)
		}
		created++
	}
	return created, nil
}

// DeleteSpeakersByConference removes a conference's speaker rows.
func (s *Store) DeleteSpeakersByConference(ctx context.Context, conferenceID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM speakers WHERE conference_id = $1`, conferenceID); err != nil {
		return fmt.Errorf("delete speakers: %w", err)
	}
	return nil
}

// InsertManyExhibitors bulk-inserts exhibitor rows.
func (s *Store) InsertManyExhibitors(ctx context.Context, exhibitors []model.Exhibitor) (int, error) {
	query := `
INSERT INTO exhibitors (
	conference_id, company_name, exhibitor_tier_raw, exhibitor_tier_normalized,
	estimated_cost, source_url, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	created := 0
	for _, ex := range exhibitors {
		if _, err := s.pool.Exec(ctx, query,
			ex.ConferenceID, ex.CompanyName, ex.TierRaw, ex.TierNormalized,
			ex.EstimatedCost, ex.SourceURL, ex.CreatedAt,
		); err != nil {
			return created, fmt.Errorf("insert exhibitor %q: %w", ex.CompanyName, err)
		}
		created++
	}
	return created, nil
}

// DeleteExhibitorsByConference removes a conference's exhibitor rows.
func (s *Store) DeleteExhibitorsByConference(ctx context.Context, conferenceID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM exhibitors WHERE conference_id = $1`, conferenceID); err != nil {
		return fmt.Errorf("delete exhibitors: %w", err)
	}
	return nil
}

// Append inserts a crawl log entry. Entries are never updated or deleted.
func (s *Store) Append(ctx context.Context, entry model.CrawlLogEntry) error {
	query := `
INSERT INTO crawl_logs (
	conference_id, status, speakers_extracted, exhibitors_extracted,
	fields_populated, error_message, crawled_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := s.pool.Exec(ctx, query,
		entry.ConferenceID, string(entry.Status), entry.SpeakersExtracted,
		entry.ExhibitorsExtracted, entry.FieldsPopulated, entry.ErrorMessage,
		entry.CrawledAt,
	); err != nil {
		return fmt.Errorf("insert crawl log: %w", err)
	}
	return nil
}

// ListByStatus returns recent crawl log entries, newest first.
func (s *Store) ListByStatus(ctx context.Context, status model.CrawlStatus, limit int) ([]model.CrawlLogEntry, error) {
	query := `
SELECT id, conference_id, status, speakers_extracted, exhibitors_extracted,
	fields_populated, error_message, crawled_at
FROM crawl_logs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY crawled_at DESC LIMIT $2`
		args = append(args, string(status), limit)
	} else {
		query += ` ORDER BY crawled_at DESC LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select crawl logs: %w", err)
	}
	defer rows.Close()

	var out []model.CrawlLogEntry
	for rows.Next() {
		var entry model.CrawlLogEntry
		var statusText string
		if err := rows.Scan(
			&entry.ID, &entry.ConferenceID, &statusText, &entry.SpeakersExtracted,
			&entry.ExhibitorsExtracted, &entry.FieldsPopulated, &entry.ErrorMessage,
			&entry.CrawledAt,
		); err != nil {
			return nil, fmt.Errorf("scan crawl log: %w", err)
		}
		entry.Status = model.CrawlStatus(statusText)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl logs: %w", err)
	}
	return out, nil
}
