package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mfenderov/contentloop/pkg/models"
)

var settingsColumns = []string{
	"user_id", "crawl_schedule", "crawl_enabled", "generation_schedule", "generation_time",
	"generation_day", "generation_enabled", "formats", "timezone", "profile_context",
	"last_crawl_at", "last_generation_at",
}

// UpsertSettings creates or replaces a tenant's settings.
func (s *Store) UpsertSettings(ctx context.Context, st models.Settings) error {
	if st.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	formats, err := json.Marshal(nonNil(st.Formats))
	if err != nil {
		return fmt.Errorf("failed to marshal formats: %w", err)
	}

	b := sq.Insert("tenant_settings").Columns(settingsColumns...).Values(
		st.UserID, string(st.CrawlSchedule), st.CrawlEnabled, string(st.GenerationSchedule), st.GenerationTime,
		int(st.GenerationDay), st.GenerationEnabled, string(formats), st.Timezone, st.ProfileContext,
		nullMillis(st.LastCrawlAt), nullMillis(st.LastGenerationAt),
	).Suffix(`ON CONFLICT (user_id) DO UPDATE SET
		crawl_schedule = excluded.crawl_schedule,
		crawl_enabled = excluded.crawl_enabled,
		generation_schedule = excluded.generation_schedule,
		generation_time = excluded.generation_time,
		generation_day = excluded.generation_day,
		generation_enabled = excluded.generation_enabled,
		formats = excluded.formats,
		timezone = excluded.timezone,
		profile_context = excluded.profile_context,
		last_crawl_at = excluded.last_crawl_at,
		last_generation_at = excluded.last_generation_at`)

	if _, err := s.exec(ctx, b); err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

// GetSettings returns a tenant's settings or ErrNotFound.
func (s *Store) GetSettings(ctx context.Context, userID string) (*models.Settings, error) {
	row, err := s.queryRow(ctx, sq.Select(settingsColumns...).From("tenant_settings").Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return nil, err
	}
	st, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return st, nil
}

// InvalidSettingsError reports a tenant whose stored settings cannot be decoded.
type InvalidSettingsError struct {
	UserID string
	Err    error
}

func (e *InvalidSettingsError) Error() string {
	return fmt.Sprintf("invalid settings for %s: %v", e.UserID, e.Err)
}

func (e *InvalidSettingsError) Unwrap() error { return e.Err }

// ListCrawlEnabled returns settings of tenants with crawling enabled.
// Tenants whose rows cannot be decoded are left out and reported in invalid.
func (s *Store) ListCrawlEnabled(ctx context.Context) ([]models.Settings, []InvalidSettingsError, error) {
	return s.listSettings(ctx, sq.Eq{"crawl_enabled": true})
}

// ListGenerationEnabled returns settings of tenants with generation enabled.
// Tenants whose rows cannot be decoded are left out and reported in invalid.
func (s *Store) ListGenerationEnabled(ctx context.Context) ([]models.Settings, []InvalidSettingsError, error) {
	return s.listSettings(ctx, sq.Eq{"generation_enabled": true})
}

func (s *Store) listSettings(ctx context.Context, where sq.Sqlizer) ([]models.Settings, []InvalidSettingsError, error) {
	rows, err := s.query(ctx, sq.Select(settingsColumns...).From("tenant_settings").Where(where).OrderBy("user_id"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var (
		out     []models.Settings
		invalid []InvalidSettingsError
	)
	for rows.Next() {
		st, err := scanSettings(rows)
		var bad *InvalidSettingsError
		if errors.As(err, &bad) {
			invalid = append(invalid, *bad)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan settings: %w", err)
		}
		out = append(out, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, invalid, nil
}

// MarkCrawled records the time of a tenant's last crawl attempt.
func (s *Store) MarkCrawled(ctx context.Context, userID string, at time.Time) error {
	return s.touchSettings(ctx, userID, "last_crawl_at", at)
}

// MarkGenerated records the time of a tenant's last generation.
func (s *Store) MarkGenerated(ctx context.Context, userID string, at time.Time) error {
	return s.touchSettings(ctx, userID, "last_generation_at", at)
}

func (s *Store) touchSettings(ctx context.Context, userID, column string, at time.Time) error {
	res, err := s.exec(ctx, sq.Update("tenant_settings").Set(column, millis(at)).Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSettings(r scanner) (*models.Settings, error) {
	var (
		st               models.Settings
		crawlSchedule    string
		genSchedule      string
		genDay           int
		formats          string
		lastCrawl, lastG sql.NullInt64
	)
	err := r.Scan(&st.UserID, &crawlSchedule, &st.CrawlEnabled, &genSchedule, &st.GenerationTime,
		&genDay, &st.GenerationEnabled, &formats, &st.Timezone, &st.ProfileContext, &lastCrawl, &lastG)
	if err != nil {
		return nil, err
	}
	st.CrawlSchedule = models.Cadence(crawlSchedule)
	st.GenerationSchedule = models.Cadence(genSchedule)
	st.GenerationDay = time.Weekday(genDay)
	if err := json.Unmarshal([]byte(formats), &st.Formats); err != nil {
		return nil, &InvalidSettingsError{UserID: st.UserID, Err: fmt.Errorf("bad formats: %w", err)}
	}
	st.LastCrawlAt = timePtr(lastCrawl)
	st.LastGenerationAt = timePtr(lastG)
	return &st, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
