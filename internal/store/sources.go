package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mfenderov/contentloop/pkg/models"
)

var sourceColumns = []string{"id", "user_id", "name", "url", "kind", "priority", "status", "last_crawled_at", "created_at"}

// CreateSource inserts a source, assigning an ID and defaults where missing.
func (s *Store) CreateSource(ctx context.Context, src *models.Source) error {
	if src.ID == "" {
		src.ID = newID()
	}
	if src.Kind == "" {
		src.Kind = models.SourceKindWeb
	}
	if src.Status == "" {
		src.Status = models.SourceStatusActive
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	b := sq.Insert("sources").Columns(sourceColumns...).Values(
		src.ID, src.UserID, src.Name, src.URL, string(src.Kind), src.Priority, string(src.Status),
		nullMillis(src.LastCrawledAt), millis(src.CreatedAt),
	)
	if _, err := s.exec(ctx, b); err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

// ListActiveSources returns a tenant's active sources, stalest first:
// never-crawled sources lead, then by last crawl ascending, then priority descending.
func (s *Store) ListActiveSources(ctx context.Context, userID string) ([]models.Source, error) {
	b := sq.Select(sourceColumns...).From("sources").
		Where(sq.Eq{"user_id": userID, "status": string(models.SourceStatusActive)}).
		OrderBy("last_crawled_at IS NOT NULL", "last_crawled_at ASC", "priority DESC", "created_at ASC")

	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var (
			src         models.Source
			kind, state string
			last        sql.NullInt64
			created     int64
		)
		if err := rows.Scan(&src.ID, &src.UserID, &src.Name, &src.URL, &kind, &src.Priority, &state, &last, &created); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.Kind = models.SourceKind(kind)
		src.Status = models.SourceStatus(state)
		src.LastCrawledAt = timePtr(last)
		src.CreatedAt = fromMillis(created)
		out = append(out, src)
	}
	return out, rows.Err()
}

// MarkSourceCrawled updates a source's freshness marker.
func (s *Store) MarkSourceCrawled(ctx context.Context, sourceID string, at time.Time) error {
	if _, err := s.exec(ctx, sq.Update("sources").Set("last_crawled_at", millis(at)).Where(sq.Eq{"id": sourceID})); err != nil {
		return fmt.Errorf("failed to mark source crawled: %w", err)
	}
	return nil
}
