package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mfenderov/contentloop/pkg/models"
)

// InsertAsset stores a generated asset. New assets always start as drafts.
func (s *Store) InsertAsset(ctx context.Context, a *models.Asset) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Status = models.AssetStatusDraft

	b := sq.Insert("assets").
		Columns("id", "user_id", "format", "type", "title", "content", "status", "published_url", "published_at", "created_at").
		Values(a.ID, a.UserID, a.Format, string(a.Type), a.Title, a.Content, string(a.Status),
			nullString(a.PublishedURL), nullMillis(a.PublishedAt), millis(a.CreatedAt))
	if _, err := s.exec(ctx, b); err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// ListAssets returns a tenant's assets, newest first.
func (s *Store) ListAssets(ctx context.Context, userID string) ([]models.Asset, error) {
	b := sq.Select("id", "user_id", "format", "type", "title", "content", "status", "published_url", "published_at", "created_at").
		From("assets").Where(sq.Eq{"user_id": userID}).OrderBy("created_at DESC", "id ASC")

	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		var (
			a            models.Asset
			typ, status  string
			publishedURL sql.NullString
			publishedAt  sql.NullInt64
			created      int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Format, &typ, &a.Title, &a.Content, &status,
			&publishedURL, &publishedAt, &created); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		a.Type = models.AssetType(typ)
		a.Status = models.AssetStatus(status)
		a.PublishedURL = publishedURL.String
		a.PublishedAt = timePtr(publishedAt)
		a.CreatedAt = fromMillis(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
