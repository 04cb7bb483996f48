package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mfenderov/contentloop/pkg/models"
)

// CreateSourceMaterial stores an uploaded transcript, voice note or note.
func (s *Store) CreateSourceMaterial(ctx context.Context, m *models.SourceMaterial) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	b := sq.Insert("source_materials").
		Columns("id", "user_id", "kind", "title", "body", "created_at").
		Values(m.ID, m.UserID, m.Kind, m.Title, m.Body, millis(m.CreatedAt))
	if _, err := s.exec(ctx, b); err != nil {
		return fmt.Errorf("failed to insert source material: %w", err)
	}
	return nil
}

// ListUnextractedMaterials returns up to limit source materials of a tenant
// whose IDs are not in exclude, oldest first.
func (s *Store) ListUnextractedMaterials(ctx context.Context, userID string, exclude []string, limit int) ([]models.SourceMaterial, error) {
	b := sq.Select("id", "user_id", "kind", "title", "body", "created_at").From("source_materials").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.NotEq{"id": exclude}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit))

	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list source materials: %w", err)
	}
	defer rows.Close()

	var out []models.SourceMaterial
	for rows.Next() {
		var (
			m       models.SourceMaterial
			created int64
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Kind, &m.Title, &m.Body, &created); err != nil {
			return nil, fmt.Errorf("failed to scan source material: %w", err)
		}
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
	}
	return out, rows.Err()
}
