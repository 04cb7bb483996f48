package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// PromptTemplate is a tenant's override for one template key.
type PromptTemplate struct {
	UserID      string
	TemplateKey string
	Body        string
	Enabled     bool
	UpdatedAt   time.Time
}

// PutPromptTemplate creates or replaces a tenant's template.
func (s *Store) PutPromptTemplate(ctx context.Context, t PromptTemplate) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}
	b := sq.Insert("prompt_templates").
		Columns("user_id", "template_key", "body", "enabled", "updated_at").
		Values(t.UserID, t.TemplateKey, t.Body, t.Enabled, millis(t.UpdatedAt)).
		Suffix("ON CONFLICT (user_id, template_key) DO UPDATE SET body = excluded.body, enabled = excluded.enabled, updated_at = excluded.updated_at")
	if _, err := s.exec(ctx, b); err != nil {
		return fmt.Errorf("failed to put prompt template: %w", err)
	}
	return nil
}

// GetPromptTemplate returns a tenant's template for key or ErrNotFound.
func (s *Store) GetPromptTemplate(ctx context.Context, userID, key string) (*PromptTemplate, error) {
	row, err := s.queryRow(ctx, sq.Select("user_id", "template_key", "body", "enabled", "updated_at").
		From("prompt_templates").Where(sq.Eq{"user_id": userID, "template_key": key}))
	if err != nil {
		return nil, err
	}
	var (
		t       PromptTemplate
		updated int64
	)
	err = row.Scan(&t.UserID, &t.TemplateKey, &t.Body, &t.Enabled, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt template: %w", err)
	}
	t.UpdatedAt = fromMillis(updated)
	return &t, nil
}
