package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mfenderov/contentloop/pkg/models"
)

var extractionColumns = []string{
	"e.id", "e.user_id", "COALESCE(e.document_id, '')", "COALESCE(e.source_material_id, '')",
	"e.summary", "e.key_points", "e.topics", "e.model", "e.created_at", "e.archived_at",
}

// InsertExtraction stores an extraction. Exactly one of DocumentID and
// SourceMaterialID must be set.
func (s *Store) InsertExtraction(ctx context.Context, e *models.Extraction) error {
	if (e.DocumentID == "") == (e.SourceMaterialID == "") {
		return fmt.Errorf("extraction must reference exactly one document or source material")
	}
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	keyPoints, err := json.Marshal(nonNil(e.KeyPoints))
	if err != nil {
		return fmt.Errorf("failed to marshal key points: %w", err)
	}
	topics, err := json.Marshal(nonNil(e.Topics))
	if err != nil {
		return fmt.Errorf("failed to marshal topics: %w", err)
	}

	b := sq.Insert("extractions").
		Columns("id", "user_id", "document_id", "source_material_id", "summary", "key_points", "topics", "model", "created_at", "archived_at").
		Values(e.ID, e.UserID, nullString(e.DocumentID), nullString(e.SourceMaterialID), e.Summary,
			string(keyPoints), string(topics), e.Model, millis(e.CreatedAt), nullMillis(e.ArchivedAt))
	if _, err := s.exec(ctx, b); err != nil {
		return fmt.Errorf("failed to insert extraction: %w", err)
	}
	return nil
}

// ExtractedDocumentIDs returns the IDs of a tenant's documents that already have an extraction.
func (s *Store) ExtractedDocumentIDs(ctx context.Context, userID string) ([]string, error) {
	return s.ids(ctx, sq.Select("document_id").From("extractions").
		Where(sq.Eq{"user_id": userID}).Where(sq.NotEq{"document_id": nil}))
}

// ExtractedMaterialIDs returns the IDs of a tenant's source materials that already have an extraction.
func (s *Store) ExtractedMaterialIDs(ctx context.Context, userID string) ([]string, error) {
	return s.ids(ctx, sq.Select("source_material_id").From("extractions").
		Where(sq.Eq{"user_id": userID}).Where(sq.NotEq{"source_material_id": nil}))
}

func (s *Store) ids(ctx context.Context, b sq.SelectBuilder) ([]string, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// RecentExtractions returns up to limit unarchived extractions of a tenant
// created at or after since, newest first, with the title and kind of what
// each was extracted from.
func (s *Store) RecentExtractions(ctx context.Context, userID string, since time.Time, limit int) ([]models.ExtractionContext, error) {
	cols := append([]string{}, extractionColumns...)
	cols = append(cols, "COALESCE(d.title, m.title, '')", "COALESCE(src.kind, m.kind, 'document')")

	b := sq.Select(cols...).From("extractions e").
		LeftJoin("documents d ON d.id = e.document_id").
		LeftJoin("sources src ON src.id = d.source_id").
		LeftJoin("source_materials m ON m.id = e.source_material_id").
		Where(sq.Eq{"e.user_id": userID, "e.archived_at": nil}).
		Where(sq.GtOrEq{"e.created_at": millis(since)}).
		OrderBy("e.created_at DESC", "e.id ASC").
		Limit(uint64(limit))

	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent extractions: %w", err)
	}
	defer rows.Close()

	var out []models.ExtractionContext
	for rows.Next() {
		var ec models.ExtractionContext
		if err := scanExtraction(rows, &ec.Extraction, &ec.SourceTitle, &ec.SourceKind); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

// EachExtraction calls fn for every extraction in the store.
func (s *Store) EachExtraction(ctx context.Context, fn func(models.Extraction) error) error {
	rows, err := s.query(ctx, sq.Select(extractionColumns...).From("extractions e").OrderBy("e.created_at ASC"))
	if err != nil {
		return fmt.Errorf("failed to list extractions: %w", err)
	}
	defer rows.Close()

	var all []models.Extraction
	for rows.Next() {
		var e models.Extraction
		if err := scanExtraction(rows, &e); err != nil {
			return err
		}
		all = append(all, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	// Rows are drained first: fn may call back into the store and there is one connection.
	rows.Close()

	for _, e := range all {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func scanExtraction(r scanner, e *models.Extraction, extra ...any) error {
	var (
		keyPoints, topics string
		created           int64
		archived          sql.NullInt64
	)
	dest := []any{&e.ID, &e.UserID, &e.DocumentID, &e.SourceMaterialID, &e.Summary, &keyPoints, &topics, &e.Model, &created, &archived}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return fmt.Errorf("failed to scan extraction: %w", err)
	}
	if err := json.Unmarshal([]byte(keyPoints), &e.KeyPoints); err != nil {
		return fmt.Errorf("bad key points for %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(topics), &e.Topics); err != nil {
		return fmt.Errorf("bad topics for %s: %w", e.ID, err)
	}
	e.CreatedAt = fromMillis(created)
	e.ArchivedAt = timePtr(archived)
	return nil
}
