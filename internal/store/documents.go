package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mfenderov/contentloop/pkg/models"
)

var documentColumns = []string{
	"id", "user_id", "source_id", "url", "title", "body", "author", "published_at", "content_hash", "status", "created_at",
}

// InsertDocumentIfAbsent inserts doc unless the tenant already has a document
// with the same URL or content hash. It reports whether a row was written.
func (s *Store) InsertDocumentIfAbsent(ctx context.Context, doc *models.Document) (bool, error) {
	if doc.ID == "" {
		doc.ID = newID()
	}
	if doc.ContentHash == "" {
		doc.ContentHash = models.ContentHash(doc.Body)
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusParsed
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	b := sq.Insert("documents").Columns(documentColumns...).Values(
		doc.ID, doc.UserID, nullString(doc.SourceID), doc.URL, doc.Title, doc.Body, doc.Author,
		nullMillis(doc.PublishedAt), doc.ContentHash, doc.Status, millis(doc.CreatedAt),
	).Suffix("ON CONFLICT DO NOTHING")

	res, err := s.exec(ctx, b)
	if err != nil {
		return false, fmt.Errorf("failed to insert document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// ListUnextractedDocuments returns up to limit parsed documents of a tenant
// whose IDs are not in exclude, oldest first.
func (s *Store) ListUnextractedDocuments(ctx context.Context, userID string, exclude []string, limit int) ([]models.Document, error) {
	b := sq.Select(documentColumns...).From("documents").
		Where(sq.Eq{"user_id": userID, "status": models.DocumentStatusParsed}).
		Where(sq.NotEq{"id": exclude}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit))
	return s.listDocuments(ctx, b)
}

// ListDocuments returns all documents of a tenant, oldest first.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	return s.listDocuments(ctx, sq.Select(documentColumns...).From("documents").
		Where(sq.Eq{"user_id": userID}).OrderBy("created_at ASC", "id ASC"))
}

func (s *Store) listDocuments(ctx context.Context, b sq.SelectBuilder) ([]models.Document, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var (
			d         models.Document
			sourceID  sql.NullString
			published sql.NullInt64
			created   int64
		)
		if err := rows.Scan(&d.ID, &d.UserID, &sourceID, &d.URL, &d.Title, &d.Body, &d.Author,
			&published, &d.ContentHash, &d.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.SourceID = sourceID.String
		d.PublishedAt = timePtr(published)
		d.CreatedAt = fromMillis(created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Purged describes what a retention sweep removed.
type Purged struct {
	Documents     int
	Extractions   int
	ExtractionIDs []string
}

// DeleteDocumentsBefore removes every document created before cutoff together
// with the extractions that reference them, in one transaction. Extractions
// go first so no row is left pointing at a missing document.
func (s *Store) DeleteDocumentsBefore(ctx context.Context, cutoff time.Time) (*Purged, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stale := sq.Expr("document_id IN (SELECT id FROM documents WHERE created_at < ?)", millis(cutoff))

	query, args, err := sq.Select("id").From("extractions").Where(stale).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale extractions: %w", err)
	}
	purged := &Purged{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan extraction id: %w", err)
		}
		purged.ExtractionIDs = append(purged.ExtractionIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query, args, err = sq.Delete("extractions").Where(stale).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete extractions: %w", err)
	}
	n, _ := res.RowsAffected()
	purged.Extractions = int(n)

	query, args, err = sq.Delete("documents").Where(sq.Lt{"created_at": millis(cutoff)}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	res, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete documents: %w", err)
	}
	n, _ = res.RowsAffected()
	purged.Documents = int(n)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit retention: %w", err)
	}
	return purged, nil
}
