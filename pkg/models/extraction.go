package models

import "time"

// Extraction is the structured insight derived from one document or source material.
// Exactly one of DocumentID and SourceMaterialID is set.
type Extraction struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	DocumentID       string     `json:"document_id,omitempty"`
	SourceMaterialID string     `json:"source_material_id,omitempty"`
	Summary          string     `json:"summary"`
	KeyPoints        []string   `json:"key_points"`
	Topics           []string   `json:"topics"`
	Model            string     `json:"model"`
	CreatedAt        time.Time  `json:"created_at"`
	ArchivedAt       *time.Time `json:"archived_at,omitempty"`
	Embedding        []float32  `json:"embedding,omitempty"` // search index only, never stored in SQL
}

// ExtractionContext is an extraction joined with the title and kind of
// whatever it was extracted from.
type ExtractionContext struct {
	Extraction
	SourceTitle string `json:"source_title"`
	SourceKind  string `json:"source_kind"`
}
