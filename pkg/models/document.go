package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DocumentStatusParsed marks a document whose body is ready for extraction.
const DocumentStatusParsed = "parsed"

// Document represents one fetched unit of content owned by a tenant.
type Document struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	SourceID    string     `json:"source_id,omitempty"` // empty when not tied to a source
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ContentHash string     `json:"content_hash"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FetchedItem is what a fetcher returns for a single piece of content.
type FetchedItem struct {
	URL         string
	Title       string
	Body        string
	Author      string
	PublishedAt *time.Time
}

// ContentHash returns the stable hash used to deduplicate document bodies.
func ContentHash(body string) string {
	hash := sha256.Sum256([]byte(body))
	return hex.EncodeToString(hash[:])
}
