package models

import "time"

// SourceKind selects how a source is fetched.
type SourceKind string

const (
	SourceKindWeb     SourceKind = "web"
	SourceKindTwitter SourceKind = "twitter"
	SourceKindReddit  SourceKind = "reddit"
)

// IsSocial reports whether the kind is a social platform search.
func (k SourceKind) IsSocial() bool {
	return k == SourceKindTwitter
}

// SourceStatus is the operator-controlled state of a source.
type SourceStatus string

const (
	SourceStatusActive  SourceStatus = "active"
	SourceStatusPaused  SourceStatus = "paused"
	SourceStatusBlocked SourceStatus = "blocked"
)

// Source is a crawl target owned by a tenant.
type Source struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Name          string       `json:"name"`
	URL           string       `json:"url"`
	Kind          SourceKind   `json:"kind"`
	Priority      int          `json:"priority"`
	Status        SourceStatus `json:"status"`
	LastCrawledAt *time.Time   `json:"last_crawled_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

const (
	MaterialKindTranscript = "transcript"
	MaterialKindVoiceNote  = "voice_note"
	MaterialKindNote       = "note"
)

// SourceMaterial is content uploaded by a tenant rather than crawled,
// such as a meeting transcript or a voice note.
type SourceMaterial struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"` // transcript, voice_note, note
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
