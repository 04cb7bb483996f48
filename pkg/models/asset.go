package models

import "time"

// AssetType is the kind of artifact a format produces.
type AssetType string

const (
	AssetTypeNewsletter AssetType = "newsletter"
	AssetTypeSocialPost AssetType = "social_post"
	AssetTypeArticle    AssetType = "article"
	AssetTypeScript     AssetType = "script"
)

// AssetStatus is the lifecycle state of an asset.
type AssetStatus string

const (
	AssetStatusDraft     AssetStatus = "draft"
	AssetStatusReady     AssetStatus = "ready"
	AssetStatusPublished AssetStatus = "published"
	AssetStatusArchived  AssetStatus = "archived"
)

// Asset is a generated content artifact.
type Asset struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Format       string      `json:"format"`
	Type         AssetType   `json:"type"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Status       AssetStatus `json:"status"`
	PublishedURL string      `json:"published_url,omitempty"`
	PublishedAt  *time.Time  `json:"published_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
