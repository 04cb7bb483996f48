// Package formats defines the closed set of output formats a tenant can
// generate. Each format carries the asset type it produces and the key of
// the prompt template that drives it.
package formats

import (
	"fmt"
	"strings"

	"github.com/mfenderov/contentloop/pkg/models"
)

// Format is one generation output. The zero value is not a valid format;
// obtain formats from the package variables or Parse.
type Format struct {
	key         string
	assetType   models.AssetType
	templateKey string
}

var (
	Newsletter    = Format{"newsletter", models.AssetTypeNewsletter, "newsletter"}
	LinkedInPost  = Format{"linkedin_post", models.AssetTypeSocialPost, "linkedin_post"}
	TwitterThread = Format{"twitter_thread", models.AssetTypeSocialPost, "twitter_thread"}
	BlogPost      = Format{"blog_post", models.AssetTypeArticle, "blog_post"}
	VideoScript   = Format{"video_script", models.AssetTypeScript, "video_script"}
	PodcastScript = Format{"podcast_script", models.AssetTypeScript, "podcast_script"}
)

var all = []Format{Newsletter, LinkedInPost, TwitterThread, BlogPost, VideoScript, PodcastScript}

// All returns every known format in a stable order.
func All() []Format {
	out := make([]Format, len(all))
	copy(out, all)
	return out
}

// Parse resolves a format key. Keys are case-insensitive and accept '-' for '_'.
func Parse(key string) (Format, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
	for _, f := range all {
		if f.key == norm {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("unknown format %q", key)
}

// Key is the canonical key stored in tenant settings and on assets.
func (f Format) Key() string { return f.key }

// AssetType is the kind of asset the format produces.
func (f Format) AssetType() models.AssetType { return f.assetType }

// TemplateKey names the prompt template that drives the format.
func (f Format) TemplateKey() string { return f.templateKey }

// String returns the key.
func (f Format) String() string { return f.key }

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool { return f.key != "" }
