package formats

import (
	"testing"

	"github.com/mfenderov/contentloop/pkg/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		key       string
		want      Format
		wantType  models.AssetType
		wantError bool
	}{
		{"newsletter", Newsletter, models.AssetTypeNewsletter, false},
		{"LinkedIn-Post", LinkedInPost, models.AssetTypeSocialPost, false},
		{" twitter_thread ", TwitterThread, models.AssetTypeSocialPost, false},
		{"video_script", VideoScript, models.AssetTypeScript, false},
		{"blog_post", BlogPost, models.AssetTypeArticle, false},
		{"tiktok_dance", Format{}, "", true},
		{"", Format{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := Parse(tt.key)
			if (err != nil) != tt.wantError {
				t.Fatalf("Parse(%q) error = %v, wantError %v", tt.key, err, tt.wantError)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.key, got, tt.want)
			}
			if got.AssetType() != tt.wantType {
				t.Errorf("AssetType() = %q, want %q", got.AssetType(), tt.wantType)
			}
			if got.Valid() == tt.wantError {
				t.Errorf("Valid() = %v", got.Valid())
			}
		})
	}
}

func TestAll_EveryFormatHasTemplateAndType(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range All() {
		if f.TemplateKey() == "" || f.AssetType() == "" {
			t.Errorf("format %q is missing a template key or asset type", f.Key())
		}
		if seen[f.Key()] {
			t.Errorf("duplicate format key %q", f.Key())
		}
		seen[f.Key()] = true
	}
}
