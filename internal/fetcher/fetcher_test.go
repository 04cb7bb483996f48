package fetcher

import (
	"context"
	"testing"

	"github.com/mfenderov/contentloop/pkg/models"
)

type stubFetcher struct{ name string }

func (s stubFetcher) Fetch(ctx context.Context, src models.Source, limit int) ([]models.FetchedItem, error) {
	return []models.FetchedItem{{URL: s.name}}, nil
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		name string
		src  models.Source
		want Strategy
	}{
		{"twitter kind", models.Source{Kind: models.SourceKindTwitter, URL: "golang"}, StrategySocialSearch},
		{"reddit kind", models.Source{Kind: models.SourceKindReddit, URL: "golang"}, StrategyForumListing},
		{"web kind with x.com url", models.Source{Kind: models.SourceKindWeb, URL: "https://x.com/golang"}, StrategySocialSearch},
		{"untyped twitter url", models.Source{URL: "https://www.twitter.com/search?q=go"}, StrategySocialSearch},
		{"untyped reddit url", models.Source{URL: "https://old.reddit.com/r/golang"}, StrategyForumListing},
		{"blog", models.Source{Kind: models.SourceKindWeb, URL: "https://go.dev/blog"}, StrategyGenericCrawl},
		{"lookalike host", models.Source{URL: "https://notreddit.com/r/x"}, StrategyGenericCrawl},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StrategyFor(tt.src); got != tt.want {
				t.Errorf("StrategyFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.Register(StrategyGenericCrawl, stubFetcher{"crawl"})
	r.Register(StrategyForumListing, stubFetcher{"forum"})

	f, err := r.Resolve(models.Source{Kind: models.SourceKindReddit, URL: "golang"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	items, _ := f.Fetch(t.Context(), models.Source{}, 1)
	if items[0].URL != "forum" {
		t.Errorf("resolved %q, want forum", items[0].URL)
	}

	if _, err := r.Resolve(models.Source{Kind: models.SourceKindTwitter}); err == nil {
		t.Error("Resolve() should fail when the strategy has no fetcher")
	}
}
