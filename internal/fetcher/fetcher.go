// Package fetcher selects and runs the fetch strategy for a source.
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mfenderov/contentloop/pkg/models"
)

// Strategy names how a source is fetched.
type Strategy string

const (
	StrategySocialSearch Strategy = "social-search"
	StrategyForumListing Strategy = "forum-listing"
	StrategyGenericCrawl Strategy = "generic-crawl"
)

// Fetcher returns at most limit items for a source.
type Fetcher interface {
	Fetch(ctx context.Context, src models.Source, limit int) ([]models.FetchedItem, error)
}

// Registry maps strategies to their implementations.
type Registry struct {
	fetchers map[Strategy]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[Strategy]Fetcher{}}
}

// Register adds or replaces the fetcher for a strategy.
func (r *Registry) Register(s Strategy, f Fetcher) {
	r.fetchers[s] = f
}

// Resolve returns the fetcher for a source or an error if its strategy has none.
func (r *Registry) Resolve(src models.Source) (Fetcher, error) {
	s := StrategyFor(src)
	if f, ok := r.fetchers[s]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for %s", s)
}

// StrategyFor picks the strategy from the source kind, falling back to the
// URL host for untyped or web sources.
func StrategyFor(src models.Source) Strategy {
	switch src.Kind {
	case models.SourceKindTwitter:
		return StrategySocialSearch
	case models.SourceKindReddit:
		return StrategyForumListing
	}

	host := src.URL
	if u, err := url.Parse(src.URL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	switch {
	case host == "x.com" || host == "twitter.com" || host == "mobile.twitter.com":
		return StrategySocialSearch
	case host == "reddit.com" || strings.HasSuffix(host, ".reddit.com"):
		return StrategyForumListing
	}
	return StrategyGenericCrawl
}
