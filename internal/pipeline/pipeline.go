// Package pipeline runs the background content loop: crawl sources, extract
// insight from new documents, generate assets on schedule and retire old data.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenderov/contentloop/internal/fetcher"
	"github.com/mfenderov/contentloop/internal/formats"
	"github.com/mfenderov/contentloop/internal/llm"
	"github.com/mfenderov/contentloop/internal/store"
	"github.com/mfenderov/contentloop/pkg/models"
)

// Store is the persistence the stages need.
type Store interface {
	ListCrawlEnabled(ctx context.Context) ([]models.Settings, []store.InvalidSettingsError, error)
	ListGenerationEnabled(ctx context.Context) ([]models.Settings, []store.InvalidSettingsError, error)
	GetSettings(ctx context.Context, userID string) (*models.Settings, error)
	MarkCrawled(ctx context.Context, userID string, at time.Time) error
	MarkGenerated(ctx context.Context, userID string, at time.Time) error

	ListActiveSources(ctx context.Context, userID string) ([]models.Source, error)
	MarkSourceCrawled(ctx context.Context, sourceID string, at time.Time) error
	InsertDocumentIfAbsent(ctx context.Context, doc *models.Document) (bool, error)

	ExtractedDocumentIDs(ctx context.Context, userID string) ([]string, error)
	ExtractedMaterialIDs(ctx context.Context, userID string) ([]string, error)
	ListUnextractedDocuments(ctx context.Context, userID string, exclude []string, limit int) ([]models.Document, error)
	ListUnextractedMaterials(ctx context.Context, userID string, exclude []string, limit int) ([]models.SourceMaterial, error)
	InsertExtraction(ctx context.Context, e *models.Extraction) error

	RecentExtractions(ctx context.Context, userID string, since time.Time, limit int) ([]models.ExtractionContext, error)
	InsertAsset(ctx context.Context, a *models.Asset) error

	DeleteDocumentsBefore(ctx context.Context, cutoff time.Time) (*store.Purged, error)
}

// Resolver picks the fetcher for a source.
type Resolver interface {
	Resolve(src models.Source) (fetcher.Fetcher, error)
}

// Extractor turns text into structured insight.
type Extractor interface {
	Extract(ctx context.Context, text, kindHint string) (*llm.Insight, error)
	Model() string
}

// Generator turns a prompt into content.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*llm.Generated, error)
}

// Renderer produces the prompt template for a tenant and format.
// ok is false when there is nothing to render.
type Renderer interface {
	Render(ctx context.Context, f formats.Format, userID string) (prompt string, ok bool, err error)
}

// Indexer mirrors extractions into a search index.
type Indexer interface {
	IndexExtraction(ctx context.Context, e models.Extraction) error
	DeleteExtractions(ctx context.Context, ids []string) error
}

// Embedder produces vectors for indexed extractions.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Archiver copies generated assets to object storage.
type Archiver interface {
	PutAsset(ctx context.Context, a models.Asset) (string, error)
}

// Config holds the pipeline's limits and intervals.
type Config struct {
	MaxSourcesPerRun  int           // sources crawled per tenant per run
	ItemsPerSource    int           // items requested from each fetch
	SourceDelay       time.Duration // pause between sources of one tenant; negative disables
	ExtractionBatch   int           // extractions per tenant per run
	GenerationContext int           // extractions fed into each prompt
	ExtractionWindow  time.Duration // how far back generation looks
	RetentionDays     int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxSourcesPerRun:  8,
		ItemsPerSource:    10,
		SourceDelay:       5 * time.Second,
		ExtractionBatch:   10,
		GenerationContext: 10,
		ExtractionWindow:  7 * 24 * time.Hour,
		RetentionDays:     30,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxSourcesPerRun <= 0 {
		c.MaxSourcesPerRun = d.MaxSourcesPerRun
	}
	if c.ItemsPerSource <= 0 {
		c.ItemsPerSource = d.ItemsPerSource
	}
	if c.SourceDelay < 0 {
		c.SourceDelay = 0
	} else if c.SourceDelay == 0 {
		c.SourceDelay = d.SourceDelay
	}
	if c.ExtractionBatch <= 0 {
		c.ExtractionBatch = d.ExtractionBatch
	}
	if c.GenerationContext <= 0 {
		c.GenerationContext = d.GenerationContext
	}
	if c.ExtractionWindow <= 0 {
		c.ExtractionWindow = d.ExtractionWindow
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = d.RetentionDays
	}
	return c
}

// Deps are the collaborators of a Pipeline. Indexer, Embedder and Archiver
// are optional; leave them nil to disable.
type Deps struct {
	Store     Store
	Fetchers  Resolver
	Extractor Extractor
	Generator Generator
	Renderer  Renderer
	Indexer   Indexer
	Embedder  Embedder
	Archiver  Archiver
	Logger    *slog.Logger
}

// Pipeline runs the individual stages. It holds no run state; see Coordinator.
type Pipeline struct {
	config Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a pipeline. Store, Fetchers, Extractor, Generator and Renderer are required.
func New(config Config, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("store is required")
	case deps.Fetchers == nil:
		return nil, fmt.Errorf("fetchers are required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	case deps.Generator == nil:
		return nil, fmt.Errorf("generator is required")
	case deps.Renderer == nil:
		return nil, fmt.Errorf("renderer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		config: config.withDefaults(),
		deps:   deps,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		sleep:  sleepContext,
	}, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options scope a single run.
type Options struct {
	// Force admits every crawl-enabled tenant regardless of cadence.
	Force bool
	// UserID limits the run to one tenant and bypasses its generation schedule.
	UserID string
}

type tenantLister func(context.Context) ([]models.Settings, []store.InvalidSettingsError, error)

// tenants returns the settings a stage iterates. A scoped run loads the one
// tenant and keeps it only if include accepts it. Tenants with undecodable
// settings are skipped; each one becomes a labeled entry in skipped.
func (p *Pipeline) tenants(ctx context.Context, opts Options, list tenantLister, include func(models.Settings) bool) (settings []models.Settings, skipped []string, err error) {
	if opts.UserID != "" {
		s, err := p.deps.Store.GetSettings(ctx, opts.UserID)
		if err != nil {
			return nil, nil, err
		}
		if !include(*s) {
			return nil, nil, nil
		}
		return []models.Settings{*s}, nil, nil
	}

	settings, invalid, err := list(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, bad := range invalid {
		p.logger.Error("skipping tenant with invalid settings", "user_id", bad.UserID, "error", bad.Err)
		skipped = append(skipped, fmt.Sprintf("user %s: invalid settings: %v", bad.UserID, bad.Err))
	}
	return settings, skipped, nil
}
