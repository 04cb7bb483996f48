// Package reindex rebuilds the search index from the extractions in the store.
package reindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenderov/contentloop/internal/pipeline"
	"github.com/mfenderov/contentloop/pkg/models"
)

// Source walks every stored extraction.
type Source interface {
	EachExtraction(ctx context.Context, fn func(models.Extraction) error) error
}

// Index is the search index being rebuilt.
type Index interface {
	CreateIndex(ctx context.Context) error
	DeleteIndex(ctx context.Context) error
	IndexExtraction(ctx context.Context, e models.Extraction) error
	Refresh(ctx context.Context) error
}

// Result holds reindex execution results.
type Result struct {
	Indexed  int
	Duration time.Duration
	Errors   []string
}

// Engine copies extractions from the store into the index.
type Engine struct {
	source   Source
	index    Index
	embedder pipeline.Embedder // nil if embeddings disabled
}

// New creates a reindex engine.
func New(source Source, index Index, embedder pipeline.Embedder) *Engine {
	return &Engine{source: source, index: index, embedder: embedder}
}

// Run indexes every extraction. With recreate the index is dropped first,
// which also clears entries whose extractions no longer exist.
func (e *Engine) Run(ctx context.Context, recreate bool) (*Result, error) {
	start := time.Now()
	result := &Result{}

	slog.Info("starting reindex", "recreate", recreate)

	if recreate {
		if err := e.index.DeleteIndex(ctx); err != nil {
			return nil, fmt.Errorf("failed to delete index: %w", err)
		}
	}
	if err := e.index.CreateIndex(ctx); err != nil {
		return nil, err
	}

	err := e.source.EachExtraction(ctx, func(x models.Extraction) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if x.ArchivedAt != nil {
			return nil
		}
		if e.embedder != nil {
			vec, err := e.embedder.Embed(ctx, pipeline.EmbeddingText(x))
			if err != nil {
				slog.Warn("failed to generate embedding", "extraction_id", x.ID, "error", err)
			} else {
				x.Embedding = vec
			}
		}
		if err := e.index.IndexExtraction(ctx, x); err != nil {
			slog.Error("failed to index extraction", "extraction_id", x.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("extraction %s: %v", x.ID, err))
			return nil
		}
		result.Indexed++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk extractions: %w", err)
	}

	if err := e.index.Refresh(ctx); err != nil {
		slog.Warn("failed to refresh index", "error", err)
	}

	result.Duration = time.Since(start)
	slog.Info("reindex complete",
		"indexed", result.Indexed,
		"duration", result.Duration,
		"errors", len(result.Errors))

	return result, nil
}
