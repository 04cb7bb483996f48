package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfenderov/contentloop/internal/config"
	"github.com/mfenderov/contentloop/internal/elasticsearch"
	"github.com/mfenderov/contentloop/internal/embeddings"
	"github.com/mfenderov/contentloop/internal/fetcher"
	"github.com/mfenderov/contentloop/internal/llm"
	"github.com/mfenderov/contentloop/internal/pipeline"
	"github.com/mfenderov/contentloop/internal/prompts"
	"github.com/mfenderov/contentloop/internal/scraper"
	"github.com/mfenderov/contentloop/internal/storage"
	"github.com/mfenderov/contentloop/internal/store"
)

// app holds the long-lived clients a command needs. Optional clients are
// nil when disabled in config.
type app struct {
	store       *store.Store
	index       *elasticsearch.Client
	embedder    *embeddings.Client
	coordinator *pipeline.Coordinator
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("database %s is not reachable: %w", cfg.Database.Path, err)
	}
	return s, nil
}

func newEmbedder(cfg *config.Config) (*embeddings.Client, error) {
	if !cfg.Embeddings.Enabled {
		return nil, nil
	}
	c, err := embeddings.New(embeddings.Config{
		SocketPath: cfg.Embeddings.SocketPath,
		BaseURL:    cfg.Embeddings.BaseURL,
		APIKey:     cfg.Embeddings.APIKey,
		Model:      cfg.Embeddings.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}
	slog.Info("embeddings enabled", "model", cfg.Embeddings.Model)
	return c, nil
}

func newIndex(ctx context.Context, cfg *config.Config) (*elasticsearch.Client, error) {
	if !cfg.Elasticsearch.Enabled {
		return nil, nil
	}
	c, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Dims:      embeddings.Dimensions(cfg.Embeddings.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	if err := c.CreateIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return c, nil
}

func newArchive(ctx context.Context, cfg *config.Config) (*storage.Client, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	c, err := storage.New(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}
	return c, nil
}

func newFetchers(cfg *config.Config) (*fetcher.Registry, error) {
	reg := fetcher.NewRegistry()
	reg.Register(fetcher.StrategyGenericCrawl, scraper.New(scraper.Config{
		Delay:       cfg.Scraper.Delay,
		MaxDepth:    cfg.Scraper.MaxDepth,
		FollowLinks: cfg.Scraper.FollowLinks,
		UserAgent:   cfg.Scraper.UserAgent,
		Timeout:     cfg.Scraper.Timeout,
	}))
	reg.Register(fetcher.StrategyForumListing, fetcher.NewReddit(fetcher.RedditConfig{
		BaseURL:   cfg.Forum.BaseURL,
		UserAgent: cfg.Forum.UserAgent,
		Timeout:   cfg.Forum.Timeout,
	}))
	if cfg.Social.Enabled {
		tw, err := fetcher.NewTwitter(fetcher.TwitterConfig{
			BaseURL:     cfg.Social.BaseURL,
			BearerToken: cfg.Social.BearerToken,
			Timeout:     cfg.Social.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create social fetcher: %w", err)
		}
		reg.Register(fetcher.StrategySocialSearch, tw)
	}
	return reg, nil
}

// buildApp wires the store, the model clients and the optional index and
// archive into a coordinator.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	llmClient, err := llm.New(llm.Config{
		SocketPath: cfg.LLM.SocketPath,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	fetchers, err := newFetchers(cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	index, err := newIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	archive, err := newArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Store:     s,
		Fetchers:  fetchers,
		Extractor: llmClient,
		Generator: llmClient,
		Renderer:  prompts.NewRenderer(s),
		Logger:    slog.Default(),
	}
	// Typed nil pointers must not reach the interface fields.
	if index != nil {
		deps.Indexer = index
		if embedder != nil {
			deps.Embedder = embedder
		}
	}
	if archive != nil {
		deps.Archiver = archive
	}

	p, err := pipeline.New(cfg.Pipeline.PipelineConfig(), deps)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return &app{
		store:       s,
		index:       index,
		embedder:    embedder,
		coordinator: pipeline.NewCoordinator(p),
	}, nil
}
