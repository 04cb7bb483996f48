// Package config defines contentloop's configuration and its defaults.
package config

import (
	"fmt"
	"time"

	"github.com/mfenderov/contentloop/internal/pipeline"
)

// Config holds all application configuration.
type Config struct {
	Database      Database      `mapstructure:"database"`
	LLM           LLM           `mapstructure:"llm"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Storage       Storage       `mapstructure:"storage"`
	Scraper       Scraper       `mapstructure:"scraper"`
	Social        Social        `mapstructure:"social"`
	Forum         Forum         `mapstructure:"forum"`
	Pipeline      Pipeline      `mapstructure:"pipeline"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Database holds the SQLite location.
type Database struct {
	Path string `mapstructure:"path"`
}

// LLM holds the chat model used for extraction and generation.
// Use SocketPath for Docker Model Runner, or BaseURL and APIKey for a hosted API.
type LLM struct {
	SocketPath string        `mapstructure:"socket_path"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Embeddings holds the embedding model used for the insight index.
type Embeddings struct {
	Enabled    bool   `mapstructure:"enabled"`
	SocketPath string `mapstructure:"socket_path"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
}

// Elasticsearch holds the insight index connection.
type Elasticsearch struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Storage holds the S3/MinIO asset archive.
type Storage struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Scraper holds generic web crawl configuration.
type Scraper struct {
	Delay       time.Duration `mapstructure:"delay"`
	MaxDepth    int           `mapstructure:"max_depth"`
	FollowLinks bool          `mapstructure:"follow_links"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// Social holds the Twitter/X recent-search client.
type Social struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	BearerToken string        `mapstructure:"bearer_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Forum holds the Reddit listing client.
type Forum struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Pipeline holds the orchestrator's limits and tick interval.
type Pipeline struct {
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	MaxSourcesPerRun  int           `mapstructure:"max_sources_per_run"`
	ItemsPerSource    int           `mapstructure:"items_per_source"`
	SourceDelay       time.Duration `mapstructure:"source_delay"`
	ExtractionBatch   int           `mapstructure:"extraction_batch"`
	GenerationContext int           `mapstructure:"generation_context"`
	ExtractionWindow  time.Duration `mapstructure:"extraction_window"`
	RetentionDays     int           `mapstructure:"retention_days"`
}

// PipelineConfig converts to the pipeline package's config.
func (p Pipeline) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		MaxSourcesPerRun:  p.MaxSourcesPerRun,
		ItemsPerSource:    p.ItemsPerSource,
		SourceDelay:       p.SourceDelay,
		ExtractionBatch:   p.ExtractionBatch,
		GenerationContext: p.GenerationContext,
		ExtractionWindow:  p.ExtractionWindow,
		RetentionDays:     p.RetentionDays,
	}
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	p := pipeline.DefaultConfig()
	return Config{
		Database: Database{
			Path: "contentloop.db",
		},
		LLM: LLM{
			Model:   "ai/gemma3",
			Timeout: 2 * time.Minute,
		},
		Embeddings: Embeddings{
			Enabled: false, // requires a Docker Model Runner socket or an API key
			Model:   "ai/embeddinggemma",
		},
		Elasticsearch: Elasticsearch{
			Enabled:   false,
			Addresses: []string{"http://localhost:9200"},
			Index:     "contentloop-insights",
		},
		Storage: Storage{
			Enabled:         false,
			Endpoint:        "localhost:9000",
			Bucket:          "contentloop",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
		},
		Scraper: Scraper{
			Delay:       time.Second,
			MaxDepth:    2,
			FollowLinks: true,
			Timeout:     30 * time.Second,
			UserAgent:   "contentloop/1.0",
		},
		Social: Social{
			Enabled: false, // requires a bearer token
			BaseURL: "https://api.x.com",
			Timeout: 30 * time.Second,
		},
		Forum: Forum{
			BaseURL:   "https://www.reddit.com",
			UserAgent: "contentloop/1.0",
			Timeout:   30 * time.Second,
		},
		Pipeline: Pipeline{
			TickInterval:      15 * time.Minute,
			MaxSourcesPerRun:  p.MaxSourcesPerRun,
			ItemsPerSource:    p.ItemsPerSource,
			SourceDelay:       p.SourceDelay,
			ExtractionBatch:   p.ExtractionBatch,
			GenerationContext: p.GenerationContext,
			ExtractionWindow:  p.ExtractionWindow,
			RetentionDays:     p.RetentionDays,
		},
		MCP: MCP{
			Name:    "contentloop",
			Version: "1.0.0",
		},
	}
}

// Validate reports settings that would make the daemon misbehave.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Pipeline.TickInterval < time.Minute {
		return fmt.Errorf("pipeline.tick_interval must be at least 1m, got %s", c.Pipeline.TickInterval)
	}
	if c.Elasticsearch.Enabled && len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch.addresses is required when elasticsearch is enabled")
	}
	if c.Social.Enabled && c.Social.BearerToken == "" {
		return fmt.Errorf("social.bearer_token is required when social is enabled")
	}
	return nil
}
