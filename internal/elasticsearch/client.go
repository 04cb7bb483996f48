// Package elasticsearch maintains the searchable index of extractions.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/mfenderov/contentloop/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	// Dims is the embedding vector size for the dense_vector mapping.
	Dims int
}

// Client wraps the Elasticsearch client with insight index operations.
type Client struct {
	es    *elasticsearch.Client
	index string
	dims  int
}

// Insight is the indexed form of an extraction.
type Insight struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	DocumentID       string     `json:"document_id,omitempty"`
	SourceMaterialID string     `json:"source_material_id,omitempty"`
	Summary          string     `json:"summary"`
	KeyPoints        []string   `json:"key_points"`
	Topics           []string   `json:"topics"`
	Model            string     `json:"model,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Embedding        []float32  `json:"embedding,omitempty"`
	ArchivedAt       *time.Time `json:"archived_at,omitempty"`
}

// FromExtraction converts a stored extraction to its indexed form.
func FromExtraction(e models.Extraction) Insight {
	return Insight{
		ID:               e.ID,
		UserID:           e.UserID,
		DocumentID:       e.DocumentID,
		SourceMaterialID: e.SourceMaterialID,
		Summary:          e.Summary,
		KeyPoints:        e.KeyPoints,
		Topics:           e.Topics,
		Model:            e.Model,
		CreatedAt:        e.CreatedAt,
		Embedding:        e.Embedding,
		ArchivedAt:       e.ArchivedAt,
	}
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	if config.Index == "" {
		return nil, fmt.Errorf("index is required")
	}
	if config.Dims == 0 {
		config.Dims = 768
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{es: es, index: config.Index, dims: config.Dims}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

func indexMapping(dims int) string {
	return fmt.Sprintf(`{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"user_id": { "type": "keyword" },
			"document_id": { "type": "keyword" },
			"source_material_id": { "type": "keyword" },
			"summary": { "type": "text", "analyzer": "english" },
			"key_points": { "type": "text", "analyzer": "english" },
			"topics": { "type": "text", "analyzer": "english", "fields": { "raw": { "type": "keyword" } } },
			"model": { "type": "keyword" },
			"created_at": { "type": "date" },
			"archived_at": { "type": "date" },
			"embedding": {
				"type": "dense_vector",
				"dims": %d,
				"index": true,
				"similarity": "cosine"
			}
		}
	}
}`, dims)
}

// CreateIndex creates the index with its mapping. Existing indexes are left alone.
func (c *Client) CreateIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping(c.dims)))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}
	return nil
}

// DeleteIndex removes the index.
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// IndexExtraction indexes a single extraction under its own ID.
func (c *Client) IndexExtraction(ctx context.Context, e models.Extraction) error {
	data, err := json.Marshal(FromExtraction(e))
	if err != nil {
		return fmt.Errorf("failed to marshal insight: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(e.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index insight: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing insight (status %d): %s", res.StatusCode, res.String())
	}
	return nil
}

// DeleteExtractions removes the given extraction IDs from the index.
func (c *Client) DeleteExtractions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	data, err := json.Marshal(map[string]any{
		"query": map[string]any{"ids": map[string]any{"values": ids}},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.DeleteByQuery(
		[]string{c.index},
		bytes.NewReader(data),
		c.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete insights: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("error deleting insights: %s", res.String())
	}
	return nil
}

// Refresh forces an index refresh.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source Insight `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

var textFields = []string{"summary^2", "key_points", "topics^3"}

func userFilter(userID string) []map[string]any {
	return []map[string]any{{"term": map[string]any{"user_id": userID}}}
}

// searchBody builds a BM25 query scoped to one tenant.
func searchBody(query, userID string, limit int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{"query": query, "fields": textFields},
				},
				"filter": userFilter(userID),
			},
		},
		"size": limit,
	}
}

// hybridBody fuses BM25 and kNN results with reciprocal rank fusion.
func hybridBody(query, userID string, vector []float32, limit int) map[string]any {
	return map[string]any{
		"retriever": map[string]any{
			"rrf": map[string]any{
				"retrievers": []map[string]any{
					{"standard": map[string]any{"query": searchBody(query, userID, limit)["query"]}},
					{"knn": map[string]any{
						"field":          "embedding",
						"query_vector":   vector,
						"k":              limit,
						"num_candidates": limit * 2,
						"filter":         userFilter(userID),
					}},
				},
			},
		},
		"size": limit,
	}
}

// Search performs a BM25 search over one tenant's insights.
func (c *Client) Search(ctx context.Context, query, userID string, limit int) ([]Insight, error) {
	return c.search(ctx, searchBody(query, userID, limit))
}

// HybridSearch combines BM25 and vector search. A nil vector falls back to BM25.
func (c *Client) HybridSearch(ctx context.Context, query, userID string, vector []float32, limit int) ([]Insight, error) {
	if vector == nil {
		return c.Search(ctx, query, userID, limit)
	}
	return c.search(ctx, hybridBody(query, userID, vector, limit))
}

func (c *Client) search(ctx context.Context, body map[string]any) ([]Insight, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	insights := make([]Insight, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		insights[i] = hit.Source
	}
	return insights, nil
}
