package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/mfenderov/contentloop/pkg/models"
)

// ExtractionResult summarises an extraction stage.
type ExtractionResult struct {
	TenantsProcessed int      `json:"tenants_processed"`
	Extracted        int      `json:"extracted"`
	Errors           []string `json:"errors,omitempty"`
}

// Extract derives insight from documents and source materials that have none
// yet. It runs for every crawl-enabled tenant on every pass.
func (p *Pipeline) Extract(ctx context.Context, opts Options) ExtractionResult {
	var res ExtractionResult

	tenants, skipped, err := p.tenants(ctx, opts, p.deps.Store.ListCrawlEnabled, func(s models.Settings) bool { return s.CrawlEnabled })
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("list tenants: %v", err))
		return res
	}
	res.Errors = append(res.Errors, skipped...)

	for _, s := range tenants {
		if ctx.Err() != nil {
			break
		}
		p.extractTenant(ctx, s.UserID, &res)
	}
	return res
}

func (p *Pipeline) extractTenant(ctx context.Context, userID string, res *ExtractionResult) {
	log := p.logger.With("user_id", userID)
	budget := p.config.ExtractionBatch

	done, err := p.deps.Store.ExtractedDocumentIDs(ctx, userID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("user %s: list extractions: %v", userID, err))
		return
	}
	docs, err := p.deps.Store.ListUnextractedDocuments(ctx, userID, done, budget)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("user %s: list documents: %v", userID, err))
		return
	}
	res.TenantsProcessed++

	for _, doc := range docs {
		if ctx.Err() != nil {
			return
		}
		e := &models.Extraction{UserID: userID, DocumentID: doc.ID}
		if err := p.extractOne(ctx, e, doc.Body, "document"); err != nil {
			log.Warn("extraction failed", "document_id", doc.ID, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("document %s: %v", doc.ID, err))
			continue
		}
		res.Extracted++
	}

	budget -= len(docs)
	if budget <= 0 {
		return
	}

	done, err = p.deps.Store.ExtractedMaterialIDs(ctx, userID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("user %s: list extractions: %v", userID, err))
		return
	}
	materials, err := p.deps.Store.ListUnextractedMaterials(ctx, userID, done, budget)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("user %s: list source materials: %v", userID, err))
		return
	}
	for _, m := range materials {
		if ctx.Err() != nil {
			return
		}
		kind := m.Kind
		if kind == "" {
			kind = models.MaterialKindNote
		}
		e := &models.Extraction{UserID: userID, SourceMaterialID: m.ID}
		if err := p.extractOne(ctx, e, m.Title+"\n\n"+m.Body, kind); err != nil {
			log.Warn("extraction failed", "source_material_id", m.ID, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("source material %s: %v", m.ID, err))
			continue
		}
		res.Extracted++
	}
}

func (p *Pipeline) extractOne(ctx context.Context, e *models.Extraction, text, kindHint string) error {
	insight, err := p.deps.Extractor.Extract(ctx, text, kindHint)
	if err != nil {
		return err
	}
	e.Summary = insight.Summary
	e.KeyPoints = insight.KeyPoints
	e.Topics = insight.Topics
	e.Model = p.deps.Extractor.Model()
	e.CreatedAt = p.now()
	if err := p.deps.Store.InsertExtraction(ctx, e); err != nil {
		return err
	}
	p.index(ctx, *e)
	return nil
}

// index mirrors an extraction into the search index. Failures are logged;
// reindex rebuilds the index from the store.
func (p *Pipeline) index(ctx context.Context, e models.Extraction) {
	if p.deps.Indexer == nil {
		return
	}
	if p.deps.Embedder != nil {
		vec, err := p.deps.Embedder.Embed(ctx, EmbeddingText(e))
		if err != nil {
			p.logger.Warn("failed to embed extraction", "extraction_id", e.ID, "error", err)
		} else {
			e.Embedding = vec
		}
	}
	if err := p.deps.Indexer.IndexExtraction(ctx, e); err != nil {
		p.logger.Warn("failed to index extraction", "extraction_id", e.ID, "error", err)
	}
}

// EmbeddingText is the text embedded for an extraction.
func EmbeddingText(e models.Extraction) string {
	parts := append([]string{e.Summary}, e.KeyPoints...)
	if len(e.Topics) > 0 {
		parts = append(parts, strings.Join(e.Topics, ", "))
	}
	return strings.Join(parts, "\n")
}

