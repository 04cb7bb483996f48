package pipeline

import (
	"context"
	"fmt"
)

// RetentionResult summarises a retention sweep.
type RetentionResult struct {
	DocumentsDeleted   int      `json:"documents_deleted"`
	ExtractionsDeleted int      `json:"extractions_deleted"`
	Errors             []string `json:"errors,omitempty"`
}

// Retain deletes documents older than the retention period together with
// their extractions. It is global and never retried within a run.
func (p *Pipeline) Retain(ctx context.Context) RetentionResult {
	var res RetentionResult
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	purged, err := p.deps.Store.DeleteDocumentsBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("retention failed", "cutoff", cutoff, "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("retention: %v", err))
		return res
	}
	res.DocumentsDeleted = purged.Documents
	res.ExtractionsDeleted = purged.Extractions
	if purged.Documents > 0 {
		p.logger.Info("retention sweep", "documents", purged.Documents, "extractions", purged.Extractions)
	}

	if p.deps.Indexer != nil && len(purged.ExtractionIDs) > 0 {
		if err := p.deps.Indexer.DeleteExtractions(ctx, purged.ExtractionIDs); err != nil {
			p.logger.Warn("failed to remove purged extractions from index", "count", len(purged.ExtractionIDs), "error", err)
		}
	}
	return res
}
