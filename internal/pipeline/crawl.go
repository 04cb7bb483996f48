package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mfenderov/contentloop/internal/schedule"
	"github.com/mfenderov/contentloop/pkg/models"
)

// CrawlResult summarises a crawl stage.
type CrawlResult struct {
	TenantsCrawled   int      `json:"tenants_crawled"`
	SourcesCrawled   int      `json:"sources_crawled"`
	DocumentsFound   int      `json:"documents_found"`
	DocumentsCreated int      `json:"documents_created"`
	Duplicates       int      `json:"duplicates"`
	Errors           []string `json:"errors,omitempty"`
}

// Crawl fetches new documents for every tenant whose crawl is due.
func (p *Pipeline) Crawl(ctx context.Context, opts Options) CrawlResult {
	var res CrawlResult

	tenants, skipped, err := p.tenants(ctx, opts, p.deps.Store.ListCrawlEnabled, func(s models.Settings) bool { return s.CrawlEnabled })
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("list tenants: %v", err))
		return res
	}
	res.Errors = append(res.Errors, skipped...)

	now := p.now()
	for _, s := range tenants {
		if ctx.Err() != nil {
			break
		}
		if !opts.Force && !schedule.ShouldCrawl(s.CrawlSchedule, s.LastCrawlAt, now) {
			continue
		}
		p.crawlTenant(ctx, s.UserID, now, &res)
	}
	return res
}

func (p *Pipeline) crawlTenant(ctx context.Context, userID string, now time.Time, res *CrawlResult) {
	log := p.logger.With("user_id", userID)

	sources, err := p.deps.Store.ListActiveSources(ctx, userID)
	if err != nil {
		log.Error("failed to list sources", "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("user %s: list sources: %v", userID, err))
		return
	}

	selected := SelectSources(sources, p.config.MaxSourcesPerRun)
	log.Info("crawling tenant", "sources", len(selected), "active", len(sources))

	for i, src := range selected {
		if i > 0 {
			if err := p.sleep(ctx, p.config.SourceDelay); err != nil {
				break
			}
		}
		if err := p.crawlSource(ctx, src, now, res); err != nil {
			log.Warn("source failed", "source", src.Name, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("source %s: %v", src.Name, err))
		}
	}

	// An interrupted crawl leaves LastCrawlAt alone so the next pass retries the tenant.
	if ctx.Err() != nil {
		log.Info("crawl interrupted", "error", ctx.Err())
		return
	}

	if err := p.deps.Store.MarkCrawled(ctx, userID, now); err != nil {
		log.Error("failed to mark crawled", "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("user %s: mark crawled: %v", userID, err))
		return
	}
	res.TenantsCrawled++
}

// crawlSource fetches one source and stores the items it has not seen. The
// source's freshness marker moves only when the fetch itself succeeded.
func (p *Pipeline) crawlSource(ctx context.Context, src models.Source, now time.Time, res *CrawlResult) error {
	f, err := p.deps.Fetchers.Resolve(src)
	if err != nil {
		return err
	}
	items, err := f.Fetch(ctx, src, p.config.ItemsPerSource)
	if err != nil {
		return err
	}
	res.SourcesCrawled++
	res.DocumentsFound += len(items)

	var insertErr error
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = item.URL
		}
		doc := &models.Document{
			UserID:      src.UserID,
			SourceID:    src.ID,
			URL:         item.URL,
			Title:       title,
			Body:        item.Body,
			Author:      item.Author,
			PublishedAt: item.PublishedAt,
			ContentHash: models.ContentHash(item.Body),
			Status:      models.DocumentStatusParsed,
			CreatedAt:   now,
		}
		created, err := p.deps.Store.InsertDocumentIfAbsent(ctx, doc)
		if err != nil {
			insertErr = fmt.Errorf("item %s: %w", item.URL, err)
			continue
		}
		if created {
			res.DocumentsCreated++
		} else {
			res.Duplicates++
		}
	}

	if err := p.deps.Store.MarkSourceCrawled(ctx, src.ID, now); err != nil {
		return fmt.Errorf("mark crawled: %w", err)
	}
	return insertErr
}

// SelectSources picks up to limit sources: social sources first, then the
// rest, each group keeping the stalest-first order of the input.
func SelectSources(sources []models.Source, limit int) []models.Source {
	out := make([]models.Source, 0, min(limit, len(sources)))
	for _, social := range []bool{true, false} {
		for _, src := range sources {
			if len(out) == limit {
				return out
			}
			if src.Kind.IsSocial() == social {
				out = append(out, src)
			}
		}
	}
	return out
}
