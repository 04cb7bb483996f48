package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mfenderov/contentloop/internal/formats"
	"github.com/mfenderov/contentloop/internal/prompts"
	"github.com/mfenderov/contentloop/internal/schedule"
	"github.com/mfenderov/contentloop/pkg/models"
)

// GenerationResult summarises a generation stage.
type GenerationResult struct {
	TenantsGenerated int      `json:"tenants_generated"`
	AssetsCreated    int      `json:"assets_created"`
	Errors           []string `json:"errors,omitempty"`
}

// Generate produces draft assets for every tenant whose generation is due.
func (p *Pipeline) Generate(ctx context.Context, opts Options) GenerationResult {
	var res GenerationResult

	tenants, skipped, err := p.tenants(ctx, opts, p.deps.Store.ListGenerationEnabled, func(s models.Settings) bool {
		return s.GenerationEnabled && len(s.Formats) > 0
	})
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
		forced := opts.UserID != "" && opts.UserID == s.UserID
		if !forced && !schedule.ShouldGenerate(s, now) {
			continue
		}
		p.generateTenant(ctx, s, now, &res)
	}
	return res
}

func (p *Pipeline) generateTenant(ctx context.Context, s models.Settings, now time.Time, res *GenerationResult) {
	log := p.logger.With("user_id", s.UserID)

	extractions, err := p.deps.Store.RecentExtractions(ctx, s.UserID, now.Add(-p.config.ExtractionWindow), p.config.GenerationContext)
	if err != nil {
		log.Error("failed to load extractions", "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("user %s: list extractions: %v", s.UserID, err))
		return
	}
	if len(extractions) == 0 {
		log.Debug("no recent extractions, skipping generation")
		return
	}

	log.Info("generating assets", "formats", len(s.Formats), "extractions", len(extractions))
	for _, key := range s.Formats {
		if ctx.Err() != nil {
			break
		}
		if err := p.generateFormat(ctx, s, key, extractions, now, res); err != nil {
			log.Warn("generation failed", "format", key, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("format %s: %v", key, err))
		}
	}

	if err := p.deps.Store.MarkGenerated(ctx, s.UserID, now); err != nil {
		log.Error("failed to mark generated", "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("user %s: mark generated: %v", s.UserID, err))
		return
	}
	res.TenantsGenerated++
}

func (p *Pipeline) generateFormat(ctx context.Context, s models.Settings, key string, extractions []models.ExtractionContext, now time.Time, res *GenerationResult) error {
	f, err := formats.Parse(key)
	if err != nil {
		return err
	}
	rendered, ok, err := p.deps.Renderer.Render(ctx, f, s.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no prompt template")
	}

	g, err := p.deps.Generator.Generate(ctx, prompts.Build(s.ProfileContext, rendered, extractions))
	if err != nil {
		return err
	}

	asset := &models.Asset{
		UserID:    s.UserID,
		Format:    f.Key(),
		Type:      f.AssetType(),
		Title:     g.Title,
		Content:   g.Content,
		Status:    models.AssetStatusDraft,
		CreatedAt: now,
	}
	if err := p.deps.Store.InsertAsset(ctx, asset); err != nil {
		return err
	}
	res.AssetsCreated++

	if p.deps.Archiver != nil {
		if objectKey, err := p.deps.Archiver.PutAsset(ctx, *asset); err != nil {
			p.logger.Warn("failed to archive asset", "asset_id", asset.ID, "error", err)
		} else {
			p.logger.Debug("asset archived", "asset_id", asset.ID, "key", objectKey)
		}
	}
	return nil
}
