// Package intake registers what the pipeline works on: tenant settings,
// sources, prompt template overrides and uploaded source materials.
package intake

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mfenderov/contentloop/internal/fetcher"
	"github.com/mfenderov/contentloop/internal/formats"
	"github.com/mfenderov/contentloop/internal/processor"
	"github.com/mfenderov/contentloop/internal/prompts"
	"github.com/mfenderov/contentloop/internal/schedule"
	"github.com/mfenderov/contentloop/internal/store"
	"github.com/mfenderov/contentloop/pkg/models"
)

// Store is the persistence intake writes to.
type Store interface {
	GetSettings(ctx context.Context, userID string) (*models.Settings, error)
	UpsertSettings(ctx context.Context, st models.Settings) error
	CreateSource(ctx context.Context, src *models.Source) error
	CreateSourceMaterial(ctx context.Context, m *models.SourceMaterial) error
	PutPromptTemplate(ctx context.Context, t store.PromptTemplate) error
}

// Service validates operator input before it reaches the store.
type Service struct {
	store     Store
	processor *processor.Processor
	now       func() time.Time
}

// New creates an intake service.
func New(s Store) *Service {
	return &Service{
		store:     s,
		processor: processor.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SettingsUpdate changes a tenant's settings. Nil fields are left as they are.
type SettingsUpdate struct {
	CrawlSchedule      *models.Cadence
	CrawlEnabled       *bool
	GenerationSchedule *models.Cadence
	GenerationTime     *string
	GenerationDay      *time.Weekday
	GenerationEnabled  *bool
	Formats            []string
	Timezone           *string
	ProfileContext     *string
}

// Configure creates or updates a tenant's settings. The pipeline's crawl and
// generation timestamps are never touched.
func (s *Service) Configure(ctx context.Context, userID string, u SettingsUpdate) (*models.Settings, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	st, err := s.store.GetSettings(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		st = &models.Settings{
			UserID:             userID,
			CrawlSchedule:      models.CadenceDaily,
			GenerationSchedule: models.CadenceDaily,
			GenerationTime:     schedule.DefaultGenerationTime,
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if u.CrawlSchedule != nil {
		st.CrawlSchedule = *u.CrawlSchedule
	}
	if u.CrawlEnabled != nil {
		st.CrawlEnabled = *u.CrawlEnabled
	}
	if u.GenerationSchedule != nil {
		st.GenerationSchedule = *u.GenerationSchedule
	}
	if u.GenerationTime != nil {
		st.GenerationTime = strings.TrimSpace(*u.GenerationTime)
	}
	if u.GenerationDay != nil {
		st.GenerationDay = *u.GenerationDay
	}
	if u.GenerationEnabled != nil {
		st.GenerationEnabled = *u.GenerationEnabled
	}
	if u.Formats != nil {
		keys, err := formatKeys(u.Formats)
		if err != nil {
			return nil, err
		}
		st.Formats = keys
	}
	if u.Timezone != nil {
		st.Timezone = strings.TrimSpace(*u.Timezone)
	}
	if u.ProfileContext != nil {
		st.ProfileContext = strings.TrimSpace(*u.ProfileContext)
	}

	if err := validateSettings(*st); err != nil {
		return nil, err
	}
	if err := s.store.UpsertSettings(ctx, *st); err != nil {
		return nil, err
	}
	return st, nil
}

func validateSettings(st models.Settings) error {
	if !st.CrawlSchedule.Valid() {
		return fmt.Errorf("unknown crawl schedule %q", st.CrawlSchedule)
	}
	if !st.GenerationSchedule.Valid() {
		return fmt.Errorf("unknown generation schedule %q", st.GenerationSchedule)
	}
	if _, ok := schedule.TargetHour(st.GenerationTime); !ok {
		return fmt.Errorf("generation time %q is not HH:MM", st.GenerationTime)
	}
	if st.GenerationDay < time.Sunday || st.GenerationDay > time.Saturday {
		return fmt.Errorf("generation day %d is out of range", st.GenerationDay)
	}
	if st.Timezone != "" {
		if _, err := time.LoadLocation(st.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", st.Timezone)
		}
	}
	if st.GenerationEnabled && len(st.Formats) == 0 {
		return fmt.Errorf("generation needs at least one format")
	}
	return nil
}

// formatKeys canonicalises format keys, dropping repeats and keeping order.
func formatKeys(keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		f, err := formats.Parse(k)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, f.Key()) {
			out = append(out, f.Key())
		}
	}
	return out, nil
}

// ParseWeekday accepts a weekday name ("monday", "Mon") or number (0 is Sunday).
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] || s == fmt.Sprint(int(d)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// AddSource registers a crawl target for an existing tenant. An empty kind is
// inferred from the URL and an empty name defaults to the URL's host.
func (s *Service) AddSource(ctx context.Context, src models.Source) (*models.Source, error) {
	if src.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	src.URL = strings.TrimSpace(src.URL)
	if src.URL == "" {
		return nil, fmt.Errorf("source url is required")
	}
	if _, err := s.store.GetSettings(ctx, src.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("tenant %s has no settings; configure it first", src.UserID)
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	switch src.Kind {
	case "":
		src.Kind = kindFor(src.URL)
	case models.SourceKindWeb, models.SourceKindTwitter, models.SourceKindReddit:
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
	if src.Kind == models.SourceKindWeb {
		u, err := url.Parse(src.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("web source needs an http(s) url, got %q", src.URL)
		}
	}
	if strings.TrimSpace(src.Name) == "" {
		src.Name = src.URL
		if u, err := url.Parse(src.URL); err == nil && u.Host != "" {
			src.Name = strings.TrimPrefix(u.Host, "www.")
		}
	}
	src.Status = models.SourceStatusActive
	src.CreatedAt = s.now()

	if err := s.store.CreateSource(ctx, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func kindFor(rawURL string) models.SourceKind {
	switch fetcher.StrategyFor(models.Source{URL: rawURL}) {
	case fetcher.StrategySocialSearch:
		return models.SourceKindTwitter
	case fetcher.StrategyForumListing:
		return models.SourceKindReddit
	}
	return models.SourceKindWeb
}

// SetTemplate stores a tenant's prompt template for a format. A disabled
// template suppresses the format's built-in default.
func (s *Service) SetTemplate(ctx context.Context, userID, formatKey, body string, enabled bool) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	f, err := formats.Parse(formatKey)
	if err != nil {
		return err
	}
	if enabled {
		if err := prompts.Validate(body); err != nil {
			return err
		}
	}
	return s.store.PutPromptTemplate(ctx, store.PromptTemplate{
		UserID:      userID,
		TemplateKey: f.TemplateKey(),
		Body:        body,
		Enabled:     enabled,
		UpdatedAt:   s.now(),
	})
}

// AddMaterial stores an uploaded source material for the next extraction pass.
// An empty kind is stored as a note.
func (s *Service) AddMaterial(ctx context.Context, m models.SourceMaterial) (*models.SourceMaterial, error) {
	if m.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	switch m.Kind {
	case "":
		m.Kind = models.MaterialKindNote
	case models.MaterialKindTranscript, models.MaterialKindVoiceNote, models.MaterialKindNote:
	default:
		return nil, fmt.Errorf("unknown material kind %q", m.Kind)
	}
	m.Body = strings.TrimSpace(m.Body)
	if m.Body == "" {
		return nil, fmt.Errorf("material body is empty")
	}
	m.Title = strings.TrimSpace(m.Title)
	m.CreatedAt = s.now()

	if err := s.store.CreateSourceMaterial(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Result summarises a file ingest.
type Result struct {
	Created []string `json:"created"`
	Errors  []string `json:"errors,omitempty"`
}

// IngestFiles stores each file as a source material of the given kind. HTML
// files are converted to Markdown. A file that cannot be read or stored is
// recorded and the rest continue.
func (s *Service) IngestFiles(ctx context.Context, userID, kind string, paths []string) *Result {
	res := &Result{}
	for _, path := range paths {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("file %s: %v", path, ctx.Err()))
			break
		}
		m, err := s.readMaterial(path)
		if err == nil {
			m.UserID, m.Kind = userID, kind
			m, err = s.AddMaterial(ctx, *m)
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("file %s: %v", path, err))
			continue
		}
		res.Created = append(res.Created, m.ID)
	}
	return res
}

func (s *Service) readMaterial(path string) (*models.SourceMaterial, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		page, err := s.processor.Process(path, "text/html", string(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to convert html: %w", err)
		}
		if page.Title != "" {
			title = page.Title
		}
		return &models.SourceMaterial{Title: title, Body: page.Body}, nil
	case ".md", ".markdown":
		page, err := s.processor.Process(path, "text/markdown", string(raw))
		if err != nil {
			return nil, err
		}
		if page.Title != "" {
			title = page.Title
		}
		return &models.SourceMaterial{Title: title, Body: page.Body}, nil
	}
	return &models.SourceMaterial{Title: title, Body: string(raw)}, nil
}
