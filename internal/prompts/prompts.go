// Package prompts renders per-tenant generation prompts.
package prompts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/mfenderov/contentloop/internal/formats"
	"github.com/mfenderov/contentloop/internal/store"
	"github.com/mfenderov/contentloop/pkg/models"
)

// TemplateStore looks up tenant template overrides.
type TemplateStore interface {
	GetPromptTemplate(ctx context.Context, userID, key string) (*store.PromptTemplate, error)
}

// Data is what templates can reference.
type Data struct {
	Format    string
	AssetType string
	UserID    string
	Date      string
}

// Renderer resolves a template for a tenant and format and executes it.
// A tenant override wins over the built-in default; a disabled override
// renders nothing.
type Renderer struct {
	store    TemplateStore
	defaults map[string]string
	now      func() time.Time
}

// NewRenderer creates a renderer backed by the given template store.
func NewRenderer(s TemplateStore) *Renderer {
	return &Renderer{store: s, defaults: Defaults(), now: time.Now}
}

// WithDefaults replaces the built-in templates. Keys absent from m have no default.
func (r *Renderer) WithDefaults(m map[string]string) *Renderer {
	r.defaults = m
	return r
}

// Render returns the prompt for format f. ok is false when the tenant has
// disabled the template or no template exists for the format.
func (r *Renderer) Render(ctx context.Context, f formats.Format, userID string) (string, bool, error) {
	if !f.Valid() {
		return "", false, nil
	}

	body, ok := r.defaults[f.TemplateKey()]
	t, err := r.store.GetPromptTemplate(ctx, userID, f.TemplateKey())
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return "", false, fmt.Errorf("failed to load template %s: %w", f.TemplateKey(), err)
	case !t.Enabled:
		return "", false, nil
	default:
		body, ok = t.Body, true
	}
	if !ok || strings.TrimSpace(body) == "" {
		return "", false, nil
	}

	tmpl, err := template.New(f.TemplateKey()).Option("missingkey=error").Parse(body)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse template %s: %w", f.TemplateKey(), err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, Data{
		Format:    f.Key(),
		AssetType: string(f.AssetType()),
		UserID:    userID,
		Date:      r.now().Format("January 2, 2006"),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to render template %s: %w", f.TemplateKey(), err)
	}
	return strings.TrimSpace(buf.String()), true, nil
}

// Validate checks that body parses as a template.
func Validate(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("template is empty")
	}
	if _, err := template.New("validate").Option("missingkey=error").Parse(body); err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return nil
}

// maxSummaryChars bounds each extraction's share of the prompt.
const maxSummaryChars = 1200

// Build assembles the final prompt: profile context, the rendered template,
// then the extractions as numbered context entries.
func Build(profile, rendered string, extractions []models.ExtractionContext) string {
	var b strings.Builder
	if p := strings.TrimSpace(profile); p != "" {
		b.WriteString("About the author:\n")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString(rendered)
	b.WriteString("\n\nRecent insights:\n")
	for i, e := range extractions {
		title := e.SourceTitle
		if title == "" {
			title = "untitled"
		}
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", i+1, title, e.SourceKind)
		b.WriteString(truncate(e.Summary, maxSummaryChars))
		b.WriteString("\n")
		for _, kp := range e.KeyPoints {
			b.WriteString("- ")
			b.WriteString(kp)
			b.WriteString("\n")
		}
		if len(e.Topics) > 0 {
			b.WriteString("Topics: ")
			b.WriteString(strings.Join(e.Topics, ", "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
