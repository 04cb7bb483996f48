package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mfenderov/contentloop/internal/formats"
	"github.com/mfenderov/contentloop/internal/store"
	"github.com/mfenderov/contentloop/pkg/models"
)

type fakeTemplates struct {
	templates map[string]store.PromptTemplate
	err       error
}

func (f *fakeTemplates) GetPromptTemplate(_ context.Context, userID, key string) (*store.PromptTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.templates[userID+"/"+key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func TestRender(t *testing.T) {
	fake := &fakeTemplates{templates: map[string]store.PromptTemplate{
		"u1/newsletter":   {Body: "Custom {{.Format}} for {{.UserID}} on {{.Date}}", Enabled: true},
		"u1/blog_post":    {Body: "off", Enabled: false},
		"u1/video_script": {Body: "{{.Missing}}", Enabled: true},
	}}
	r := NewRenderer(fake).WithDefaults(map[string]string{
		"newsletter":    "default newsletter",
		"linkedin_post": "default {{.AssetType}}",
		"blog_post":     "default blog",
	})
	r.now = func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name    string
		format  formats.Format
		user    string
		want    string
		wantOK  bool
		wantErr bool
	}{
		{"override", formats.Newsletter, "u1", "Custom newsletter for u1 on May 4, 2026", true, false},
		{"default", formats.Newsletter, "u2", "default newsletter", true, false},
		{"default with data", formats.LinkedInPost, "u1", "default social_post", true, false},
		{"disabled override", formats.BlogPost, "u1", "", false, false},
		{"no template", formats.PodcastScript, "u1", "", false, false},
		{"invalid format", formats.Format{}, "u1", "", false, false},
		{"bad field", formats.VideoScript, "u1", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := r.Render(t.Context(), tt.format, tt.user)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Errorf("Render() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_StoreError(t *testing.T) {
	r := NewRenderer(&fakeTemplates{err: errors.New("db down")})
	if _, _, err := r.Render(t.Context(), formats.Newsletter, "u1"); err == nil {
		t.Error("Render() should surface store errors")
	}
}

func TestDefaults_CoverEveryFormat(t *testing.T) {
	d := Defaults()
	for _, f := range formats.All() {
		if strings.TrimSpace(d[f.TemplateKey()]) == "" {
			t.Errorf("no default template for %s", f.TemplateKey())
		}
	}
}

func TestBuild(t *testing.T) {
	got := Build("I write about Go.", "Write a post.", []models.ExtractionContext{
		{
			Extraction:  models.Extraction{Summary: "Generics landed.", KeyPoints: []string{"type params"}, Topics: []string{"go", "generics"}},
			SourceTitle: "Go 1.18",
			SourceKind:  "document",
		},
		{Extraction: models.Extraction{Summary: "Standup notes."}, SourceKind: "transcript"},
	})

	for _, want := range []string{
		"About the author:\nI write about Go.",
		"Write a post.",
		"1. Go 1.18 (document)",
		"- type params",
		"Topics: go, generics",
		"2. untitled (transcript)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Build() missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "About the author") > strings.Index(got, "Write a post.") {
		t.Error("profile should precede the rendered template")
	}
}

func TestBuild_NoProfile(t *testing.T) {
	got := Build("  ", "Write.", nil)
	if strings.Contains(got, "About the author") {
		t.Errorf("Build() with empty profile = %q", got)
	}
}

func TestBuild_TruncatesOnRuneBoundary(t *testing.T) {
	summary := "a" + strings.Repeat("é", 700)
	got := Build("", "Write.", []models.ExtractionContext{
		{Extraction: models.Extraction{Summary: summary}, SourceTitle: "Notes", SourceKind: "note"},
	})

	if !utf8.ValidString(got) {
		t.Fatal("Build() produced invalid UTF-8")
	}
	want := "a" + strings.Repeat("é", maxSummaryChars-1) + "..."
	if !strings.Contains(got, want+"\n") {
		t.Errorf("summary not cut to %d runes", maxSummaryChars)
	}
	if strings.Contains(got, strings.Repeat("é", maxSummaryChars)) {
		t.Error("summary longer than the limit")
	}
}

func TestBuild_ShortSummaryUntouched(t *testing.T) {
	got := Build("", "Write.", []models.ExtractionContext{
		{Extraction: models.Extraction{Summary: "Kurz und gut: Übersicht"}, SourceKind: "note"},
	})
	if !strings.Contains(got, "Kurz und gut: Übersicht\n") || strings.Contains(got, "...") {
		t.Errorf("Build() altered a short summary:\n%s", got)
	}
}
