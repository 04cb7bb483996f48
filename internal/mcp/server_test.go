package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mfenderov/contentloop/internal/elasticsearch"
	"github.com/mfenderov/contentloop/internal/pipeline"
	"github.com/mfenderov/contentloop/pkg/models"
)

type fakeRunner struct {
	userID string
	err    error
}

func (f *fakeRunner) Trigger(_ context.Context, userID string) (*pipeline.RunResult, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.RunResult{Trigger: pipeline.TriggerManual, UserID: userID}, nil
}

func (f *fakeRunner) Status() pipeline.Status {
	return pipeline.Status{Running: true}
}

type fakeAssets []models.Asset

func (f fakeAssets) ListAssets(context.Context, string) ([]models.Asset, error) {
	return f, nil
}

type fakeSearcher struct {
	vector []float32
	userID string
}

func (f *fakeSearcher) HybridSearch(_ context.Context, _, userID string, vector []float32, _ int) ([]elasticsearch.Insight, error) {
	f.vector = vector
	f.userID = userID
	return []elasticsearch.Insight{{ID: "e1", UserID: userID, Summary: "hit", Embedding: []float32{9}}}, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1}, nil }

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestNewServer_Validation(t *testing.T) {
	if _, err := NewServer(Config{Name: "contentloop"}, Deps{Assets: fakeAssets{}}); err == nil {
		t.Error("NewServer() without runner should fail")
	}
	s, err := NewServer(Config{Name: "contentloop", Version: "test"}, Deps{Runner: &fakeRunner{}, Assets: fakeAssets{}})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if s.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
}

func TestTriggerHandler(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		args      map[string]any
		wantError bool
		wantUser  string
	}{
		{"all tenants", nil, map[string]any{}, false, ""},
		{"one tenant", nil, map[string]any{"user_id": "u1"}, false, "u1"},
		{"already running", pipeline.ErrAlreadyRunning, map[string]any{}, true, ""},
		{"failure", errors.New("boom"), map[string]any{}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{err: tt.err}
			s, _ := NewServer(Config{}, Deps{Runner: runner, Assets: fakeAssets{}})

			res, err := s.triggerHandler(t.Context(), call(tt.args))
			if err != nil {
				t.Fatalf("triggerHandler() error = %v", err)
			}
			if res.IsError != tt.wantError {
				t.Errorf("IsError = %v, want %v (%s)", res.IsError, tt.wantError, resultText(t, res))
			}
			if runner.userID != tt.wantUser {
				t.Errorf("triggered user = %q, want %q", runner.userID, tt.wantUser)
			}
		})
	}
}

func TestStatusHandler(t *testing.T) {
	s, _ := NewServer(Config{}, Deps{Runner: &fakeRunner{}, Assets: fakeAssets{}})
	res, err := s.statusHandler(t.Context(), call(nil))
	if err != nil {
		t.Fatalf("statusHandler() error = %v", err)
	}
	var st pipeline.Status
	if err := json.Unmarshal([]byte(resultText(t, res)), &st); err != nil {
		t.Fatalf("status is not JSON: %v", err)
	}
	if !st.Running {
		t.Error("status should report running")
	}
}

func TestListAssetsHandler(t *testing.T) {
	assets := fakeAssets{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}
	s, _ := NewServer(Config{}, Deps{Runner: &fakeRunner{}, Assets: assets})

	res, _ := s.listAssetsHandler(t.Context(), call(map[string]any{}))
	if !res.IsError {
		t.Error("missing user_id should be an error result")
	}

	res, _ = s.listAssetsHandler(t.Context(), call(map[string]any{"user_id": "u1", "limit": 2}))
	var got []models.Asset
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("assets are not JSON: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d assets, want 2", len(got))
	}
}

func TestSearchHandler(t *testing.T) {
	searcher := &fakeSearcher{}
	s, _ := NewServer(Config{}, Deps{Runner: &fakeRunner{}, Assets: fakeAssets{}, Searcher: searcher, Embedder: fakeEmbedder{}})

	res, _ := s.searchHandler(t.Context(), call(map[string]any{"query": "go"}))
	if !res.IsError {
		t.Error("missing user_id should be an error result")
	}

	res, err := s.searchHandler(t.Context(), call(map[string]any{"query": "go", "user_id": "u1"}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, `"summary":"hit"`) || strings.Contains(text, "embedding") {
		t.Errorf("result = %s, want the hit without its vector", text)
	}
	if searcher.userID != "u1" || len(searcher.vector) != 1 {
		t.Errorf("search user/vector = %q/%v", searcher.userID, searcher.vector)
	}
}

type fakeMaterials struct {
	got models.SourceMaterial
}

func (f *fakeMaterials) AddMaterial(_ context.Context, m models.SourceMaterial) (*models.SourceMaterial, error) {
	if m.Kind == "podcast" {
		return nil, errors.New(`unknown material kind "podcast"`)
	}
	f.got = m
	m.ID = "m1"
	return &m, nil
}

func TestAddMaterialHandler(t *testing.T) {
	materials := &fakeMaterials{}
	s, _ := NewServer(Config{}, Deps{Runner: &fakeRunner{}, Assets: fakeAssets{}, Materials: materials})

	tests := []struct {
		name      string
		args      map[string]any
		wantError string
	}{
		{"missing user", map[string]any{"body": "x"}, "user_id"},
		{"missing body", map[string]any{"user_id": "u1"}, "body"},
		{"bad kind", map[string]any{"user_id": "u1", "body": "x", "kind": "podcast"}, "add material failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.addMaterialHandler(t.Context(), call(tt.args))
			if err != nil {
				t.Fatalf("addMaterialHandler() error = %v", err)
			}
			if !res.IsError || !strings.Contains(resultText(t, res), tt.wantError) {
				t.Errorf("result = %q, want error mentioning %q", resultText(t, res), tt.wantError)
			}
		})
	}

	res, err := s.addMaterialHandler(t.Context(), call(map[string]any{
		"user_id": "u1",
		"body":    "standup notes",
		"title":   "Standup",
		"kind":    "transcript",
	}))
	if err != nil || res.IsError {
		t.Fatalf("addMaterialHandler() = %v, %v", resultText(t, res), err)
	}
	var got models.SourceMaterial
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("material is not JSON: %v", err)
	}
	if got.ID != "m1" || materials.got.Kind != "transcript" || materials.got.Title != "Standup" {
		t.Errorf("stored %+v, returned %+v", materials.got, got)
	}
}
