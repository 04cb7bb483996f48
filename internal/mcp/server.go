// Package mcp exposes pipeline operations as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/contentloop/internal/elasticsearch"
	"github.com/mfenderov/contentloop/internal/pipeline"
	"github.com/mfenderov/contentloop/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Runner triggers and reports pipeline runs.
type Runner interface {
	Trigger(ctx context.Context, userID string) (*pipeline.RunResult, error)
	Status() pipeline.Status
}

// Searcher queries the insight index.
type Searcher interface {
	HybridSearch(ctx context.Context, query, userID string, vector []float32, limit int) ([]elasticsearch.Insight, error)
}

// AssetLister reads a tenant's generated assets.
type AssetLister interface {
	ListAssets(ctx context.Context, userID string) ([]models.Asset, error)
}

// MaterialAdder stores uploaded source material.
type MaterialAdder interface {
	AddMaterial(ctx context.Context, m models.SourceMaterial) (*models.SourceMaterial, error)
}

// Deps are the server's collaborators. Searcher, Embedder and Materials may be nil.
type Deps struct {
	Runner    Runner
	Assets    AssetLister
	Searcher  Searcher
	Embedder  pipeline.Embedder
	Materials MaterialAdder
}

// Server wraps the MCP server with pipeline tools.
type Server struct {
	mcpServer *server.MCPServer
	deps      Deps
}

// NewServer creates an MCP server. search_insights is only registered when a
// Searcher is configured.
func NewServer(config Config, deps Deps) (*Server, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if deps.Assets == nil {
		return nil, fmt.Errorf("asset lister is required")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)
	s := &Server{mcpServer: mcpServer, deps: deps}

	mcpServer.AddTool(mcp.NewTool("trigger_run",
		mcp.WithDescription("Run the content pipeline now: crawl, extract, generate and retention. Crawling ignores schedules. With user_id the run covers only that tenant and also ignores its generation schedule."),
		mcp.WithString("user_id",
			mcp.Description("Limit the run to this tenant"),
		),
	), s.triggerHandler)

	mcpServer.AddTool(mcp.NewTool("run_status",
		mcp.WithDescription("Report whether a pipeline run is in progress and the result of the last run"),
	), s.statusHandler)

	mcpServer.AddTool(mcp.NewTool("list_assets",
		mcp.WithDescription("List a tenant's generated assets, newest first"),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Tenant ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of assets to return (default: 20)"),
		),
	), s.listAssetsHandler)

	if deps.Searcher != nil {
		mcpServer.AddTool(mcp.NewTool("search_insights",
			mcp.WithDescription("Search a tenant's extracted insights (summaries, key points, topics)"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query string"),
			),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("Tenant ID"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results to return (default: 10)"),
			),
		), s.searchHandler)
	}

	if deps.Materials != nil {
		mcpServer.AddTool(mcp.NewTool("add_material",
			mcp.WithDescription("Store a transcript, voice note or note for a tenant. The next pipeline run extracts insight from it."),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("Tenant ID"),
			),
			mcp.WithString("body",
				mcp.Required(),
				mcp.Description("Material text"),
			),
			mcp.WithString("title",
				mcp.Description("Short title"),
			),
			mcp.WithString("kind",
				mcp.Description("transcript, voice_note or note (default: note)"),
			),
		), s.addMaterialHandler)
	}

	return s, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) triggerHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	slog.Info("manual run requested", "user_id", userID)

	res, err := s.deps.Runner.Trigger(ctx, userID)
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		return mcp.NewToolResultError("a pipeline run is already in progress"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	return jsonResult(res)
}

func (s *Server) statusHandler(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.deps.Runner.Status())
}

func (s *Server) listAssetsHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id parameter is required"), nil
	}
	limit := req.GetInt("limit", 20)

	assets, err := s.deps.Assets.ListAssets(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list assets failed: %v", err)), nil
	}
	if limit > 0 && len(assets) > limit {
		assets = assets[:limit]
	}
	return jsonResult(assets)
}

func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id parameter is required"), nil
	}
	limit := req.GetInt("limit", 10)

	var vector []float32
	if s.deps.Embedder != nil {
		vector, err = s.deps.Embedder.Embed(ctx, query)
		if err != nil {
			slog.Warn("failed to embed query, using text search", "error", err)
			vector = nil
		}
	}

	insights, err := s.deps.Searcher.HybridSearch(ctx, query, userID, vector, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	for i := range insights {
		insights[i].Embedding = nil
	}
	return jsonResult(insights)
}

func (s *Server) addMaterialHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id parameter is required"), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError("body parameter is required"), nil
	}

	m, err := s.deps.Materials.AddMaterial(ctx, models.SourceMaterial{
		UserID: userID,
		Kind:   req.GetString("kind", ""),
		Title:  req.GetString("title", ""),
		Body:   body,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("add material failed: %v", err)), nil
	}
	slog.Info("material added", "user_id", userID, "material_id", m.ID, "kind", m.Kind)
	return jsonResult(m)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
