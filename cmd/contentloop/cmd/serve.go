package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/contentloop/internal/intake"
	"github.com/mfenderov/contentloop/internal/mcp"
	"github.com/spf13/cobra"
)

var noScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server over stdio, with the pipeline scheduler running
in the background.

Tools:
  - trigger_run: run the pipeline now, optionally for one tenant
  - run_status: whether a run is in progress and the last result
  - list_assets: a tenant's generated assets
  - search_insights: search a tenant's extractions (needs elasticsearch)
  - add_material: store a transcript, voice note or note for a tenant

Example:
  contentloop serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve tools only, without the background tick loop")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	a, err := buildApp(ctx, &cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := mcp.Deps{Runner: a.coordinator, Assets: a.store, Materials: intake.New(a.store)}
	if a.index != nil {
		deps.Searcher = a.index
		if a.embedder != nil {
			deps.Embedder = a.embedder
		}
	}
	server, err := mcp.NewServer(mcp.Config{Name: cfg.MCP.Name, Version: cfg.MCP.Version}, deps)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	var schedulerDone <-chan struct{}
	if !noScheduler {
		schedulerDone = startScheduler(ctx, a.coordinator, cfg.Pipeline.TickInterval)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")
	err = server.ServeStdio()

	// The store closes on return; let the scheduler finish with it first.
	stop()
	if schedulerDone != nil {
		<-schedulerDone
	}
	return err
}
