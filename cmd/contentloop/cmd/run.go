package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfenderov/contentloop/internal/events"
	"github.com/mfenderov/contentloop/internal/pipeline"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler in the foreground",
	Long: `Start the pipeline scheduler. Every tick it crawls tenants whose crawl
cadence has elapsed, extracts new documents, generates assets for tenants
inside their generation window and applies retention.

Stops on SIGINT or SIGTERM after the current stage step.

Example:
  contentloop run -v`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	a, err := buildApp(ctx, &cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	done := startScheduler(ctx, a.coordinator, cfg.Pipeline.TickInterval)
	<-ctx.Done()
	slog.Info("shutting down, waiting for the current run")
	<-done
	return nil
}

// startScheduler runs the tick loop and logs each completed run in the
// background. The returned channel is closed once the loop has returned,
// including any run that was in flight when ctx was cancelled, and its
// events have been logged.
func startScheduler(ctx context.Context, c *pipeline.Coordinator, interval time.Duration) <-chan struct{} {
	completed := make(chan events.RunCompleted, 8)
	c.Notify(completed)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := c.Run(ctx, interval); err != nil {
			slog.Error("scheduler stopped", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev := <-completed:
				logRunCompleted(ev)
			case <-stopped:
				for {
					select {
					case ev := <-completed:
						logRunCompleted(ev)
					default:
						return
					}
				}
			}
		}
	}()

	slog.Info("scheduler started", "interval", interval)
	return done
}

func logRunCompleted(ev events.RunCompleted) {
	attrs := []any{
		"trigger", ev.Trigger,
		"duration", ev.Duration,
		"documents_created", ev.DocumentsCreated,
		"extracted", ev.Extracted,
		"assets_created", ev.AssetsCreated,
		"documents_deleted", ev.DocumentsDeleted,
		"errors", len(ev.Errors),
	}
	if ev.UserID != "" {
		attrs = append(attrs, "user_id", ev.UserID)
	}
	if len(ev.Errors) > 0 {
		slog.Warn("run completed with errors", attrs...)
		for _, e := range ev.Errors {
			slog.Warn("run error", "error", e)
		}
		return
	}
	slog.Info("run completed", attrs...)
}
