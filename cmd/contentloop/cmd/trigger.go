package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfenderov/contentloop/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	triggerUser string
	triggerJSON bool
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Run the pipeline once now",
	Long: `Run one full pass (crawl, extract, generate, retention) immediately.
Crawling ignores each tenant's cadence.

Examples:
  # All crawl-enabled tenants
  contentloop trigger

  # One tenant, also ignoring its generation schedule
  contentloop trigger --user 7f1c...

  # Machine-readable result
  contentloop trigger --json`,
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)

	triggerCmd.Flags().StringVar(&triggerUser, "user", "", "limit the run to one tenant")
	triggerCmd.Flags().BoolVar(&triggerJSON, "json", false, "print the run result as JSON")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	a, err := buildApp(ctx, &cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.coordinator.Trigger(ctx, triggerUser)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if triggerJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printRunResult(res)
	return nil
}

func printRunResult(res *pipeline.RunResult) {
	fmt.Printf("Run finished in %s\n", res.Duration().Round(time.Millisecond))
	fmt.Printf("  Crawl:      %d tenants, %d sources, %d documents found, %d new, %d duplicates\n",
		res.Crawl.TenantsCrawled, res.Crawl.SourcesCrawled, res.Crawl.DocumentsFound,
		res.Crawl.DocumentsCreated, res.Crawl.Duplicates)
	fmt.Printf("  Extraction: %d tenants, %d extracted\n", res.Extraction.TenantsProcessed, res.Extraction.Extracted)
	fmt.Printf("  Generation: %d tenants, %d assets\n", res.Generation.TenantsGenerated, res.Generation.AssetsCreated)
	fmt.Printf("  Retention:  %d documents, %d extractions deleted\n",
		res.Retention.DocumentsDeleted, res.Retention.ExtractionsDeleted)

	if errs := res.Errors(); len(errs) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(errs))
		for _, e := range errs {
			fmt.Printf("  - %s\n", e)
		}
	}
}
