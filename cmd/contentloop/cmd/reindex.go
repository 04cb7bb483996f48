package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/contentloop/internal/reindex"
	"github.com/spf13/cobra"
)

var recreateIndex bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the insight search index",
	Long: `Index every stored extraction into Elasticsearch, with embeddings when
enabled. Use after changing the embedding model or when the index drifted.

Examples:
  contentloop reindex
  contentloop reindex --recreate`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().BoolVar(&recreateIndex, "recreate", false, "drop the index before rebuilding it")
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if !cfg.Elasticsearch.Enabled {
		return fmt.Errorf("elasticsearch is disabled; set elasticsearch.enabled to reindex")
	}

	s, err := openStore(ctx, &cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	index, err := newIndex(ctx, &cfg)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(&cfg)
	if err != nil {
		return err
	}

	engine := reindex.New(s, index, nil)
	if embedder != nil {
		engine = reindex.New(s, index, embedder)
	}

	res, err := engine.Run(ctx, recreateIndex)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("Indexed %d extractions in %s\n", res.Indexed, res.Duration)
	for _, e := range res.Errors {
		fmt.Printf("  - %s\n", e)
	}
	return nil
}
