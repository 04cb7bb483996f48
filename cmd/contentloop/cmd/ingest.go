package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/contentloop/internal/intake"
	"github.com/mfenderov/contentloop/pkg/models"
	"github.com/spf13/cobra"
)

var (
	ingestUser string
	ingestKind string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Upload transcripts, voice notes or notes as source material",
	Long: `Store files as source material for a tenant. The next pipeline pass
extracts insight from them alongside crawled documents.

HTML files are converted to Markdown. Markdown files take their title from
the first heading; other files from the file name.

Examples:
  # Meeting transcripts
  contentloop ingest --user 7f1c... --kind transcript standup-*.txt

  # Notes (the default kind)
  contentloop ingest --user 7f1c... ideas.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestUser, "user", "", "tenant that owns the material (required)")
	ingestCmd.Flags().StringVar(&ingestKind, "kind", models.MaterialKindNote, "transcript, voice_note or note")
	ingestCmd.MarkFlagRequired("user")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	s, err := openStore(ctx, &cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	slog.Debug("ingest command starting", "user_id", ingestUser, "kind", ingestKind, "files", len(args))
	res := intake.New(s).IngestFiles(ctx, ingestUser, ingestKind, args)

	fmt.Printf("Ingest complete:\n")
	fmt.Printf("  Materials stored: %d\n", len(res.Created))
	if len(res.Errors) > 0 {
		fmt.Printf("  Failed: %d\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	if len(res.Created) == 0 {
		return fmt.Errorf("no material stored")
	}
	return nil
}
