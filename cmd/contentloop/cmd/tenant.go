package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mfenderov/contentloop/internal/intake"
	"github.com/mfenderov/contentloop/pkg/models"
	"github.com/spf13/cobra"
)

var tenantUser string

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Register tenants, their sources and prompt templates",
}

var (
	crawlSchedule      string
	crawlEnabled       bool
	generationSchedule string
	generationTime     string
	generationDay      string
	generationEnabled  bool
	tenantFormats      []string
	tenantTimezone     string
	tenantProfile      string
)

var tenantConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create or update a tenant's settings",
	Long: `Create or update a tenant's pipeline settings. Only the flags given are
changed; a new tenant starts with daily schedules at 09:00 and everything
disabled.

Cadences: manual, disabled, every_6_hours, every_12_hours, daily, weekly.
Formats: newsletter, linkedin_post, twitter_thread, blog_post, video_script,
podcast_script.

Example:
  contentloop tenant configure --user 7f1c... \
    --crawl-enabled --crawl-schedule every_12_hours \
    --generation-enabled --generation-schedule weekly --generation-day monday \
    --generation-time 08:30 --timezone Europe/Berlin \
    --formats newsletter,linkedin_post`,
	RunE: runTenantConfigure,
}

var (
	sourceURL      string
	sourceName     string
	sourceKind     string
	sourcePriority int
)

var tenantAddSourceCmd = &cobra.Command{
	Use:   "add-source",
	Short: "Add a crawl source to a tenant",
	Long: `Add a source. Without --kind the kind follows the URL: x.com and
twitter.com are searched as social sources, reddit.com is read as a forum
listing, anything else is crawled as a website.

Examples:
  contentloop tenant add-source --user 7f1c... --url https://go.dev/blog
  contentloop tenant add-source --user 7f1c... --url "https://x.com/search?q=golang" --priority 2`,
	RunE: runTenantAddSource,
}

var (
	templateFormat   string
	templateFile     string
	templateDisabled bool
)

var tenantSetTemplateCmd = &cobra.Command{
	Use:   "set-template",
	Short: "Override the prompt template for one format",
	Long: `Store a tenant's prompt template for a format. Templates use Go
text/template syntax with .Format, .AssetType, .UserID and .Date.
--disabled turns the format's prompt off, which skips it during generation.

Examples:
  contentloop tenant set-template --user 7f1c... --format newsletter --file newsletter.tmpl
  contentloop tenant set-template --user 7f1c... --format video_script --disabled`,
	RunE: runTenantSetTemplate,
}

func init() {
	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantConfigureCmd, tenantAddSourceCmd, tenantSetTemplateCmd)

	tenantCmd.PersistentFlags().StringVar(&tenantUser, "user", "", "tenant ID (required)")
	tenantCmd.MarkPersistentFlagRequired("user")

	f := tenantConfigureCmd.Flags()
	f.StringVar(&crawlSchedule, "crawl-schedule", "", "crawl cadence")
	f.BoolVar(&crawlEnabled, "crawl-enabled", false, "enable crawling and extraction")
	f.StringVar(&generationSchedule, "generation-schedule", "", "generation cadence")
	f.StringVar(&generationTime, "generation-time", "", "local time of day to generate (HH:MM)")
	f.StringVar(&generationDay, "generation-day", "", "weekday for weekly generation")
	f.BoolVar(&generationEnabled, "generation-enabled", false, "enable generation")
	f.StringSliceVar(&tenantFormats, "formats", nil, "formats to generate, in order")
	f.StringVar(&tenantTimezone, "timezone", "", "IANA timezone for the generation window")
	f.StringVar(&tenantProfile, "profile", "", "author context prepended to every prompt")

	f = tenantAddSourceCmd.Flags()
	f.StringVar(&sourceURL, "url", "", "source URL or search descriptor (required)")
	f.StringVar(&sourceName, "name", "", "display name (default: URL host)")
	f.StringVar(&sourceKind, "kind", "", "web, twitter or reddit (default: from URL)")
	f.IntVar(&sourcePriority, "priority", 0, "higher is crawled first among equally stale sources")
	tenantAddSourceCmd.MarkFlagRequired("url")

	f = tenantSetTemplateCmd.Flags()
	f.StringVar(&templateFormat, "format", "", "format key (required)")
	f.StringVar(&templateFile, "file", "", "template file")
	f.BoolVar(&templateDisabled, "disabled", false, "disable the format's prompt")
	tenantSetTemplateCmd.MarkFlagRequired("format")
}

func runTenantConfigure(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	flags := cmd.Flags()

	var u intake.SettingsUpdate
	if flags.Changed("crawl-schedule") {
		c := models.Cadence(crawlSchedule)
		u.CrawlSchedule = &c
	}
	if flags.Changed("crawl-enabled") {
		u.CrawlEnabled = &crawlEnabled
	}
	if flags.Changed("generation-schedule") {
		c := models.Cadence(generationSchedule)
		u.GenerationSchedule = &c
	}
	if flags.Changed("generation-time") {
		u.GenerationTime = &generationTime
	}
	if flags.Changed("generation-day") {
		d, err := intake.ParseWeekday(generationDay)
		if err != nil {
			return err
		}
		u.GenerationDay = &d
	}
	if flags.Changed("generation-enabled") {
		u.GenerationEnabled = &generationEnabled
	}
	if flags.Changed("formats") {
		u.Formats = append([]string{}, tenantFormats...)
	}
	if flags.Changed("timezone") {
		u.Timezone = &tenantTimezone
	}
	if flags.Changed("profile") {
		u.ProfileContext = &tenantProfile
	}

	cfg := GetConfig()
	s, err := openStore(ctx, &cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := intake.New(s).Configure(ctx, tenantUser, u)
	if err != nil {
		return fmt.Errorf("failed to configure tenant: %w", err)
	}
	return printJSON(st)
}

func runTenantAddSource(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := GetConfig()
	s, err := openStore(ctx, &cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	src, err := intake.New(s).AddSource(ctx, models.Source{
		UserID:   tenantUser,
		Name:     sourceName,
		URL:      sourceURL,
		Kind:     models.SourceKind(sourceKind),
		Priority: sourcePriority,
	})
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}
	return printJSON(src)
}

func runTenantSetTemplate(cmd *cobra.Command, args []string) error {
	var body string
	if !templateDisabled {
		if templateFile == "" {
			return fmt.Errorf("--file is required unless --disabled is set")
		}
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		body = string(data)
	}

	ctx := context.Background()
	cfg := GetConfig()
	s, err := openStore(ctx, &cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := intake.New(s).SetTemplate(ctx, tenantUser, templateFormat, body, !templateDisabled); err != nil {
		return fmt.Errorf("failed to set template: %w", err)
	}
	state := "enabled"
	if templateDisabled {
		state = "disabled"
	}
	fmt.Printf("Template for %s %s for %s\n", templateFormat, state, tenantUser)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
