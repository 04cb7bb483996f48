package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mfenderov/contentloop/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
	cfg       config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "contentloop",
	Short: "contentloop: a background content pipeline",
	Long: `contentloop crawls each tenant's sources, extracts insight from new
documents with an LLM, generates draft newsletters, posts and scripts on the
tenant's schedule, and retires old documents.

Commands:
  run      Run the scheduler in the foreground
  trigger  Run the pipeline once now
  serve    Start the MCP server (and the scheduler)
  reindex  Rebuild the insight search index
  migrate  Create or upgrade the database schema`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// .env is optional and only fills variables not already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/contentloop")
		viper.AddConfigPath(".")
	}

	// CONTENTLOOP_LLM_API_KEY -> llm.api_key
	viper.SetEnvPrefix("CONTENTLOOP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unmarshal only sees env vars for keys viper already knows about.
	for _, key := range []string{
		"database.path",
		"llm.socket_path", "llm.base_url", "llm.api_key", "llm.model", "llm.timeout",
		"embeddings.enabled", "embeddings.socket_path", "embeddings.base_url", "embeddings.api_key", "embeddings.model",
		"elasticsearch.enabled", "elasticsearch.index", "elasticsearch.username", "elasticsearch.password",
		"storage.enabled", "storage.endpoint", "storage.bucket", "storage.access_key_id", "storage.secret_access_key", "storage.use_ssl",
		"scraper.delay", "scraper.max_depth", "scraper.user_agent",
		"social.enabled", "social.base_url", "social.bearer_token",
		"forum.base_url", "forum.user_agent",
		"pipeline.tick_interval", "pipeline.source_delay", "pipeline.retention_days",
		"mcp.name", "mcp.version",
	} {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Comma-separated addresses from the environment.
	if addrs := os.Getenv("CONTENTLOOP_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
