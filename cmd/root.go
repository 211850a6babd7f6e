// Package cmd provides the command-line interface for the codevectorizer
// application.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//nolint:gochecknoglobals // Standard Cobra CLI pattern.
var (
	cfgFile string
	v       *viper.Viper
)

//nolint:gochecknoglobals // Standard Cobra CLI pattern.
var rootCmd = &cobra.Command{
	Use:   "codevectorizer",
	Short: "An incremental source-code vectorization system",
	Long: `Codevectorizer ingests source repositories, chunks their files, and
stores vector embeddings for semantic code search.

The system supports:
- Repository ingestion via Git
- Token-based chunking with configurable overlap
- Incremental reprocessing driven by content fingerprints
- Embedding generation against an OpenAI-compatible provider
- Vector storage and similarity search with PostgreSQL/pgvector
- Asynchronous job processing with NATS JetStream
- Per-tenant storage isolation through dedicated schemas`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Standard Cobra CLI pattern.
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
	}
	if err := viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-format flag: %v\n", err)
	}
}

func initConfig() {
	v = viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CODEVEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found; defaults and environment apply.
	}
}

// loadConfig builds the validated configuration and configures the global
// logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New(v)
	if err != nil {
		return nil, err
	}

	slogger.Configure(slogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.read_timeout", "30s")
	v.SetDefault("api.write_timeout", "30s")

	// Worker defaults
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue_group", "vectorize-workers")
	v.SetDefault("worker.durable_name", "vectorize-worker")
	v.SetDefault("worker.job_timeout", "30m")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "codevectorizer")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")

	// Embedding provider defaults
	v.SetDefault("openai.model", "text-embedding-3-small")
	v.SetDefault("openai.batch_size", 64)
	v.SetDefault("openai.max_concurrent_batches", 4)
	v.SetDefault("openai.timeout", "60s")

	// Chunking defaults
	v.SetDefault("chunking.max_tokens_per_chunk", 500)
	v.SetDefault("chunking.chunk_overlap_tokens", 50)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
