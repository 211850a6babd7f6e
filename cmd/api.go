package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codevectorizer/internal/adapter/inbound/api"
	inboundmsg "codevectorizer/internal/adapter/inbound/messaging"
	"codevectorizer/internal/adapter/outbound/messaging"
	"codevectorizer/internal/adapter/outbound/openai"
	"codevectorizer/internal/adapter/outbound/repository"
	"codevectorizer/internal/application/common/metrics"
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/application/service"
	"codevectorizer/internal/config"
	"codevectorizer/internal/version"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

const startupTimeout = 30 * time.Second

//nolint:gochecknoglobals // Standard Cobra CLI pattern.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the HTTP API server that accepts vectorization jobs and serves
semantic code search.

The server provides endpoints for:
- Health checks
- Vectorization job submission and status queries
- Similarity search across a tenant's repositories
- Tenant repository management

Configuration is loaded from config files and environment variables.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runAPIServer()
	},
}

//nolint:gochecknoinits // Standard Cobra CLI pattern.
func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPIServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer startCancel()

	pool, err := setupDatabasePool(startCtx, cfg)
	if err != nil {
		slogger.ErrorNoCtx("Failed to create database connection pool", slogger.Fields{"error": err.Error()})
		return err
	}
	defer pool.Close()

	publisher, err := messaging.NewPublisher(messaging.Config{
		URL:           cfg.NATS.URL,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
	})
	if err != nil {
		return err
	}
	if err := publisher.Connect(startCtx); err != nil {
		slogger.ErrorNoCtx("Failed to connect to NATS", slogger.Fields{"error": err.Error()})
		return err
	}
	defer func() { _ = publisher.Close() }()

	embedder, err := openai.NewClient(openai.ClientConfig{
		APIKey:               cfg.OpenAI.APIKey,
		BaseURL:              cfg.OpenAI.BaseURL,
		Model:                cfg.OpenAI.Model,
		BatchSize:            cfg.OpenAI.BatchSize,
		MaxConcurrentBatches: cfg.OpenAI.MaxConcurrentBatches,
		Timeout:              cfg.OpenAI.Timeout,
	})
	if err != nil {
		return err
	}

	pipelineMetrics, err := metrics.NewPipelineMetrics()
	if err != nil {
		return err
	}
	embedder = embedder.WithMetrics(pipelineMetrics)

	tenantStorage := repository.NewPostgreSQLTenantStorage(pool)
	chunkStore := repository.NewPostgreSQLChunkStore(pool)

	// Jobs run in worker processes; the listener mirrors their broadcast
	// state into this registry so status queries see worker progress.
	jobTracker := service.NewJobTracker()
	statusListener, err := inboundmsg.NewStatusListener(inboundmsg.StatusListenerConfig{
		URL: cfg.NATS.URL,
	}, jobTracker)
	if err != nil {
		return err
	}

	server, err := api.NewServerBuilder(cfg.API).
		WithVersion(version.Get().Version).
		WithVectorizationService(service.NewVectorizationApplicationService(
			jobTracker, publisher, pipelineMetrics)).
		WithSearchService(service.NewSearchApplicationService(embedder, chunkStore, tenantStorage)).
		WithTenantService(service.NewTenantApplicationService(tenantStorage)).
		WithHealthCheck("database", func(ctx context.Context) error {
			return pool.Ping(ctx)
		}).
		WithHealthCheck("nats", func(_ context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("NATS connection is down")
			}
			return nil
		}).
		WithDefaultMiddleware().
		Build()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := statusListener.Start(ctx); err != nil {
		slogger.ErrorNoCtx("Failed to start job status listener", slogger.Fields{"error": err.Error()})
		return err
	}
	defer func() { _ = statusListener.Stop(context.Background()) }()

	slogger.InfoNoCtx("Starting API server", slogger.Fields{
		"addr":    server.Address(),
		"version": version.Get().Version,
	})
	return server.Start(ctx)
}

// setupDatabasePool builds the shared connection pool used by every
// storage adapter.
func setupDatabasePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return repository.NewDatabaseConnection(ctx, repository.DatabaseConfig{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		Database:       cfg.Database.Name,
		Username:       cfg.Database.User,
		Password:       cfg.Database.Password,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections,
		MinConnections: cfg.Database.MinConnections,
	})
}
