package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	inboundmsg "codevectorizer/internal/adapter/inbound/messaging"
	"codevectorizer/internal/adapter/outbound/filefilter"
	"codevectorizer/internal/adapter/outbound/gitclient"
	"codevectorizer/internal/adapter/outbound/messaging"
	"codevectorizer/internal/adapter/outbound/openai"
	"codevectorizer/internal/adapter/outbound/repository"
	"codevectorizer/internal/adapter/outbound/tokenizer"
	"codevectorizer/internal/application/common/metrics"
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/application/service"
	"codevectorizer/internal/application/worker"
	"codevectorizer/internal/config"
	"codevectorizer/internal/port/outbound"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const shutdownTimeout = 30 * time.Second

//nolint:gochecknoglobals // Standard Cobra CLI pattern.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker service",
	Long: `Start the background worker that processes vectorization jobs from
NATS JetStream.

The worker service:
- Consumes vectorization jobs from the work queue
- Clones repositories and discovers their text files
- Reprocesses only files whose content fingerprint changed
- Generates embeddings and stores them per tenant
- Retries failed jobs through queue redelivery

Configuration is loaded from config files and environment variables.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runWorkerService()
	},
}

//nolint:gochecknoinits // Standard Cobra CLI pattern.
func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorkerService() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slogger.InfoNoCtx("Starting worker service", slogger.Fields{
		"queue_group":  cfg.Worker.QueueGroup,
		"durable_name": cfg.Worker.DurableName,
	})

	meterShutdown, err := setupMeterProvider()
	if err != nil {
		return err
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), startupTimeout)
	pool, err := setupDatabasePool(startCtx, cfg)
	startCancel()
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
	connectCtx, connectCancel := context.WithTimeout(context.Background(), startupTimeout)
	err = publisher.Connect(connectCtx)
	connectCancel()
	if err != nil {
		slogger.ErrorNoCtx("Failed to connect to NATS", slogger.Fields{"error": err.Error()})
		return err
	}
	defer func() { _ = publisher.Close() }()

	consumer, tracker, err := createConsumer(cfg, pool)
	if err != nil {
		slogger.ErrorNoCtx("Failed to create consumer", slogger.Fields{"error": err.Error()})
		return err
	}

	// Job state lives in this process; broadcast every change so API
	// replicas can answer status queries for jobs running here.
	tracker.SetListener(func(snapshot service.JobSnapshot) {
		if err := publisher.PublishJobStatus(context.Background(), statusMessageOf(snapshot)); err != nil {
			slogger.WarnNoCtx("Failed to broadcast job status", slogger.Fields{
				"job_id": snapshot.JobID.String(),
				"error":  err.Error(),
			})
		}
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		slogger.ErrorNoCtx("Failed to start consumer", slogger.Fields{"error": err.Error()})
		return err
	}
	slogger.InfoNoCtx("Worker service started", nil)

	<-ctx.Done()
	slogger.InfoNoCtx("Received shutdown signal, stopping worker", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := consumer.Stop(shutdownCtx); err != nil {
		slogger.ErrorNoCtx("Error during consumer shutdown", slogger.Fields{"error": err.Error()})
	}
	if err := meterShutdown(shutdownCtx); err != nil {
		slogger.ErrorNoCtx("Error during meter provider shutdown", slogger.Fields{"error": err.Error()})
	}
	slogger.InfoNoCtx("Worker service stopped", nil)
	return nil
}

// setupMeterProvider installs the global OpenTelemetry meter provider and
// returns its shutdown function.
func setupMeterProvider() (func(context.Context) error, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("codevectorizer-worker"),
	))
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(metric.WithResource(res))
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

// createProcessor wires the full ingestion pipeline: git clone, file
// discovery, tokenization, embedding, and per-tenant storage.
func createProcessor(cfg *config.Config, pool *pgxpool.Pool) (*worker.Processor, *service.JobTracker, error) {
	gitClient, err := gitclient.NewClient(gitclient.Config{
		WorkspaceDir: cfg.Git.WorkspaceDir,
		Token:        cfg.Git.Token,
	})
	if err != nil {
		return nil, nil, err
	}

	embedder, err := openai.NewClient(openai.ClientConfig{
		APIKey:               cfg.OpenAI.APIKey,
		BaseURL:              cfg.OpenAI.BaseURL,
		Model:                cfg.OpenAI.Model,
		BatchSize:            cfg.OpenAI.BatchSize,
		MaxConcurrentBatches: cfg.OpenAI.MaxConcurrentBatches,
		Timeout:              cfg.OpenAI.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	pipelineMetrics, err := metrics.NewPipelineMetrics()
	if err != nil {
		return nil, nil, err
	}
	embedder = embedder.WithMetrics(pipelineMetrics)

	tracker := service.NewJobTracker()
	processor := worker.NewProcessor(worker.Dependencies{
		Tracker:       tracker,
		Source:        gitClient,
		Discovery:     filefilter.NewDiscovery(filefilter.Config{MaxFileSize: cfg.Chunking.MaxFileSizeBytes}),
		TokenCounter:  tokenizer.NewCounter(),
		Embedder:      embedder,
		TenantStorage: repository.NewPostgreSQLTenantStorage(pool),
		Repositories:  repository.NewPostgreSQLRepositoryStore(pool),
		Files:         repository.NewPostgreSQLCodeFileStore(pool),
		Chunks:        repository.NewPostgreSQLChunkStore(pool),
		Metrics:       pipelineMetrics,
	}, worker.Config{
		MaxTokensPerChunk:  cfg.Chunking.MaxTokensPerChunk,
		ChunkOverlapTokens: cfg.Chunking.ChunkOverlapTokens,
	})
	return processor, tracker, nil
}

// createConsumer wires the processing pipeline behind a JetStream
// consumer.
func createConsumer(cfg *config.Config, pool *pgxpool.Pool) (*inboundmsg.NATSConsumer, *service.JobTracker, error) {
	processor, tracker, err := createProcessor(cfg, pool)
	if err != nil {
		return nil, nil, err
	}

	consumer, err := inboundmsg.NewNATSConsumer(inboundmsg.ConsumerConfig{
		URL:            cfg.NATS.URL,
		QueueGroup:     cfg.Worker.QueueGroup,
		DurableName:    cfg.Worker.DurableName,
		ProcessTimeout: cfg.Worker.JobTimeout,
	}, processor)
	if err != nil {
		return nil, nil, err
	}
	return consumer, tracker, nil
}

func statusMessageOf(snapshot service.JobSnapshot) outbound.JobStatusMessage {
	return outbound.JobStatusMessage{
		JobID:     snapshot.JobID,
		Tenant:    snapshot.Tenant,
		RepoName:  snapshot.RepoName,
		RepoURL:   snapshot.RepoURL,
		Status:    snapshot.Status.String(),
		Progress:  snapshot.Progress,
		Error:     snapshot.Error,
		CreatedAt: snapshot.CreatedAt,
		UpdatedAt: snapshot.UpdatedAt,
	}
}
