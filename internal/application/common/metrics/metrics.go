// Package metrics exposes the OpenTelemetry instruments recorded by the
// ingestion pipeline.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "codevectorizer"

// PipelineMetrics records ingestion pipeline counters.
type PipelineMetrics struct {
	jobsStarted            metric.Int64Counter
	jobsCompleted          metric.Int64Counter
	jobsFailed             metric.Int64Counter
	filesProcessed         metric.Int64Counter
	chunksSaved            metric.Int64Counter
	embeddingBatchFailures metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments against the global
// meter provider.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter(meterName)

	jobsStarted, err := meter.Int64Counter("vectorize.jobs.started",
		metric.WithDescription("Number of vectorization jobs started"))
	if err != nil {
		return nil, err
	}
	jobsCompleted, err := meter.Int64Counter("vectorize.jobs.completed",
		metric.WithDescription("Number of vectorization jobs completed"))
	if err != nil {
		return nil, err
	}
	jobsFailed, err := meter.Int64Counter("vectorize.jobs.failed",
		metric.WithDescription("Number of vectorization jobs failed"))
	if err != nil {
		return nil, err
	}
	filesProcessed, err := meter.Int64Counter("vectorize.files.processed",
		metric.WithDescription("Number of files chunked and embedded"))
	if err != nil {
		return nil, err
	}
	chunksSaved, err := meter.Int64Counter("vectorize.chunks.saved",
		metric.WithDescription("Number of chunks persisted with embeddings"))
	if err != nil {
		return nil, err
	}
	embeddingBatchFailures, err := meter.Int64Counter("vectorize.embedding_batches.failed",
		metric.WithDescription("Number of embedding batches that failed"))
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		jobsStarted:            jobsStarted,
		jobsCompleted:          jobsCompleted,
		jobsFailed:             jobsFailed,
		filesProcessed:         filesProcessed,
		chunksSaved:            chunksSaved,
		embeddingBatchFailures: embeddingBatchFailures,
	}, nil
}

// RecordJobStarted increments the started-jobs counter.
func (m *PipelineMetrics) RecordJobStarted(ctx context.Context, tenant string) {
	m.jobsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant", tenant)))
}

// RecordJobCompleted increments the completed-jobs counter.
func (m *PipelineMetrics) RecordJobCompleted(ctx context.Context, tenant string) {
	m.jobsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant", tenant)))
}

// RecordJobFailed increments the failed-jobs counter.
func (m *PipelineMetrics) RecordJobFailed(ctx context.Context, tenant string) {
	m.jobsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant", tenant)))
}

// RecordFilesProcessed adds to the processed-files counter.
func (m *PipelineMetrics) RecordFilesProcessed(ctx context.Context, count int) {
	m.filesProcessed.Add(ctx, int64(count))
}

// RecordChunksSaved adds to the saved-chunks counter.
func (m *PipelineMetrics) RecordChunksSaved(ctx context.Context, count int) {
	m.chunksSaved.Add(ctx, int64(count))
}

// RecordEmbeddingBatchFailure increments the failed-batches counter.
func (m *PipelineMetrics) RecordEmbeddingBatchFailure(ctx context.Context) {
	m.embeddingBatchFailures.Add(ctx, 1)
}
