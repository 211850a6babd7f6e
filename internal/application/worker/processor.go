package worker

import (
	"codevectorizer/internal/application/common/metrics"
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/application/service"
	"codevectorizer/internal/domain/entity"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	domainsvc "codevectorizer/internal/domain/service"
	"codevectorizer/internal/domain/valueobject"
	"codevectorizer/internal/port/outbound"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
)

const (
	// DefaultMaxTokensPerChunk is the token budget of one chunk.
	DefaultMaxTokensPerChunk = 500

	// DefaultChunkOverlapTokens is the token budget carried over between
	// adjacent chunks.
	DefaultChunkOverlapTokens = 50
)

// Config holds chunking settings for the processor.
type Config struct {
	MaxTokensPerChunk  int
	ChunkOverlapTokens int
}

func (c *Config) applyDefaults() {
	if c.MaxTokensPerChunk <= 0 {
		c.MaxTokensPerChunk = DefaultMaxTokensPerChunk
	}
	if c.ChunkOverlapTokens < 0 {
		c.ChunkOverlapTokens = DefaultChunkOverlapTokens
	}
}

// Dependencies bundles the ports the processor drives.
type Dependencies struct {
	Tracker       *service.JobTracker
	Source        outbound.SourceProvider
	Discovery     outbound.FileDiscovery
	TokenCounter  outbound.TokenCounter
	Embedder      outbound.EmbeddingService
	TenantStorage outbound.TenantStorage
	Repositories  outbound.RepositoryStore
	Files         outbound.CodeFileStore
	Chunks        outbound.ChunkStore
	Metrics       *metrics.PipelineMetrics
}

// Processor runs one vectorization job end to end: clone, discover,
// reconcile against stored fingerprints, chunk and embed only the changed
// files, persist, and purge files that disappeared from the source.
type Processor struct {
	deps   Dependencies
	config Config
}

// NewProcessor creates a job processor.
func NewProcessor(deps Dependencies, config Config) *Processor {
	config.applyDefaults()
	return &Processor{deps: deps, config: config}
}

// processedFile carries one changed file through chunking to persistence.
type processedFile struct {
	info        outbound.FileInfo
	fingerprint string
	isNew       bool
	chunks      []domainsvc.TextChunk
	embeddings  []*pgvector.Vector
}

// ProcessJob runs the full ingestion pipeline for one job message.
// Reprocessing a message whose job already reached a terminal state is a
// no-op, which makes queue redeliveries of finished jobs harmless.
func (p *Processor) ProcessJob(ctx context.Context, message outbound.VectorizeJobMessage) error {
	jobID := message.JobID

	// The worker may run in a separate process from the API that created
	// the job, so make sure it exists in the local registry.
	if err := p.deps.Tracker.Create(jobID, message.Tenant, message.RepoName, message.RepoURL); err != nil &&
		!errors.Is(err, domainerrors.ErrJobAlreadyExists) {
		return err
	}
	if snapshot, err := p.deps.Tracker.Get(jobID); err == nil && snapshot.Status.IsTerminal() {
		slogger.Info(ctx, "Skipping redelivered terminal job", slogger.Fields{
			"job_id": jobID.String(),
			"status": snapshot.Status.String(),
		})
		return nil
	}

	if err := p.updateStep(jobID, entity.StepInitializing); err != nil {
		return err
	}

	schema, err := valueobject.NewSchemaName(message.Tenant, message.RepoName)
	if err != nil {
		return p.fail(ctx, jobID, message, "", fmt.Errorf("invalid namespace: %w", err))
	}
	if err := p.deps.TenantStorage.EnsureSchema(ctx, schema); err != nil {
		return p.fail(ctx, jobID, message, "", err)
	}

	// Step: clone the source.
	if err := p.updateStep(jobID, entity.StepCloningRepository); err != nil {
		return err
	}
	clonePath, err := p.deps.Source.Clone(ctx, message.RepoURL, schema.String())
	if err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}
	defer func() {
		if removeErr := p.deps.Source.Remove(clonePath); removeErr != nil {
			slogger.Warn(ctx, "Failed to remove working copy", slogger.Fields{
				"path":  clonePath,
				"error": removeErr.Error(),
			})
		}
	}()

	// Step: save the repository row.
	if err := p.updateStep(jobID, entity.StepSavingRepository); err != nil {
		return err
	}
	repo, err := p.deps.Repositories.FindByName(ctx, schema, message.RepoName)
	if err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}
	if repo == nil {
		repo = entity.NewRepository(message.RepoName, message.RepoURL)
	}
	repo.BeginProcessing(message.RepoURL, clonePath)
	if err := p.deps.Repositories.Upsert(ctx, schema, repo); err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}

	// Step: discover processable files.
	if err := p.updateStep(jobID, entity.StepDiscoveringFiles); err != nil {
		return err
	}
	files, err := p.deps.Discovery.Discover(ctx, clonePath)
	if err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}
	p.update(jobID, &entity.JobProgressDelta{
		Step:            entity.StepDiscoveringFiles,
		FilesDiscovered: intPtr(len(files)),
	})

	// Reconcile current fingerprints against the stored ones so only
	// changed files flow through chunking and embedding.
	previous, err := p.deps.Files.ListFingerprints(ctx, schema, repo.ID())
	if err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}
	current, byPath, fingerprints := p.fingerprintFiles(ctx, files)
	plan := domainsvc.ReconcileFiles(previous, current)
	p.update(jobID, &entity.JobProgressDelta{
		Step:          entity.StepProcessingFiles,
		FilesToInsert: intPtr(len(plan.ToInsert)),
		FilesToUpdate: intPtr(len(plan.ToUpdate)),
		FilesToDelete: intPtr(len(plan.ToDelete)),
	})

	// Step: chunk the changed files.
	processed, chunksCreated := p.chunkChangedFiles(ctx, jobID, plan, byPath, fingerprints)
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordFilesProcessed(ctx, len(processed))
	}

	// Step: embed every chunk of this run in one position-aligned pass.
	if err := p.updateStep(jobID, entity.StepGeneratingEmbeddings); err != nil {
		return err
	}
	embedded, err := p.embedChunks(ctx, processed)
	if err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}
	p.update(jobID, &entity.JobProgressDelta{
		Step:                 entity.StepGeneratingEmbeddings,
		ChunksCreated:        intPtr(chunksCreated),
		ChunksWithEmbeddings: intPtr(embedded),
	})

	// Steps: persist file rows, then their chunks.
	if err := p.updateStep(jobID, entity.StepSavingFiles); err != nil {
		return err
	}
	chunksSaved, err := p.persistFiles(ctx, jobID, schema, repo.ID(), processed)
	if err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}
	p.update(jobID, &entity.JobProgressDelta{
		Step:        entity.StepSavingChunks,
		ChunksSaved: intPtr(chunksSaved),
	})
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordChunksSaved(ctx, chunksSaved)
	}

	// Purge files that disappeared from the source.
	if err := p.deps.Files.DeleteByPaths(ctx, schema, repo.ID(), plan.ToDelete); err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}

	repo.MarkCompleted()
	if err := p.deps.Repositories.UpdateStatus(ctx, schema, repo.Name(), valueobject.RepositoryStatusCompleted); err != nil {
		return p.fail(ctx, jobID, message, schema, err)
	}

	if err := p.deps.Tracker.Update(jobID, valueobject.JobStatusCompleted, &entity.JobProgressDelta{
		Step: entity.StepCompleted,
	}, ""); err != nil {
		return err
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordJobCompleted(ctx, message.Tenant)
	}

	slogger.Info(ctx, "Vectorization job completed", slogger.Fields{
		"job_id":       jobID.String(),
		"tenant":       message.Tenant,
		"repo_name":    message.RepoName,
		"files":        len(files),
		"chunks_saved": chunksSaved,
	})
	return nil
}

// fingerprintFiles hashes every discovered file. Files that cannot be read
// are skipped with a warning rather than failing the run.
func (p *Processor) fingerprintFiles(
	ctx context.Context,
	files []outbound.FileInfo,
) ([]domainsvc.FileRecord, map[string]outbound.FileInfo, map[string]string) {
	records := make([]domainsvc.FileRecord, 0, len(files))
	byPath := make(map[string]outbound.FileInfo, len(files))
	fingerprints := make(map[string]string, len(files))

	for _, file := range files {
		fingerprint, err := p.deps.Source.FileContentHash(file.AbsolutePath)
		if err != nil {
			slogger.Warn(ctx, "Skipping unreadable file", slogger.Fields{
				"path":  file.RelativePath,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, domainsvc.FileRecord{
			Path:        file.RelativePath,
			Fingerprint: fingerprint,
		})
		byPath[file.RelativePath] = file
		fingerprints[file.RelativePath] = fingerprint
	}
	return records, byPath, fingerprints
}

// chunkChangedFiles chunks the insert and update sets of the plan,
// advancing the files_processed counter per file.
func (p *Processor) chunkChangedFiles(
	ctx context.Context,
	jobID uuid.UUID,
	plan domainsvc.ReconciliationPlan,
	byPath map[string]outbound.FileInfo,
	fingerprints map[string]string,
) ([]*processedFile, int) {
	changed := make([]changedPath, 0, len(plan.ToInsert)+len(plan.ToUpdate))
	for _, file := range plan.ToInsert {
		changed = append(changed, changedPath{path: file.Path, isNew: true})
	}
	for _, file := range plan.ToUpdate {
		changed = append(changed, changedPath{path: file.Path})
	}

	var processed []*processedFile
	chunksCreated := 0
	filesProcessed := 0

	for _, entry := range changed {
		info, ok := byPath[entry.path]
		if !ok {
			continue
		}

		content, err := os.ReadFile(info.AbsolutePath)
		if err != nil {
			slogger.Warn(ctx, "Skipping unreadable file", slogger.Fields{
				"path":  info.RelativePath,
				"error": err.Error(),
			})
			continue
		}

		chunks := domainsvc.ChunkText(
			string(content),
			p.config.MaxTokensPerChunk,
			p.config.ChunkOverlapTokens,
			p.deps.TokenCounter.CountTokens,
		)

		processed = append(processed, &processedFile{
			info:        info,
			fingerprint: fingerprints[entry.path],
			isNew:       entry.isNew,
			chunks:      chunks,
		})
		chunksCreated += len(chunks)
		filesProcessed++

		p.update(jobID, &entity.JobProgressDelta{
			Step:           entity.StepProcessingFiles,
			CurrentFile:    info.RelativePath,
			FilesProcessed: intPtr(filesProcessed),
			ChunksCreated:  intPtr(chunksCreated),
		})
	}
	return processed, chunksCreated
}

type changedPath struct {
	path  string
	isNew bool
}

// embedChunks embeds every chunk of the run in one pass and assigns the
// position-aligned results back onto their files. Returns the number of
// chunks that received an embedding.
func (p *Processor) embedChunks(ctx context.Context, processed []*processedFile) (int, error) {
	var texts []string
	for _, file := range processed {
		for _, chunk := range file.chunks {
			texts = append(texts, chunk.Content)
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := p.deps.Embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	embedded := 0
	offset := 0
	for _, file := range processed {
		file.embeddings = vectors[offset : offset+len(file.chunks)]
		for _, vector := range file.embeddings {
			if vector != nil {
				embedded++
			}
		}
		offset += len(file.chunks)
	}
	return embedded, nil
}

// persistFiles writes file rows and their chunks. Updated files have their
// old chunks deleted before reinsertion; chunks without an embedding are
// not stored.
func (p *Processor) persistFiles(
	ctx context.Context,
	jobID uuid.UUID,
	schema valueobject.SchemaName,
	repositoryID int64,
	processed []*processedFile,
) (int, error) {
	chunksSaved := 0

	for _, file := range processed {
		var fileID int64
		var err error

		if file.isNew {
			fileID, err = p.deps.Files.Insert(ctx, schema, outbound.CodeFileRecord{
				RepositoryID: repositoryID,
				Path:         file.info.RelativePath,
				Name:         file.info.Name,
				Extension:    file.info.Extension,
				Size:         file.info.Size,
				Fingerprint:  file.fingerprint,
			})
			if err != nil {
				return chunksSaved, err
			}
		} else {
			fileID, err = p.deps.Files.FindIDByPath(ctx, schema, repositoryID, file.info.RelativePath)
			if err != nil {
				return chunksSaved, err
			}
			if err := p.deps.Files.Update(ctx, schema, fileID, file.info.Size, file.fingerprint); err != nil {
				return chunksSaved, err
			}
			if err := p.deps.Chunks.DeleteByFileID(ctx, schema, fileID); err != nil {
				return chunksSaved, err
			}
		}

		// Chunks dropped for a missing embedding must not leave holes in
		// the stored index sequence, so saved chunks are renumbered in
		// order.
		records := make([]outbound.ChunkRecord, 0, len(file.chunks))
		for i, chunk := range file.chunks {
			if file.embeddings == nil || file.embeddings[i] == nil {
				continue
			}
			records = append(records, outbound.ChunkRecord{
				FileID:     fileID,
				ChunkIndex: len(records),
				Content:    chunk.Content,
				StartLine:  chunk.StartLine,
				EndLine:    chunk.EndLine,
				TokenCount: chunk.TokenCount,
				Embedding:  *file.embeddings[i],
			})
		}

		inserted, err := p.deps.Chunks.BulkInsert(ctx, schema, records)
		if err != nil {
			return chunksSaved, err
		}
		chunksSaved += inserted

		p.update(jobID, &entity.JobProgressDelta{
			Step:        entity.StepSavingChunks,
			ChunksSaved: intPtr(chunksSaved),
		})
	}
	return chunksSaved, nil
}

// fail marks the job failed with the verbatim cause, transitions the
// repository row best-effort, and returns the cause.
func (p *Processor) fail(
	ctx context.Context,
	jobID uuid.UUID,
	message outbound.VectorizeJobMessage,
	schema valueobject.SchemaName,
	cause error,
) error {
	_ = p.deps.Tracker.Update(jobID, valueobject.JobStatusFailed, nil, cause.Error())

	if schema.String() != "" {
		if err := p.deps.Repositories.UpdateStatus(
			ctx, schema, message.RepoName, valueobject.RepositoryStatusFailed,
		); err != nil {
			slogger.Warn(ctx, "Failed to mark repository failed", slogger.Fields{
				"repo_name": message.RepoName,
				"error":     err.Error(),
			})
		}
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordJobFailed(ctx, message.Tenant)
	}

	slogger.ErrorWithError(ctx, cause, "Vectorization job failed", slogger.Fields{
		"job_id":    jobID.String(),
		"tenant":    message.Tenant,
		"repo_name": message.RepoName,
	})
	return cause
}

func (p *Processor) updateStep(jobID uuid.UUID, step string) error {
	return p.deps.Tracker.Update(jobID, valueobject.JobStatusProcessing, &entity.JobProgressDelta{
		Step: step,
	}, "")
}

// update applies a progress delta, ignoring registry errors: progress is
// advisory and must never interrupt the pipeline.
func (p *Processor) update(jobID uuid.UUID, delta *entity.JobProgressDelta) {
	_ = p.deps.Tracker.Update(jobID, valueobject.JobStatusProcessing, delta, "")
}

func intPtr(v int) *int {
	return &v
}
