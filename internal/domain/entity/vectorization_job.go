package entity

import (
	"time"

	"codevectorizer/internal/domain/valueobject"
	domainerrors "codevectorizer/internal/domain/errors/domain"

	"github.com/google/uuid"
)

// Pipeline step labels recorded in job progress.
const (
	StepInitializing         = "initializing"
	StepCloningRepository    = "cloning_repository"
	StepSavingRepository     = "saving_repository"
	StepDiscoveringFiles     = "discovering_files"
	StepProcessingFiles      = "processing_files"
	StepSavingFiles          = "saving_files"
	StepGeneratingEmbeddings = "generating_embeddings"
	StepSavingChunks         = "saving_chunks"
	StepCompleted            = "completed"
)

// JobProgress captures the monotonically advancing progress counters of a
// vectorization job.
type JobProgress struct {
	Step                 string `json:"step"`
	CurrentFile          string `json:"current_file,omitempty"`
	FilesDiscovered      int    `json:"files_discovered"`
	FilesProcessed       int    `json:"files_processed"`
	ChunksCreated        int    `json:"chunks_created"`
	ChunksWithEmbeddings int    `json:"chunks_with_embeddings"`
	ChunksSaved          int    `json:"chunks_saved"`
	FilesToInsert        int    `json:"files_to_insert"`
	FilesToUpdate        int    `json:"files_to_update"`
	FilesToDelete        int    `json:"files_to_delete"`
}

// JobProgressDelta carries a partial progress update. Nil fields leave the
// existing value untouched.
type JobProgressDelta struct {
	Step                 string
	CurrentFile          string
	FilesDiscovered      *int
	FilesProcessed       *int
	ChunksCreated        *int
	ChunksWithEmbeddings *int
	ChunksSaved          *int
	FilesToInsert        *int
	FilesToUpdate        *int
	FilesToDelete        *int
}

// VectorizationJob represents one asynchronous ingestion run of a repository
// for a tenant.
type VectorizationJob struct {
	id           uuid.UUID
	tenant       string
	repoName     string
	repoURL      string
	status       valueobject.JobStatus
	progress     JobProgress
	errorMessage *string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewVectorizationJob creates a new job in the pending state.
func NewVectorizationJob(id uuid.UUID, tenant, repoName, repoURL string) *VectorizationJob {
	now := time.Now()
	return &VectorizationJob{
		id:        id,
		tenant:    tenant,
		repoName:  repoName,
		repoURL:   repoURL,
		status:    valueobject.JobStatusPending,
		progress:  JobProgress{Step: StepInitializing},
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreVectorizationJob reconstructs a job from previously observed
// state, bypassing lifecycle transitions. It is used when mirroring job
// state that advanced in another process.
func RestoreVectorizationJob(
	id uuid.UUID,
	tenant, repoName, repoURL string,
	status valueobject.JobStatus,
	progress JobProgress,
	errorMessage *string,
	createdAt, updatedAt time.Time,
) *VectorizationJob {
	return &VectorizationJob{
		id:           id,
		tenant:       tenant,
		repoName:     repoName,
		repoURL:      repoURL,
		status:       status,
		progress:     progress,
		errorMessage: errorMessage,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the job ID.
func (j *VectorizationJob) ID() uuid.UUID {
	return j.id
}

// Tenant returns the tenant identifier.
func (j *VectorizationJob) Tenant() string {
	return j.tenant
}

// RepoName returns the repository name.
func (j *VectorizationJob) RepoName() string {
	return j.repoName
}

// RepoURL returns the source URL.
func (j *VectorizationJob) RepoURL() string {
	return j.repoURL
}

// Status returns the current job status.
func (j *VectorizationJob) Status() valueobject.JobStatus {
	return j.status
}

// Progress returns a copy of the current progress record.
func (j *VectorizationJob) Progress() JobProgress {
	return j.progress
}

// ErrorMessage returns the failure message if the job failed.
func (j *VectorizationJob) ErrorMessage() *string {
	return j.errorMessage
}

// CreatedAt returns the creation timestamp.
func (j *VectorizationJob) CreatedAt() time.Time {
	return j.createdAt
}

// UpdatedAt returns the last update timestamp.
func (j *VectorizationJob) UpdatedAt() time.Time {
	return j.updatedAt
}

// TransitionTo moves the job to the target status. Terminal states never
// transition out.
func (j *VectorizationJob) TransitionTo(target valueobject.JobStatus) error {
	if j.status.IsTerminal() {
		return domainerrors.ErrJobTerminal
	}
	if !j.status.CanTransitionTo(target) {
		return domainerrors.ErrInvalidInput
	}
	j.status = target
	j.updatedAt = time.Now()
	return nil
}

// SetError records the failure message for a failed job.
func (j *VectorizationJob) SetError(message string) {
	j.errorMessage = &message
	j.updatedAt = time.Now()
}

// ApplyProgress merges a partial progress update into the existing record.
// Counters never move backward within one job's lifetime.
func (j *VectorizationJob) ApplyProgress(delta JobProgressDelta) {
	if delta.Step != "" {
		j.progress.Step = delta.Step
	}
	if delta.CurrentFile != "" {
		j.progress.CurrentFile = delta.CurrentFile
	}
	applyCounter(&j.progress.FilesDiscovered, delta.FilesDiscovered)
	applyCounter(&j.progress.FilesProcessed, delta.FilesProcessed)
	applyCounter(&j.progress.ChunksCreated, delta.ChunksCreated)
	applyCounter(&j.progress.ChunksWithEmbeddings, delta.ChunksWithEmbeddings)
	applyCounter(&j.progress.ChunksSaved, delta.ChunksSaved)
	applyCounter(&j.progress.FilesToInsert, delta.FilesToInsert)
	applyCounter(&j.progress.FilesToUpdate, delta.FilesToUpdate)
	applyCounter(&j.progress.FilesToDelete, delta.FilesToDelete)
	j.updatedAt = time.Now()
}

func applyCounter(current *int, updated *int) {
	if updated != nil && *updated > *current {
		*current = *updated
	}
}
