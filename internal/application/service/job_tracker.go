package service

import (
	"sync"
	"time"

	"codevectorizer/internal/domain/entity"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"codevectorizer/internal/domain/valueobject"

	"github.com/google/uuid"
)

// JobSnapshot is an immutable view of one job's state.
type JobSnapshot struct {
	JobID     uuid.UUID
	Tenant    string
	RepoName  string
	RepoURL   string
	Status    valueobject.JobStatus
	Progress  entity.JobProgress
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobTracker is the thread-safe registry of in-flight and completed
// vectorization jobs. All mutation goes through one exclusive critical
// section: job churn is low-frequency relative to embedding and storage
// I/O, so a coarse registry-wide lock is sufficient.
//
// The tracker is an explicitly owned instance constructed once per process
// and injected wherever job state is read or written.
type JobTracker struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*entity.VectorizationJob
	listener func(JobSnapshot)
}

// NewJobTracker creates an empty job registry.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[uuid.UUID]*entity.VectorizationJob),
	}
}

// SetListener registers a callback invoked with a fresh snapshot after
// every local state change. The callback runs outside the registry lock.
// Applied replica state never triggers the listener, so two processes
// mirroring each other cannot echo updates back and forth.
func (t *JobTracker) SetListener(listener func(JobSnapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = listener
}

// Create registers a new pending job.
func (t *JobTracker) Create(jobID uuid.UUID, tenant, repoName, repoURL string) error {
	t.mu.Lock()

	if _, exists := t.jobs[jobID]; exists {
		t.mu.Unlock()
		return domainerrors.ErrJobAlreadyExists
	}

	job := entity.NewVectorizationJob(jobID, tenant, repoName, repoURL)
	t.jobs[jobID] = job
	snapshot := snapshotOf(job)
	listener := t.listener
	t.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
	return nil
}

// Update transitions a job's status and merges a progress delta into its
// existing progress record. Terminal jobs are never transitioned again.
func (t *JobTracker) Update(
	jobID uuid.UUID,
	status valueobject.JobStatus,
	progress *entity.JobProgressDelta,
	errorMessage string,
) error {
	t.mu.Lock()

	job, exists := t.jobs[jobID]
	if !exists {
		t.mu.Unlock()
		return domainerrors.ErrJobNotFound
	}

	if job.Status() != status {
		if err := job.TransitionTo(status); err != nil {
			t.mu.Unlock()
			return err
		}
	}
	if progress != nil {
		job.ApplyProgress(*progress)
	}
	if errorMessage != "" {
		job.SetError(errorMessage)
	}
	snapshot := snapshotOf(job)
	listener := t.listener
	t.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
	return nil
}

// Apply upserts a snapshot observed in another process, replacing the
// local record wholesale. Stale snapshots, those not newer than the local
// record, are ignored so out-of-order delivery cannot roll state back.
func (t *JobTracker) Apply(snapshot JobSnapshot) error {
	if snapshot.JobID == uuid.Nil {
		return domainerrors.ErrInvalidInput
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.jobs[snapshot.JobID]; ok && !existing.UpdatedAt().Before(snapshot.UpdatedAt) {
		return nil
	}

	t.jobs[snapshot.JobID] = entity.RestoreVectorizationJob(
		snapshot.JobID,
		snapshot.Tenant,
		snapshot.RepoName,
		snapshot.RepoURL,
		snapshot.Status,
		snapshot.Progress,
		snapshot.Error,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
	)
	return nil
}

// List returns a snapshot of every tracked job, in no particular order.
func (t *JobTracker) List() []JobSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshots := make([]JobSnapshot, 0, len(t.jobs))
	for _, job := range t.jobs {
		snapshots = append(snapshots, snapshotOf(job))
	}
	return snapshots
}

// Get returns a snapshot of the job's current state.
func (t *JobTracker) Get(jobID uuid.UUID) (JobSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, exists := t.jobs[jobID]
	if !exists {
		return JobSnapshot{}, domainerrors.ErrJobNotFound
	}
	return snapshotOf(job), nil
}

func snapshotOf(job *entity.VectorizationJob) JobSnapshot {
	return JobSnapshot{
		JobID:     job.ID(),
		Tenant:    job.Tenant(),
		RepoName:  job.RepoName(),
		RepoURL:   job.RepoURL(),
		Status:    job.Status(),
		Progress:  job.Progress(),
		Error:     job.ErrorMessage(),
		CreatedAt: job.CreatedAt(),
		UpdatedAt: job.UpdatedAt(),
	}
}
