package service

import (
	"sync"
	"testing"
	"time"

	"codevectorizer/internal/domain/entity"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"codevectorizer/internal/domain/valueobject"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func TestJobTracker_CreateAndGet(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()

	err := tracker.Create(jobID, "alice", "myrepo", "https://github.com/alice/myrepo")
	require.NoError(t, err)

	snapshot, err := tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, snapshot.JobID)
	assert.Equal(t, "alice", snapshot.Tenant)
	assert.Equal(t, "myrepo", snapshot.RepoName)
	assert.Equal(t, valueobject.JobStatusPending, snapshot.Status)
	assert.Equal(t, entity.StepInitializing, snapshot.Progress.Step)
	assert.Nil(t, snapshot.Error)
}

func TestJobTracker_CreateDuplicate(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()

	require.NoError(t, tracker.Create(jobID, "alice", "repo", "url"))

	err := tracker.Create(jobID, "alice", "repo", "url")
	assert.ErrorIs(t, err, domainerrors.ErrJobAlreadyExists)
}

func TestJobTracker_GetUnknownJob(t *testing.T) {
	tracker := NewJobTracker()

	_, err := tracker.Get(uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrJobNotFound)
}

func TestJobTracker_UpdateUnknownJob(t *testing.T) {
	tracker := NewJobTracker()

	err := tracker.Update(uuid.New(), valueobject.JobStatusProcessing, nil, "")
	assert.ErrorIs(t, err, domainerrors.ErrJobNotFound)
}

func TestJobTracker_ProgressMergesForward(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()
	require.NoError(t, tracker.Create(jobID, "alice", "repo", "url"))

	err := tracker.Update(jobID, valueobject.JobStatusProcessing, &entity.JobProgressDelta{
		Step:            entity.StepDiscoveringFiles,
		FilesDiscovered: intPtr(10),
	}, "")
	require.NoError(t, err)

	err = tracker.Update(jobID, valueobject.JobStatusProcessing, &entity.JobProgressDelta{
		Step:           entity.StepProcessingFiles,
		FilesProcessed: intPtr(4),
	}, "")
	require.NoError(t, err)

	snapshot, err := tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.StepProcessingFiles, snapshot.Progress.Step)
	assert.Equal(t, 10, snapshot.Progress.FilesDiscovered)
	assert.Equal(t, 4, snapshot.Progress.FilesProcessed)
}

func TestJobTracker_CountersNeverMoveBackward(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()
	require.NoError(t, tracker.Create(jobID, "alice", "repo", "url"))

	require.NoError(t, tracker.Update(jobID, valueobject.JobStatusProcessing,
		&entity.JobProgressDelta{ChunksCreated: intPtr(50)}, ""))
	require.NoError(t, tracker.Update(jobID, valueobject.JobStatusProcessing,
		&entity.JobProgressDelta{ChunksCreated: intPtr(20)}, ""))

	snapshot, err := tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, 50, snapshot.Progress.ChunksCreated)
}

func TestJobTracker_TerminalStateIsFinal(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()
	require.NoError(t, tracker.Create(jobID, "alice", "repo", "url"))
	require.NoError(t, tracker.Update(jobID, valueobject.JobStatusProcessing, nil, ""))
	require.NoError(t, tracker.Update(jobID, valueobject.JobStatusFailed, nil, "clone failed"))

	err := tracker.Update(jobID, valueobject.JobStatusProcessing, nil, "")
	assert.ErrorIs(t, err, domainerrors.ErrJobTerminal)

	snapshot, getErr := tracker.Get(jobID)
	require.NoError(t, getErr)
	assert.Equal(t, valueobject.JobStatusFailed, snapshot.Status)
	require.NotNil(t, snapshot.Error)
	assert.Equal(t, "clone failed", *snapshot.Error)
}

func TestJobTracker_FailedJobKeepsLastProgress(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()
	require.NoError(t, tracker.Create(jobID, "alice", "repo", "url"))
	require.NoError(t, tracker.Update(jobID, valueobject.JobStatusProcessing,
		&entity.JobProgressDelta{
			Step:            entity.StepGeneratingEmbeddings,
			FilesDiscovered: intPtr(7),
			FilesProcessed:  intPtr(7),
			ChunksCreated:   intPtr(31),
		}, ""))
	require.NoError(t, tracker.Update(jobID, valueobject.JobStatusFailed, nil, "provider unreachable"))

	snapshot, err := tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, 7, snapshot.Progress.FilesProcessed)
	assert.Equal(t, 31, snapshot.Progress.ChunksCreated)
	assert.Equal(t, entity.StepGeneratingEmbeddings, snapshot.Progress.Step)
	require.NotNil(t, snapshot.Error)
	assert.Equal(t, "provider unreachable", *snapshot.Error)
}

func TestJobTracker_ApplyMirrorsUnknownJob(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()
	now := time.Now()
	failure := "clone failed"

	err := tracker.Apply(JobSnapshot{
		JobID:    jobID,
		Tenant:   "alice",
		RepoName: "repo",
		RepoURL:  "url",
		Status:   valueobject.JobStatusFailed,
		Progress: entity.JobProgress{
			Step:           entity.StepCloningRepository,
			FilesProcessed: 3,
		},
		Error:     &failure,
		CreatedAt: now.Add(-time.Minute),
		UpdatedAt: now,
	})
	require.NoError(t, err)

	snapshot, err := tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusFailed, snapshot.Status)
	assert.Equal(t, 3, snapshot.Progress.FilesProcessed)
	require.NotNil(t, snapshot.Error)
	assert.Equal(t, "clone failed", *snapshot.Error)
}

func TestJobTracker_ApplyIgnoresStaleSnapshot(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()
	now := time.Now()

	require.NoError(t, tracker.Apply(JobSnapshot{
		JobID:     jobID,
		Tenant:    "alice",
		Status:    valueobject.JobStatusCompleted,
		Progress:  entity.JobProgress{FilesProcessed: 9},
		UpdatedAt: now,
	}))

	// An older update delivered late must not roll the job back.
	require.NoError(t, tracker.Apply(JobSnapshot{
		JobID:     jobID,
		Tenant:    "alice",
		Status:    valueobject.JobStatusProcessing,
		Progress:  entity.JobProgress{FilesProcessed: 2},
		UpdatedAt: now.Add(-time.Second),
	}))

	snapshot, err := tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusCompleted, snapshot.Status)
	assert.Equal(t, 9, snapshot.Progress.FilesProcessed)
}

func TestJobTracker_ApplyRejectsNilJobID(t *testing.T) {
	tracker := NewJobTracker()

	err := tracker.Apply(JobSnapshot{Tenant: "alice"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestJobTracker_ListenerObservesLocalChanges(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()

	var observed []JobSnapshot
	tracker.SetListener(func(snapshot JobSnapshot) {
		observed = append(observed, snapshot)
	})

	require.NoError(t, tracker.Create(jobID, "alice", "repo", "url"))
	require.NoError(t, tracker.Update(jobID, valueobject.JobStatusProcessing,
		&entity.JobProgressDelta{FilesProcessed: intPtr(4)}, ""))

	require.Len(t, observed, 2)
	assert.Equal(t, valueobject.JobStatusPending, observed[0].Status)
	assert.Equal(t, valueobject.JobStatusProcessing, observed[1].Status)
	assert.Equal(t, 4, observed[1].Progress.FilesProcessed)

	// Mirrored state arriving from another process stays silent, so two
	// processes mirroring each other cannot loop.
	require.NoError(t, tracker.Apply(JobSnapshot{
		JobID:     uuid.New(),
		Tenant:    "bob",
		Status:    valueobject.JobStatusCompleted,
		UpdatedAt: time.Now(),
	}))
	assert.Len(t, observed, 2)
}

func TestJobTracker_ConcurrentAccess(t *testing.T) {
	tracker := NewJobTracker()
	jobID := uuid.New()
	require.NoError(t, tracker.Create(jobID, "alice", "repo", "url"))
	require.NoError(t, tracker.Update(jobID, valueobject.JobStatusProcessing, nil, ""))

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = tracker.Update(jobID, valueobject.JobStatusProcessing,
				&entity.JobProgressDelta{FilesProcessed: intPtr(n)}, "")
		}(i)
		go func() {
			defer wg.Done()
			_, _ = tracker.Get(jobID)
		}()
	}
	wg.Wait()

	snapshot, err := tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, 50, snapshot.Progress.FilesProcessed)
}
