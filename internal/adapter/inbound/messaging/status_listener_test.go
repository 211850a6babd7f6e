package messaging

import (
	"codevectorizer/internal/application/service"
	"codevectorizer/internal/domain/entity"
	"codevectorizer/internal/port/outbound"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatusListener_Validation(t *testing.T) {
	_, err := NewStatusListener(StatusListenerConfig{}, service.NewJobTracker())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS URL")

	_, err = NewStatusListener(StatusListenerConfig{URL: "nats://localhost:4222"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job tracker")
}

func TestNewStatusListener_DefaultSubject(t *testing.T) {
	listener, err := NewStatusListener(StatusListenerConfig{URL: "nats://localhost:4222"}, service.NewJobTracker())
	require.NoError(t, err)
	assert.Equal(t, "jobs.status", listener.config.Subject)
}

func TestApplyStatusUpdate_MirrorsWorkerState(t *testing.T) {
	tracker := service.NewJobTracker()
	jobID := uuid.New()

	message := outbound.JobStatusMessage{
		JobID:    jobID,
		Tenant:   "acme",
		RepoName: "svc",
		RepoURL:  "https://github.com/acme/svc",
		Status:   "processing",
		Progress: entity.JobProgress{
			Step:           entity.StepProcessingFiles,
			FilesProcessed: 5,
		},
		CreatedAt: time.Now().Add(-time.Minute),
		UpdatedAt: time.Now(),
	}
	data, err := json.Marshal(message)
	require.NoError(t, err)

	require.NoError(t, applyStatusUpdate(tracker, data))

	snapshot, err := tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, "acme", snapshot.Tenant)
	assert.Equal(t, "processing", snapshot.Status.String())
	assert.Equal(t, 5, snapshot.Progress.FilesProcessed)
}

func TestApplyStatusUpdate_RejectsMalformedMessages(t *testing.T) {
	tracker := service.NewJobTracker()

	assert.Error(t, applyStatusUpdate(tracker, []byte("not json")))
	assert.Error(t, applyStatusUpdate(tracker, []byte(`{"status":"processing"}`)), "nil job ID")

	bad, err := json.Marshal(outbound.JobStatusMessage{
		JobID:  uuid.New(),
		Tenant: "acme",
		Status: "exploded",
	})
	require.NoError(t, err)
	assert.Error(t, applyStatusUpdate(tracker, bad), "unknown status value")

	assert.Empty(t, tracker.List(), "rejected updates must not register jobs")
}
