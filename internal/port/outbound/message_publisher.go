package outbound

import (
	"context"
	"time"

	"codevectorizer/internal/domain/entity"

	"github.com/google/uuid"
)

// VectorizeJobMessage is the queue message that triggers one ingestion run.
type VectorizeJobMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	Tenant    string    `json:"tenant"`
	RepoName  string    `json:"repo_name"`
	RepoURL   string    `json:"repo_url"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePublisher publishes vectorization job messages to the work queue.
type MessagePublisher interface {
	PublishVectorizeJob(ctx context.Context, message VectorizeJobMessage) error
	Close() error
}

// JobStatusMessage carries one job's full tracked state. The worker
// broadcasts it on every status or progress change so that processes
// answering status queries can mirror jobs they did not run themselves.
type JobStatusMessage struct {
	JobID     uuid.UUID          `json:"job_id"`
	Tenant    string             `json:"tenant"`
	RepoName  string             `json:"repo_name"`
	RepoURL   string             `json:"repo_url"`
	Status    string             `json:"status"`
	Progress  entity.JobProgress `json:"progress"`
	Error     *string            `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// JobStatusPublisher broadcasts job state changes to other processes.
type JobStatusPublisher interface {
	PublishJobStatus(ctx context.Context, message JobStatusMessage) error
}
