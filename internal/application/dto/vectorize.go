package dto

import (
	"time"

	"codevectorizer/internal/domain/entity"
)

// VectorizeRequest is the request to start vectorizing a repository.
type VectorizeRequest struct {
	RepoURL      string `json:"repo_url"`
	RepoName     string `json:"repo_name,omitempty"`
	Tenant       string `json:"tenant"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
	MaxFileSize  int64  `json:"max_file_size,omitempty"`
}

// VectorizeResponse acknowledges an accepted vectorization job.
type VectorizeResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// JobStatusResponse is the queryable snapshot of a job.
type JobStatusResponse struct {
	JobID     string             `json:"job_id"`
	Tenant    string             `json:"tenant"`
	RepoName  string             `json:"repo_name"`
	Status    string             `json:"status"`
	Progress  entity.JobProgress `json:"progress"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Error     *string            `json:"error,omitempty"`
}
