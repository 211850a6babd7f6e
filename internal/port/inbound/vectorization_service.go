package inbound

import (
	"context"

	"codevectorizer/internal/application/dto"
)

// VectorizationService is the surface a CLI or HTTP layer needs from the
// ingestion core: job creation and job status queries.
//
// Concurrent jobs targeting the same tenant and repository are not mutually
// excluded; callers are expected to run at most one job per namespace at a
// time.
type VectorizationService interface {
	// CreateVectorizeJob registers a new job and dispatches it for
	// background processing.
	CreateVectorizeJob(ctx context.Context, request dto.VectorizeRequest) (dto.VectorizeResponse, error)

	// GetJob returns the current snapshot of a job, including its last
	// progress record and error string for failed jobs.
	GetJob(ctx context.Context, jobID string) (dto.JobStatusResponse, error)
}

// SearchService serves semantic similarity queries over vectorized
// repositories.
type SearchService interface {
	Search(ctx context.Context, request dto.SearchRequest) (dto.SearchResponse, error)
}

// TenantService exposes tenant-level repository management.
type TenantService interface {
	ListRepositories(ctx context.Context, tenant string) (dto.TenantReposResponse, error)
	DeleteRepository(ctx context.Context, tenant, repoName string) error
}
