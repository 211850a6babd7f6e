package service

import (
	"codevectorizer/internal/application/common/metrics"
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/application/dto"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"codevectorizer/internal/domain/valueobject"
	"codevectorizer/internal/port/outbound"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VectorizationApplicationService creates vectorization jobs and serves
// job status queries. Jobs run asynchronously: creation registers the job
// as pending and publishes a message for a worker to pick up.
type VectorizationApplicationService struct {
	tracker   *JobTracker
	publisher outbound.MessagePublisher
	metrics   *metrics.PipelineMetrics
}

// NewVectorizationApplicationService wires the job service.
func NewVectorizationApplicationService(
	tracker *JobTracker,
	publisher outbound.MessagePublisher,
	pipelineMetrics *metrics.PipelineMetrics,
) *VectorizationApplicationService {
	return &VectorizationApplicationService{
		tracker:   tracker,
		publisher: publisher,
		metrics:   pipelineMetrics,
	}
}

// CreateVectorizeJob registers a pending job and dispatches it to the work
// queue.
func (s *VectorizationApplicationService) CreateVectorizeJob(
	ctx context.Context,
	request dto.VectorizeRequest,
) (dto.VectorizeResponse, error) {
	if err := validateVectorizeRequest(request); err != nil {
		return dto.VectorizeResponse{}, err
	}

	repoName := request.RepoName
	if repoName == "" {
		repoName = RepoNameFromURL(request.RepoURL)
	}

	jobID := uuid.New()
	if err := s.tracker.Create(jobID, request.Tenant, repoName, request.RepoURL); err != nil {
		return dto.VectorizeResponse{}, err
	}

	message := outbound.VectorizeJobMessage{
		JobID:     jobID,
		Tenant:    request.Tenant,
		RepoName:  repoName,
		RepoURL:   request.RepoURL,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.PublishVectorizeJob(ctx, message); err != nil {
		// The job was registered but will never run; fail it so status
		// queries do not report a forever-pending job.
		_ = s.tracker.Update(jobID, valueobject.JobStatusFailed, nil, fmt.Sprintf("dispatch failed: %v", err))
		return dto.VectorizeResponse{}, fmt.Errorf("failed to dispatch vectorize job: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordJobStarted(ctx, request.Tenant)
	}
	slogger.Info(ctx, "Created vectorize job", slogger.Fields{
		"job_id":    jobID.String(),
		"tenant":    request.Tenant,
		"repo_name": repoName,
	})

	snapshot, err := s.tracker.Get(jobID)
	if err != nil {
		return dto.VectorizeResponse{}, err
	}

	return dto.VectorizeResponse{
		JobID:     jobID.String(),
		Status:    snapshot.Status.String(),
		Message:   fmt.Sprintf("vectorization of %s queued", repoName),
		CreatedAt: snapshot.CreatedAt,
	}, nil
}

// GetJob returns the current snapshot of a job.
func (s *VectorizationApplicationService) GetJob(
	_ context.Context,
	jobID string,
) (dto.JobStatusResponse, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return dto.JobStatusResponse{}, fmt.Errorf("%w: malformed job ID", domainerrors.ErrInvalidInput)
	}

	snapshot, err := s.tracker.Get(id)
	if err != nil {
		return dto.JobStatusResponse{}, err
	}

	return dto.JobStatusResponse{
		JobID:     snapshot.JobID.String(),
		Tenant:    snapshot.Tenant,
		RepoName:  snapshot.RepoName,
		Status:    snapshot.Status.String(),
		Progress:  snapshot.Progress,
		CreatedAt: snapshot.CreatedAt,
		UpdatedAt: snapshot.UpdatedAt,
		Error:     snapshot.Error,
	}, nil
}

func validateVectorizeRequest(request dto.VectorizeRequest) error {
	if strings.TrimSpace(request.Tenant) == "" {
		return fmt.Errorf("%w: tenant is required", domainerrors.ErrInvalidInput)
	}
	repoURL := strings.TrimSpace(request.RepoURL)
	if repoURL == "" {
		return fmt.Errorf("%w: repo_url is required", domainerrors.ErrInvalidInput)
	}
	if !strings.HasPrefix(repoURL, "http://") && !strings.HasPrefix(repoURL, "https://") {
		return fmt.Errorf("%w: repo_url must be an http(s) URL", domainerrors.ErrInvalidInput)
	}
	if request.ChunkSize < 0 || request.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk sizes cannot be negative", domainerrors.ErrInvalidInput)
	}
	return nil
}

// RepoNameFromURL derives a repository name from its clone URL.
func RepoNameFromURL(repoURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	name := path.Base(trimmed)
	name = strings.TrimSuffix(name, ".git")
	if name == "." || name == "/" {
		return ""
	}
	return name
}
