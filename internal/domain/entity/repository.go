package entity

import (
	"time"

	"codevectorizer/internal/domain/valueobject"
)

// Repository represents a source code repository tracked within one tenant
// namespace.
type Repository struct {
	id        int64
	name      string
	url       string
	clonePath string
	status    valueobject.RepositoryStatus
	createdAt time.Time
	updatedAt time.Time
}

// NewRepository creates a new Repository entity in the pending state.
func NewRepository(name, url string) *Repository {
	now := time.Now()
	return &Repository{
		name:      name,
		url:       url,
		status:    valueobject.RepositoryStatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreRepository creates a Repository entity from stored data.
func RestoreRepository(
	id int64,
	name string,
	url string,
	clonePath string,
	status valueobject.RepositoryStatus,
	createdAt time.Time,
	updatedAt time.Time,
) *Repository {
	return &Repository{
		id:        id,
		name:      name,
		url:       url,
		clonePath: clonePath,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the repository row ID within its namespace.
func (r *Repository) ID() int64 {
	return r.id
}

// SetID assigns the generated row ID after the first save.
func (r *Repository) SetID(id int64) {
	r.id = id
}

// Name returns the repository name.
func (r *Repository) Name() string {
	return r.name
}

// URL returns the source URL.
func (r *Repository) URL() string {
	return r.url
}

// ClonePath returns the last local working copy path.
func (r *Repository) ClonePath() string {
	return r.clonePath
}

// Status returns the lifecycle status.
func (r *Repository) Status() valueobject.RepositoryStatus {
	return r.status
}

// CreatedAt returns the creation timestamp.
func (r *Repository) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns the last update timestamp.
func (r *Repository) UpdatedAt() time.Time {
	return r.updatedAt
}

// BeginProcessing records a fresh ingestion run against this repository.
func (r *Repository) BeginProcessing(url, clonePath string) {
	r.url = url
	r.clonePath = clonePath
	r.status = valueobject.RepositoryStatusProcessing
	r.updatedAt = time.Now()
}

// MarkCompleted marks the repository as fully ingested.
func (r *Repository) MarkCompleted() {
	r.status = valueobject.RepositoryStatusCompleted
	r.updatedAt = time.Now()
}

// MarkFailed marks the repository ingestion as failed.
func (r *Repository) MarkFailed() {
	r.status = valueobject.RepositoryStatusFailed
	r.updatedAt = time.Now()
}
