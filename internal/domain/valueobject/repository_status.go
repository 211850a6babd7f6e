package valueobject

import "fmt"

// RepositoryStatus represents the lifecycle status of a stored repository.
type RepositoryStatus string

// Repository status constants.
const (
	RepositoryStatusPending    RepositoryStatus = "pending"
	RepositoryStatusProcessing RepositoryStatus = "processing"
	RepositoryStatusCompleted  RepositoryStatus = "completed"
	RepositoryStatusFailed     RepositoryStatus = "failed"
)

// validRepositoryStatuses contains all valid repository statuses.
var validRepositoryStatuses = map[RepositoryStatus]bool{
	RepositoryStatusPending:    true,
	RepositoryStatusProcessing: true,
	RepositoryStatusCompleted:  true,
	RepositoryStatusFailed:     true,
}

// NewRepositoryStatus creates a new RepositoryStatus with validation.
func NewRepositoryStatus(status string) (RepositoryStatus, error) {
	s := RepositoryStatus(status)
	if !validRepositoryStatuses[s] {
		return "", fmt.Errorf("invalid repository status: %s", status)
	}
	return s, nil
}

// String returns the string representation of the status.
func (s RepositoryStatus) String() string {
	return string(s)
}
