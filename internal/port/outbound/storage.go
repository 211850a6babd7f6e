package outbound

import (
	"context"
	"time"

	"codevectorizer/internal/domain/entity"
	"codevectorizer/internal/domain/valueobject"

	pgvector "github.com/pgvector/pgvector-go"
)

// CodeFileRecord is the storage shape of one file row.
type CodeFileRecord struct {
	ID           int64
	RepositoryID int64
	Path         string
	Name         string
	Extension    string
	Size         int64
	Fingerprint  string
}

// ChunkRecord is the storage shape of one chunk row with its embedding.
type ChunkRecord struct {
	FileID     int64
	ChunkIndex int
	Content    string
	StartLine  int
	EndLine    int
	TokenCount int
	Embedding  pgvector.Vector
}

// SearchResult is one similarity-search hit.
type SearchResult struct {
	Content    string  `json:"content"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	TokenCount int     `json:"token_count"`
	FilePath   string  `json:"file_path"`
	FileName   string  `json:"file_name"`
	RepoName   string  `json:"repo_name"`
	Similarity float64 `json:"similarity"`
}

// TenantRepository summarizes one repository within a tenant namespace.
type TenantRepository struct {
	SchemaName string     `json:"schema_name"`
	RepoName   string     `json:"repo_name"`
	RepoURL    string     `json:"repo_url"`
	Status     string     `json:"status"`
	FileCount  int        `json:"file_count"`
	ChunkCount int        `json:"chunk_count"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// TenantStorage provisions and discovers per-tenant storage namespaces.
type TenantStorage interface {
	// EnsureSchema idempotently creates the namespace's schema, tables,
	// and indexes. Safe to call on every run.
	EnsureSchema(ctx context.Context, schema valueobject.SchemaName) error

	// DropSchema removes the namespace and everything in it.
	DropSchema(ctx context.Context, schema valueobject.SchemaName) error

	// ListTenantRepositories enumerates all repositories stored across
	// a tenant's namespaces.
	ListTenantRepositories(ctx context.Context, tenant string) ([]TenantRepository, error)
}

// RepositoryStore persists repository rows within a tenant namespace.
type RepositoryStore interface {
	// Upsert inserts the repository row or updates the existing row for
	// its name, assigning the row ID on the entity.
	Upsert(ctx context.Context, schema valueobject.SchemaName, repository *entity.Repository) error

	FindByName(ctx context.Context, schema valueobject.SchemaName, name string) (*entity.Repository, error)

	UpdateStatus(
		ctx context.Context,
		schema valueobject.SchemaName,
		name string,
		status valueobject.RepositoryStatus,
	) error
}

// CodeFileStore persists file rows within a tenant namespace.
type CodeFileStore interface {
	// ListFingerprints returns the previously recorded path to
	// fingerprint mapping for a repository.
	ListFingerprints(
		ctx context.Context,
		schema valueobject.SchemaName,
		repositoryID int64,
	) (map[string]string, error)

	// Insert stores a new file row and returns its ID.
	Insert(ctx context.Context, schema valueobject.SchemaName, record CodeFileRecord) (int64, error)

	// Update refreshes the size and fingerprint of an existing file row.
	Update(
		ctx context.Context,
		schema valueobject.SchemaName,
		fileID int64,
		size int64,
		fingerprint string,
	) error

	// FindIDByPath resolves a file row ID by repository and path.
	FindIDByPath(
		ctx context.Context,
		schema valueobject.SchemaName,
		repositoryID int64,
		path string,
	) (int64, error)

	// DeleteByPaths removes file rows and their chunks for the given
	// paths. Chunks are deleted before their file rows.
	DeleteByPaths(
		ctx context.Context,
		schema valueobject.SchemaName,
		repositoryID int64,
		paths []string,
	) error
}

// ChunkSearchQuery parameterizes a similarity search within one namespace.
type ChunkSearchQuery struct {
	Embedding           pgvector.Vector
	Limit               int
	SimilarityThreshold float64
}

// ChunkStore persists chunk rows and serves similarity queries within a
// tenant namespace.
type ChunkStore interface {
	// DeleteByFileID removes all chunks of one file.
	DeleteByFileID(ctx context.Context, schema valueobject.SchemaName, fileID int64) error

	// BulkInsert stores chunk rows, returning the number inserted.
	BulkInsert(ctx context.Context, schema valueobject.SchemaName, chunks []ChunkRecord) (int, error)

	// Search returns the most similar chunks above the query threshold,
	// ordered by descending similarity.
	Search(
		ctx context.Context,
		schema valueobject.SchemaName,
		query ChunkSearchQuery,
	) ([]SearchResult, error)
}
