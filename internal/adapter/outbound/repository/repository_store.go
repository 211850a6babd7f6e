package repository

import (
	"codevectorizer/internal/domain/entity"
	"codevectorizer/internal/domain/valueobject"
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLRepositoryStore implements the RepositoryStore interface on a
// per-tenant schema.
type PostgreSQLRepositoryStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLRepositoryStore creates a repository store backed by the pool.
func NewPostgreSQLRepositoryStore(pool *pgxpool.Pool) *PostgreSQLRepositoryStore {
	return &PostgreSQLRepositoryStore{pool: pool}
}

// Upsert inserts the repository row or refreshes the existing row keyed by
// name, assigning the row ID on the entity.
func (s *PostgreSQLRepositoryStore) Upsert(
	ctx context.Context,
	schema valueobject.SchemaName,
	repository *entity.Repository,
) error {
	if repository == nil {
		return ErrInvalidArgument
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.repositories (name, url, clone_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			url = EXCLUDED.url,
			clone_path = EXCLUDED.clone_path,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING id`, schema.String())

	var id int64
	err := s.pool.QueryRow(ctx, query,
		repository.Name(),
		repository.URL(),
		repository.ClonePath(),
		repository.Status().String(),
		repository.CreatedAt(),
		repository.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		return WrapError(err, "upsert repository")
	}

	repository.SetID(id)
	return nil
}

// FindByName finds a repository by its name. Returns (nil, nil) when no
// row exists.
func (s *PostgreSQLRepositoryStore) FindByName(
	ctx context.Context,
	schema valueobject.SchemaName,
	name string,
) (*entity.Repository, error) {
	if name == "" {
		return nil, ErrInvalidArgument
	}

	query := fmt.Sprintf(`
		SELECT id, name, url, clone_path, status, created_at, updated_at
		FROM %s.repositories
		WHERE name = $1`, schema.String())

	var (
		id                   int64
		repoName, url        string
		clonePath, statusStr string
		createdAt, updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&id, &repoName, &url, &clonePath, &statusStr, &createdAt, &updatedAt,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		return nil, WrapError(err, "find repository by name")
	}

	status, err := valueobject.NewRepositoryStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("stored repository has invalid status: %w", err)
	}

	return entity.RestoreRepository(id, repoName, url, clonePath, status, createdAt, updatedAt), nil
}

// UpdateStatus sets the status of the named repository.
func (s *PostgreSQLRepositoryStore) UpdateStatus(
	ctx context.Context,
	schema valueobject.SchemaName,
	name string,
	status valueobject.RepositoryStatus,
) error {
	query := fmt.Sprintf(`
		UPDATE %s.repositories
		SET status = $2, updated_at = now()
		WHERE name = $1`, schema.String())

	tag, err := s.pool.Exec(ctx, query, name, status.String())
	if err != nil {
		return WrapError(err, "update repository status")
	}
	if tag.RowsAffected() == 0 {
		return WrapError(ErrNotFound, "update repository status")
	}
	return nil
}
