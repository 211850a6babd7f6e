package repository

import (
	"codevectorizer/internal/domain/valueobject"
	"codevectorizer/internal/port/outbound"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLCodeFileStore implements the CodeFileStore interface on a
// per-tenant schema.
type PostgreSQLCodeFileStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLCodeFileStore creates a code file store backed by the pool.
func NewPostgreSQLCodeFileStore(pool *pgxpool.Pool) *PostgreSQLCodeFileStore {
	return &PostgreSQLCodeFileStore{pool: pool}
}

// ListFingerprints returns the stored path to fingerprint mapping for a
// repository.
func (s *PostgreSQLCodeFileStore) ListFingerprints(
	ctx context.Context,
	schema valueobject.SchemaName,
	repositoryID int64,
) (map[string]string, error) {
	query := fmt.Sprintf(
		`SELECT path, fingerprint FROM %s.code_files WHERE repository_id = $1`,
		schema.String(),
	)

	rows, err := s.pool.Query(ctx, query, repositoryID)
	if err != nil {
		return nil, WrapError(err, "list file fingerprints")
	}
	defer rows.Close()

	fingerprints := make(map[string]string)
	for rows.Next() {
		var path, fingerprint string
		if err := rows.Scan(&path, &fingerprint); err != nil {
			return nil, WrapError(err, "scan file fingerprint")
		}
		fingerprints[path] = fingerprint
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "list file fingerprints")
	}
	return fingerprints, nil
}

// Insert stores a new file row and returns its ID.
func (s *PostgreSQLCodeFileStore) Insert(
	ctx context.Context,
	schema valueobject.SchemaName,
	record outbound.CodeFileRecord,
) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s.code_files (repository_id, path, name, extension, size, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`, schema.String())

	var id int64
	err := s.pool.QueryRow(ctx, query,
		record.RepositoryID,
		record.Path,
		record.Name,
		record.Extension,
		record.Size,
		record.Fingerprint,
	).Scan(&id)
	if err != nil {
		return 0, WrapError(err, "insert code file")
	}
	return id, nil
}

// Update refreshes the size and fingerprint of an existing file row.
func (s *PostgreSQLCodeFileStore) Update(
	ctx context.Context,
	schema valueobject.SchemaName,
	fileID int64,
	size int64,
	fingerprint string,
) error {
	query := fmt.Sprintf(`
		UPDATE %s.code_files
		SET size = $2, fingerprint = $3, updated_at = now()
		WHERE id = $1`, schema.String())

	tag, err := s.pool.Exec(ctx, query, fileID, size, fingerprint)
	if err != nil {
		return WrapError(err, "update code file")
	}
	if tag.RowsAffected() == 0 {
		return WrapError(ErrNotFound, "update code file")
	}
	return nil
}

// FindIDByPath resolves a file row ID by repository and path.
func (s *PostgreSQLCodeFileStore) FindIDByPath(
	ctx context.Context,
	schema valueobject.SchemaName,
	repositoryID int64,
	path string,
) (int64, error) {
	query := fmt.Sprintf(
		`SELECT id FROM %s.code_files WHERE repository_id = $1 AND path = $2`,
		schema.String(),
	)

	var id int64
	if err := s.pool.QueryRow(ctx, query, repositoryID, path).Scan(&id); err != nil {
		return 0, WrapError(err, "find code file by path")
	}
	return id, nil
}

// DeleteByPaths removes file rows and their chunks for the given paths in
// one transaction.
func (s *PostgreSQLCodeFileStore) DeleteByPaths(
	ctx context.Context,
	schema valueobject.SchemaName,
	repositoryID int64,
	paths []string,
) error {
	if len(paths) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return WrapError(err, "delete code files")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleteChunks := fmt.Sprintf(`
		DELETE FROM %s.code_chunks
		WHERE file_id IN (
			SELECT id FROM %s.code_files
			WHERE repository_id = $1 AND path = ANY($2)
		)`, schema.String(), schema.String())
	if _, err := tx.Exec(ctx, deleteChunks, repositoryID, paths); err != nil {
		return WrapError(err, "delete chunks of removed files")
	}

	deleteFiles := fmt.Sprintf(
		`DELETE FROM %s.code_files WHERE repository_id = $1 AND path = ANY($2)`,
		schema.String(),
	)
	if _, err := tx.Exec(ctx, deleteFiles, repositoryID, paths); err != nil {
		return WrapError(err, "delete removed files")
	}

	if err := tx.Commit(ctx); err != nil {
		return WrapError(err, "delete code files")
	}
	return nil
}
