package repository

import (
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/domain/valueobject"
	"codevectorizer/internal/port/outbound"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// embeddingDimensions is the width of stored embedding vectors. It matches
// the output of the text-embedding-ada-002 family of models.
const embeddingDimensions = 1536

// PostgreSQLTenantStorage provisions per-tenant schemas and their tables.
// Schema names always come from valueobject.SchemaName, which only emits
// identifier-safe strings, so they can be interpolated into DDL directly.
type PostgreSQLTenantStorage struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLTenantStorage creates a tenant storage backed by the pool.
func NewPostgreSQLTenantStorage(pool *pgxpool.Pool) *PostgreSQLTenantStorage {
	return &PostgreSQLTenantStorage{pool: pool}
}

// EnsureSchema idempotently creates the namespace schema, its tables, and
// the similarity index.
func (s *PostgreSQLTenantStorage) EnsureSchema(ctx context.Context, schema valueobject.SchemaName) error {
	name := schema.String()

	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, name),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.repositories (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				url TEXT NOT NULL,
				clone_path TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'pending',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, name),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.code_files (
				id BIGSERIAL PRIMARY KEY,
				repository_id BIGINT NOT NULL REFERENCES %s.repositories(id) ON DELETE CASCADE,
				path TEXT NOT NULL,
				name TEXT NOT NULL,
				extension TEXT NOT NULL DEFAULT '',
				size BIGINT NOT NULL DEFAULT 0,
				fingerprint TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (repository_id, path)
			)`, name, name),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.code_chunks (
				id BIGSERIAL PRIMARY KEY,
				file_id BIGINT NOT NULL REFERENCES %s.code_files(id) ON DELETE CASCADE,
				chunk_index INT NOT NULL,
				content TEXT NOT NULL,
				start_line INT NOT NULL,
				end_line INT NOT NULL,
				token_count INT NOT NULL,
				embedding vector(%d),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, name, name, embeddingDimensions),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_code_files_repository_id ON %s.code_files (repository_id)`,
			name,
		),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_code_chunks_file_id ON %s.code_chunks (file_id)`,
			name,
		),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_code_chunks_embedding ON %s.code_chunks
				USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
			name,
		),
	}

	for _, statement := range statements {
		if _, err := s.pool.Exec(ctx, statement); err != nil {
			return WrapError(err, fmt.Sprintf("ensure schema %s", name))
		}
	}

	slogger.Debug(ctx, "Ensured tenant schema", slogger.Fields{"schema": name})
	return nil
}

// DropSchema removes the namespace and everything stored in it.
func (s *PostgreSQLTenantStorage) DropSchema(ctx context.Context, schema valueobject.SchemaName) error {
	statement := fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, schema.String())
	if _, err := s.pool.Exec(ctx, statement); err != nil {
		return WrapError(err, fmt.Sprintf("drop schema %s", schema.String()))
	}

	slogger.Info(ctx, "Dropped tenant schema", slogger.Fields{"schema": schema.String()})
	return nil
}

// ListTenantRepositories enumerates every repository stored across a
// tenant's namespaces, one entry per schema.
func (s *PostgreSQLTenantStorage) ListTenantRepositories(
	ctx context.Context,
	tenant string,
) ([]outbound.TenantRepository, error) {
	schemas, err := s.listTenantSchemas(ctx, tenant)
	if err != nil {
		return nil, err
	}

	repositories := make([]outbound.TenantRepository, 0, len(schemas))
	for _, schemaName := range schemas {
		entries, err := s.describeSchema(ctx, schemaName)
		if err != nil {
			return nil, err
		}
		repositories = append(repositories, entries...)
	}
	return repositories, nil
}

// listTenantSchemas discovers the tenant's namespaces via the catalog.
// Underscores in the prefix are escaped so LIKE matches them literally.
func (s *PostgreSQLTenantStorage) listTenantSchemas(ctx context.Context, tenant string) ([]string, error) {
	prefix := valueobject.TenantSchemaPrefix(tenant)
	pattern := strings.ReplaceAll(prefix, "_", `\_`) + "%"

	rows, err := s.pool.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata WHERE schema_name LIKE $1 ORDER BY schema_name`,
		pattern,
	)
	if err != nil {
		return nil, WrapError(err, "list tenant schemas")
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, WrapError(err, "scan tenant schema")
		}
		schemas = append(schemas, name)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "list tenant schemas")
	}
	return schemas, nil
}

func (s *PostgreSQLTenantStorage) describeSchema(
	ctx context.Context,
	schemaName string,
) ([]outbound.TenantRepository, error) {
	query := fmt.Sprintf(`
		SELECT r.name, r.url, r.status, r.created_at, r.updated_at,
			(SELECT count(*) FROM %s.code_files f WHERE f.repository_id = r.id),
			(SELECT count(*) FROM %s.code_chunks c
				JOIN %s.code_files f ON c.file_id = f.id
				WHERE f.repository_id = r.id)
		FROM %s.repositories r
		ORDER BY r.name`,
		schemaName, schemaName, schemaName, schemaName,
	)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, WrapError(err, fmt.Sprintf("describe schema %s", schemaName))
	}
	defer rows.Close()

	var entries []outbound.TenantRepository
	for rows.Next() {
		var entry outbound.TenantRepository
		var createdAt, updatedAt time.Time
		if err := rows.Scan(
			&entry.RepoName, &entry.RepoURL, &entry.Status,
			&createdAt, &updatedAt,
			&entry.FileCount, &entry.ChunkCount,
		); err != nil {
			return nil, WrapError(err, "scan tenant repository")
		}
		entry.SchemaName = schemaName
		entry.CreatedAt = &createdAt
		entry.UpdatedAt = &updatedAt
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, fmt.Sprintf("describe schema %s", schemaName))
	}
	return entries, nil
}
