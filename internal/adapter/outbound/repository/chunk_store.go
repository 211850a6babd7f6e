package repository

import (
	"codevectorizer/internal/domain/valueobject"
	"codevectorizer/internal/port/outbound"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultSearchLimit bounds similarity queries that do not specify one.
const defaultSearchLimit = 10

// PostgreSQLChunkStore implements the ChunkStore interface on a per-tenant
// schema.
type PostgreSQLChunkStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLChunkStore creates a chunk store backed by the pool.
func NewPostgreSQLChunkStore(pool *pgxpool.Pool) *PostgreSQLChunkStore {
	return &PostgreSQLChunkStore{pool: pool}
}

// DeleteByFileID removes all chunks of one file.
func (s *PostgreSQLChunkStore) DeleteByFileID(
	ctx context.Context,
	schema valueobject.SchemaName,
	fileID int64,
) error {
	query := fmt.Sprintf(`DELETE FROM %s.code_chunks WHERE file_id = $1`, schema.String())
	if _, err := s.pool.Exec(ctx, query, fileID); err != nil {
		return WrapError(err, "delete chunks by file")
	}
	return nil
}

// BulkInsert stores chunk rows in one batch and returns the number
// inserted.
func (s *PostgreSQLChunkStore) BulkInsert(
	ctx context.Context,
	schema valueobject.SchemaName,
	chunks []outbound.ChunkRecord,
) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.code_chunks (file_id, chunk_index, content, start_line, end_line, token_count, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, schema.String())

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(query,
			chunk.FileID,
			chunk.ChunkIndex,
			chunk.Content,
			chunk.StartLine,
			chunk.EndLine,
			chunk.TokenCount,
			chunk.Embedding,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return 0, WrapError(err, "bulk insert chunks")
		}
	}
	return len(chunks), nil
}

// Search returns the most similar chunks above the query threshold,
// ordered by descending cosine similarity.
func (s *PostgreSQLChunkStore) Search(
	ctx context.Context,
	schema valueobject.SchemaName,
	query outbound.ChunkSearchQuery,
) ([]outbound.SearchResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	// The <=> operator yields cosine distance; similarity is 1 - distance.
	sql := fmt.Sprintf(`
		SELECT c.content, c.start_line, c.end_line, c.token_count,
			f.path, f.name, r.name,
			1 - (c.embedding <=> $1) AS similarity
		FROM %s.code_chunks c
		JOIN %s.code_files f ON c.file_id = f.id
		JOIN %s.repositories r ON f.repository_id = r.id
		WHERE c.embedding IS NOT NULL
			AND 1 - (c.embedding <=> $1) >= $2
		ORDER BY c.embedding <=> $1
		LIMIT $3`,
		schema.String(), schema.String(), schema.String(),
	)

	rows, err := s.pool.Query(ctx, sql, query.Embedding, query.SimilarityThreshold, limit)
	if err != nil {
		return nil, WrapError(err, "search chunks")
	}
	defer rows.Close()

	var results []outbound.SearchResult
	for rows.Next() {
		var result outbound.SearchResult
		if err := rows.Scan(
			&result.Content, &result.StartLine, &result.EndLine, &result.TokenCount,
			&result.FilePath, &result.FileName, &result.RepoName,
			&result.Similarity,
		); err != nil {
			return nil, WrapError(err, "scan search result")
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "search chunks")
	}
	return results, nil
}
