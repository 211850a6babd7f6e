package service

import (
	"codevectorizer/internal/application/dto"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"codevectorizer/internal/domain/valueobject"
	"codevectorizer/internal/port/outbound"
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	defaultSearchLimit     = 10
	maxSearchLimit         = 100
	defaultSearchThreshold = 0.0
)

// SearchApplicationService answers semantic queries by embedding the query
// text and running a similarity search in the tenant's namespaces.
type SearchApplicationService struct {
	embedder outbound.EmbeddingService
	chunks   outbound.ChunkStore
	tenants  outbound.TenantStorage
}

// NewSearchApplicationService wires the search service.
func NewSearchApplicationService(
	embedder outbound.EmbeddingService,
	chunks outbound.ChunkStore,
	tenants outbound.TenantStorage,
) *SearchApplicationService {
	return &SearchApplicationService{
		embedder: embedder,
		chunks:   chunks,
		tenants:  tenants,
	}
}

// Search embeds the query and returns the most similar chunks. When the
// request names a repository only that namespace is searched; otherwise
// every namespace of the tenant is searched and results are merged by
// similarity.
func (s *SearchApplicationService) Search(
	ctx context.Context,
	request dto.SearchRequest,
) (dto.SearchResponse, error) {
	if strings.TrimSpace(request.Query) == "" {
		return dto.SearchResponse{}, fmt.Errorf("%w: query is required", domainerrors.ErrInvalidInput)
	}
	if strings.TrimSpace(request.Tenant) == "" {
		return dto.SearchResponse{}, fmt.Errorf("%w: tenant is required", domainerrors.ErrInvalidInput)
	}

	limit := request.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	threshold := request.SimilarityThreshold
	if threshold < 0 {
		threshold = defaultSearchThreshold
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, request.Query)
	if err != nil {
		return dto.SearchResponse{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if embedding == nil {
		return dto.SearchResponse{}, domainerrors.ErrEmbeddingUnavailable
	}

	schemas, err := s.resolveSchemas(ctx, request)
	if err != nil {
		return dto.SearchResponse{}, err
	}

	query := outbound.ChunkSearchQuery{
		Embedding:           *embedding,
		Limit:               limit,
		SimilarityThreshold: threshold,
	}

	var merged []outbound.SearchResult
	for _, schema := range schemas {
		results, err := s.chunks.Search(ctx, schema, query)
		if err != nil {
			return dto.SearchResponse{}, err
		}
		merged = append(merged, results...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return dto.SearchResponse{
		Results: merged,
		Total:   len(merged),
		Query:   request.Query,
	}, nil
}

func (s *SearchApplicationService) resolveSchemas(
	ctx context.Context,
	request dto.SearchRequest,
) ([]valueobject.SchemaName, error) {
	if request.RepoName != "" {
		schema, err := valueobject.NewSchemaName(request.Tenant, request.RepoName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
		}
		return []valueobject.SchemaName{schema}, nil
	}

	entries, err := s.tenants.ListTenantRepositories(ctx, request.Tenant)
	if err != nil {
		return nil, err
	}

	schemas := make([]valueobject.SchemaName, 0, len(entries))
	for _, entry := range entries {
		schema, err := valueobject.NewSchemaName(request.Tenant, entry.RepoName)
		if err != nil {
			continue
		}
		schemas = append(schemas, schema)
	}
	return schemas, nil
}
