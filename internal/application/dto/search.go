package dto

import "codevectorizer/internal/port/outbound"

// SearchRequest is a semantic search request scoped to one tenant.
type SearchRequest struct {
	Query               string  `json:"query"`
	Tenant              string  `json:"tenant"`
	RepoName            string  `json:"repo_name,omitempty"`
	Limit               int     `json:"limit,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// SearchResponse carries ranked search results.
type SearchResponse struct {
	Results []outbound.SearchResult `json:"results"`
	Total   int                     `json:"total"`
	Query   string                  `json:"query"`
}

// TenantReposResponse lists the repositories stored for one tenant.
type TenantReposResponse struct {
	Tenant       string                      `json:"tenant"`
	Repositories []outbound.TenantRepository `json:"repositories"`
}
