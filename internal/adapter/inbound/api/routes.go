package api

import (
	"fmt"
	"net/http"
)

// RouteRegistry registers HTTP routes on a ServeMux using method-qualified
// patterns.
type RouteRegistry struct {
	mux      *http.ServeMux
	patterns []string
}

// NewRouteRegistry creates an empty registry.
func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{mux: http.NewServeMux()}
}

// RegisterAPIRoutes registers all API routes with their handlers.
func (r *RouteRegistry) RegisterAPIRoutes(
	healthHandler *HealthHandler,
	vectorizeHandler *VectorizeHandler,
	searchHandler *SearchHandler,
	tenantHandler *TenantHandler,
) {
	r.register("GET /health", healthHandler.GetHealth)

	r.register("POST /api/vectorize", vectorizeHandler.CreateJob)
	r.register("GET /api/jobs/{id}", vectorizeHandler.GetJob)

	r.register("POST /api/search", searchHandler.Search)

	r.register("GET /api/tenants/{tenant}/repositories", tenantHandler.ListRepositories)
	r.register("DELETE /api/tenants/{tenant}/repositories/{name}", tenantHandler.DeleteRepository)
}

func (r *RouteRegistry) register(pattern string, handler http.HandlerFunc) {
	r.mux.HandleFunc(pattern, handler)
	r.patterns = append(r.patterns, pattern)
}

// Patterns returns all registered route patterns.
func (r *RouteRegistry) Patterns() []string {
	return r.patterns
}

// Handler returns the mux wrapped with the given middleware, outermost
// first.
func (r *RouteRegistry) Handler(middleware ...MiddlewareFunc) http.Handler {
	var handler http.Handler = r.mux
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// String renders the registered routes for startup logging.
func (r *RouteRegistry) String() string {
	return fmt.Sprintf("%d routes registered", len(r.patterns))
}
