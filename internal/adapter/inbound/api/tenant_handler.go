package api

import (
	"codevectorizer/internal/port/inbound"
	"net/http"
)

// TenantHandler serves tenant-level repository management endpoints.
type TenantHandler struct {
	service inbound.TenantService
}

// NewTenantHandler creates the handler.
func NewTenantHandler(service inbound.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

// ListRepositories handles GET /api/tenants/{tenant}/repositories.
func (h *TenantHandler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")

	response, err := h.service.ListRepositories(r.Context(), tenant)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// DeleteRepository handles DELETE /api/tenants/{tenant}/repositories/{name}.
func (h *TenantHandler) DeleteRepository(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	name := r.PathValue("name")

	if err := h.service.DeleteRepository(r.Context(), tenant, name); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
