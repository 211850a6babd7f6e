package api

import (
	"codevectorizer/internal/application/dto"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"codevectorizer/internal/port/inbound"
	"fmt"
	"net/http"
)

// VectorizeHandler serves job creation and job status endpoints.
type VectorizeHandler struct {
	service inbound.VectorizationService
}

// NewVectorizeHandler creates the handler.
func NewVectorizeHandler(service inbound.VectorizationService) *VectorizeHandler {
	return &VectorizeHandler{service: service}
}

// CreateJob handles POST /api/vectorize.
func (h *VectorizeHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var request dto.VectorizeRequest
	if err := decodeJSONBody(r, &request); err != nil {
		WriteError(w, r, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err))
		return
	}

	response, err := h.service.CreateVectorizeJob(r.Context(), request)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusAccepted, response)
}

// GetJob handles GET /api/jobs/{id}.
func (h *VectorizeHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	response, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}
