package api

import (
	"codevectorizer/internal/application/dto"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"codevectorizer/internal/port/inbound"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxRequestBodyBytes bounds request bodies to keep malformed or abusive
// payloads cheap.
const maxRequestBodyBytes = 1 << 20

// SearchHandler serves semantic search queries.
type SearchHandler struct {
	service inbound.SearchService
}

// NewSearchHandler creates the handler.
func NewSearchHandler(service inbound.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles POST /api/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var request dto.SearchRequest
	if err := decodeJSONBody(r, &request); err != nil {
		WriteError(w, r, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err))
		return
	}

	response, err := h.service.Search(r.Context(), request)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, response)
}

// decodeJSONBody decodes a bounded JSON request body, rejecting unknown
// fields and trailing garbage.
func decodeJSONBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected trailing data in request body")
	}
	return nil
}
