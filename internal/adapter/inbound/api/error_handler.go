package api

import (
	"codevectorizer/internal/adapter/outbound/repository"
	"codevectorizer/internal/application/common/slogger"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"errors"
	"net/http"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError maps an error onto an HTTP status code and writes the JSON
// error body. Internal errors are logged with their cause but reported to
// the client without it.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, label := classifyError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		slogger.ErrorWithError(r.Context(), err, "Request failed", slogger.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		message = "internal server error"
	}

	_ = WriteJSON(w, status, ErrorResponse{
		Error:   label,
		Message: message,
	})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domainerrors.ErrJobNotFound),
		errors.Is(err, domainerrors.ErrRepositoryNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domainerrors.ErrJobAlreadyExists),
		errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domainerrors.ErrEmbeddingUnavailable):
		return http.StatusBadGateway, "embedding_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
