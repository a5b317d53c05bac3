package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/storefront/internal/blob"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/screen"
	"github.com/fjod/storefront/internal/service"
	"github.com/sony/gobreaker/v2"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{Error: message, Code: code})
}

// handleError maps domain and store errors to HTTP statuses. Anything unrecognised is logged and
// hidden behind a generic message.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, r, http.StatusBadRequest, "invalid_argument", verr.Message)
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidID), errors.Is(err, blob.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, screen.ErrIllegalTransition):
		respondError(w, r, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, service.ErrCartUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, "cart_unavailable", "your cart is unavailable right now, please try again")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, r, http.StatusServiceUnavailable, "service_unavailable", "order service is unavailable, please try again later")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.FromContext(r.Context()).WithError(err).Error("request failed")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
