package api

import (
	"errors"
	"net/http"

	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
)

// writeServiceError maps domain errors onto HTTP statuses. Upstream details
// are logged but never sent to the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	log := logger.WithContext(r.Context())

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeErrorResponse(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, apperrors.ErrUnauthorized):
		h.writeErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, apperrors.ErrForbidden):
		h.writeErrorResponse(w, r, http.StatusForbidden, "Forbidden")
	case errors.Is(err, apperrors.ErrRateLimit):
		h.writeErrorResponse(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, apperrors.ErrServiceUnavailable):
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "Service unavailable")
	case errors.Is(err, apperrors.ErrUpstream), errors.Is(err, apperrors.ErrTimeout):
		log.Warn("Upstream failure", "action", action, "error", err)
		h.writeErrorResponse(w, r, http.StatusBadGateway, "Upstream service unavailable")
	default:
		log.Error("Request failed", "action", action, "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
