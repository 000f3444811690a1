package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rajasatyajit/TravelSafe/internal/auth"
	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/geo"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/internal/models"
	"github.com/rajasatyajit/TravelSafe/pkg/utils"
)

const maxHistoryBody = 64 << 10

// listHistory handles GET /api/history
func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())

	q, err := parseHistoryQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q.UserID = sess.UserID

	records, err := h.store.ListRecords(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err, "history.list")
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"data":  records,
		"count": len(records),
	})
}

func parseHistoryQuery(r *http.Request) (models.HistoryQuery, error) {
	q := models.HistoryQuery{}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return q, fmt.Errorf("invalid limit: %s", limitStr)
		}
		if limit < 1 || limit > models.MaxHistoryLimit {
			return q, fmt.Errorf("limit must be between 1 and %d", models.MaxHistoryLimit)
		}
		q.Limit = limit
	}
	return q.Normalize(), nil
}

// saveHistory handles POST /api/history
func (h *Handler) saveHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := auth.GetSession(ctx)

	var body models.SaveHistoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHistoryBody)).Decode(&body); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := body.Validate(); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	meta := make(map[string]string, len(body.Meta)+1)
	for k, v := range body.Meta {
		meta[k] = v
	}
	// raw client addresses are never stored
	meta["ipHash"] = utils.ShortHash(geo.ClientIP(r.RemoteAddr), 16)

	rec, err := h.store.SaveRecord(ctx, models.HistoryRecord{
		UserID:   sess.UserID,
		IPInfo:   body.IPInfo,
		Advisory: body.Advisory,
		Meta:     meta,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "history.save")
		return
	}

	logger.WithContext(ctx).Info("Saved advisory snapshot", "user_id", sess.UserID, "record_id", rec.ID, "country", rec.Advisory.CountryCode)
	h.writeJSONResponse(w, http.StatusCreated, rec)
}

// deleteHistory handles DELETE /api/history/{id}
func (h *Handler) deleteHistory(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteRecord(r.Context(), sess.UserID, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeErrorResponse(w, r, http.StatusNotFound, "Record not found")
			return
		}
		h.writeServiceError(w, r, err, "history.delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
