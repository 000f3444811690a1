package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rajasatyajit/TravelSafe/internal/auth"
	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
)

type createKeyRequest struct {
	Owner string `json:"owner"`
	Plan  string `json:"plan"`
	Env   string `json:"env"`
}

// POST /v1/admin/keys
func (h *Handler) adminCreateKey(w http.ResponseWriter, r *http.Request) {
	var body createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.Owner = strings.TrimSpace(body.Owner)
	if body.Owner == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "owner is required")
		return
	}
	if body.Env == "" {
		body.Env = "live"
	}
	if body.Env != "live" && body.Env != "test" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "env must be live or test")
		return
	}

	raw, rec, err := h.verifier.IssueKey(r.Context(), body.Owner, body.Plan, body.Env)
	if err != nil {
		h.writeServiceError(w, r, err, "admin.create_key")
		return
	}

	logger.WithContext(r.Context()).Info("API key issued", "key_id", rec.KeyID, "owner", rec.Owner)
	h.writeJSONResponse(w, http.StatusCreated, map[string]any{
		"api_key":    raw,
		"key_id":     rec.KeyID,
		"owner":      rec.Owner,
		"plan":       rec.Plan,
		"status":     rec.Status,
		"created_at": rec.CreatedAt,
	})
}

// POST /v1/admin/keys/{key_id}/revoke
func (h *Handler) adminRevokeKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "key_id")
	if err := h.verifier.RevokeKey(r.Context(), keyID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeErrorResponse(w, r, http.StatusNotFound, "API key not found")
			return
		}
		h.writeServiceError(w, r, err, "admin.revoke_key")
		return
	}
	logger.WithContext(r.Context()).Info("API key revoked", "key_id", keyID)
	h.writeJSONResponse(w, http.StatusOK, map[string]any{"status": auth.KeyRevoked, "key_id": keyID})
}
