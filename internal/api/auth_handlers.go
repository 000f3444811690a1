package api

import (
	"net/http"

	"github.com/rajasatyajit/TravelSafe/internal/auth"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/internal/models"
)

func (h *Handler) oauthReady(w http.ResponseWriter, r *http.Request) bool {
	if h.oauth == nil || h.sessions == nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return false
	}
	return true
}

// googleLogin handles GET /auth/google
func (h *Handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.oauthReady(w, r) {
		return
	}
	state := auth.NewState(w, h.cfg.OAuth.SecureCookies)
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// googleCallback handles GET /auth/google/callback
func (h *Handler) googleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.oauthReady(w, r) {
		return
	}
	ctx := r.Context()
	log := logger.WithContext(ctx)

	if !auth.CheckState(w, r) {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid oauth state")
		return
	}
	if e := r.URL.Query().Get("error"); e != "" {
		log.Info("Google sign-in declined", "reason", e)
		h.writeErrorResponse(w, r, http.StatusBadRequest, "sign-in was not completed")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "missing authorization code")
		return
	}

	gu, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		log.Warn("Google code exchange failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusBadGateway, "Google sign-in failed")
		return
	}

	name := gu.Name
	if name == "" {
		name = gu.Email
	}
	user, err := h.store.UpsertUser(ctx, models.User{GoogleID: gu.ID, DisplayName: name, Email: gu.Email})
	if err != nil {
		h.writeServiceError(w, r, err, "auth.upsert_user")
		return
	}
	if err := h.sessions.SetCookie(w, user); err != nil {
		h.writeServiceError(w, r, err, "auth.session")
		return
	}

	log.Info("User signed in", "user_id", user.ID)

	redirect := h.cfg.OAuth.SuccessRedirect
	if redirect == "" {
		redirect = "/"
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// logout handles POST /auth/logout
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if h.sessions != nil {
		h.sessions.ClearCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /auth/me
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSession(r.Context())
	if sess == nil {
		h.writeErrorResponse(w, r, http.StatusUnauthorized, "Not signed in")
		return
	}

	user, err := h.store.GetUser(r.Context(), sess.UserID)
	if err != nil {
		h.writeServiceError(w, r, err, "auth.me")
		return
	}
	if user == nil {
		// the session outlived the user row (in-memory store restart)
		user = &models.User{ID: sess.UserID, DisplayName: sess.Name, Email: sess.Email}
	}

	w.Header().Set("Cache-Control", "private, no-store")
	h.writeJSONResponse(w, http.StatusOK, user)
}
