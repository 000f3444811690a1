package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rajasatyajit/TravelSafe/config"
	"github.com/rajasatyajit/TravelSafe/internal/auth"
	middlewares "github.com/rajasatyajit/TravelSafe/internal/middleware"
	"github.com/rajasatyajit/TravelSafe/internal/models"
	"github.com/rajasatyajit/TravelSafe/internal/ratelimit"
	"github.com/rajasatyajit/TravelSafe/internal/store"
)

// AdvisoryService scores the travel advisory for a country.
type AdvisoryService interface {
	GetAdvisory(ctx context.Context, countryCode string) (models.AdvisoryResult, error)
}

// Geolocator resolves a client address.
type Geolocator interface {
	Lookup(ctx context.Context, ip string) (models.IPInfo, error)
}

// Deps are the collaborators the handler serves from. Limiter, OAuth and
// Sessions may be nil; the matching routes then degrade or answer 503.
type Deps struct {
	Config     *config.Config
	Advisories AdvisoryService
	Geo        Geolocator
	Store      store.Store
	Verifier   *auth.Verifier
	Limiter    ratelimit.Limiter
	Sessions   *auth.SessionManager
	OAuth      auth.Provider
	// Checks are extra readiness probes keyed by component name.
	Checks map[string]func(context.Context) error
}

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// Handler handles HTTP requests for the API
type Handler struct {
	cfg        *config.Config
	advisories AdvisoryService
	geo        Geolocator
	store      store.Store
	verifier   *auth.Verifier
	limiter    ratelimit.Limiter
	sessions   *auth.SessionManager
	oauth      auth.Provider
	checks     map[string]func(context.Context) error
	build      BuildInfo
	startTime  time.Time
	now        func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(d Deps, build BuildInfo) *Handler {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	v := d.Verifier
	if v == nil {
		v = auth.NewVerifier(cfg.Auth.StaticKeys, nil)
	}
	return &Handler{
		cfg:        cfg,
		advisories: d.Advisories,
		geo:        d.Geo,
		store:      d.Store,
		verifier:   v,
		limiter:    d.Limiter,
		sessions:   d.Sessions,
		oauth:      d.OAuth,
		checks:     d.Checks,
		build:      build,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)
		r.Get("/version", h.versionHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewares.AdminSecret(h.cfg.Auth.AdminSecret))
			r.Post("/keys", h.adminCreateKey)
			r.Post("/keys/{key_id}/revoke", h.adminRevokeKey)
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(middlewares.Session(h.sessions))
		r.Get("/google", h.googleLogin)
		r.Get("/google/callback", h.googleCallback)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewares.Session(h.sessions))
		r.Use(middlewares.APIKeyAuth(h.cfg.Auth, h.verifier))
		r.Use(middlewares.RateLimit(h.limiter))

		r.Get("/ipinfo", h.ipInfoHandler)
		r.Get("/advisory/{code}", h.advisoryHandler)
		r.Get("/combined", h.combinedHandler)
		r.Get("/usage", h.usageHandler)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireSession)
			r.Get("/history", h.listHistory)
			r.Post("/history", h.saveHistory)
			r.Delete("/history/{id}", h.deleteHistory)
		})
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": h.now().UTC(),
		"version":   h.build.Version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"store": "ok",
	}

	statusCode := http.StatusOK
	status := "ready"

	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}
	for name, check := range h.checks {
		checks[name] = "ok"
		if err := check(ctx); err != nil {
			checks[name] = "error: " + err.Error()
			statusCode = http.StatusServiceUnavailable
			status = "not_ready"
		}
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": h.now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": h.now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.build.Version,
		"build_time": h.build.BuildTime,
		"git_commit": h.build.GitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: h.now().UTC(),
		RequestID: chimw.GetReqID(r.Context()),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
