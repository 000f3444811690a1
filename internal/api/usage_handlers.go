package api

import (
	"net/http"
	"strings"

	middlewares "github.com/rajasatyajit/TravelSafe/internal/middleware"
	"github.com/rajasatyajit/TravelSafe/internal/ratelimit"
)

// usageHandler returns this month's request counters for the calling principal.
// Counting happens in middleware.RateLimit, so this request is not yet included.
func (h *Handler) usageHandler(w http.ResponseWriter, r *http.Request) {
	key := middlewares.PrincipalKey(r)
	kind, _, _ := strings.Cut(key, ":")
	now := h.now()

	u := ratelimit.Usage{Period: now.UTC().Format("200601"), Endpoints: map[string]int{}}
	if h.limiter != nil {
		var err error
		u, err = h.limiter.Usage(r.Context(), key, now)
		if err != nil {
			h.writeServiceError(w, r, err, "usage")
			return
		}
	}

	w.Header().Set("Cache-Control", "private, no-store")
	h.writeJSONResponse(w, http.StatusOK, map[string]any{
		"principal": kind,
		"usage":     u,
		"limit_rpm": h.cfg.RateLimit.RequestsPerMinute,
	})
}
