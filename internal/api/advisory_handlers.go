package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rajasatyajit/TravelSafe/internal/advisory"
	"github.com/rajasatyajit/TravelSafe/internal/geo"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/internal/models"
)

// ipInfoHandler handles GET /api/ipinfo
func (h *Handler) ipInfoHandler(w http.ResponseWriter, r *http.Request) {
	info, err := h.geo.Lookup(r.Context(), geo.ClientIP(r.RemoteAddr))
	if err != nil {
		h.writeServiceError(w, r, err, "ipinfo")
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	h.writeJSONResponse(w, http.StatusOK, info)
}

// advisoryHandler handles GET /api/advisory/{code}
func (h *Handler) advisoryHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	result, err := h.advisories.GetAdvisory(r.Context(), code)
	if err != nil {
		h.writeServiceError(w, r, err, "advisory")
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	h.writeJSONResponse(w, http.StatusOK, result)
}

// combinedHandler handles GET /api/combined?country=XX. The caller is
// geolocated first; the advisory is for ?country or the caller's own country.
func (h *Handler) combinedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.geo.Lookup(ctx, geo.ClientIP(r.RemoteAddr))
	if err != nil {
		h.writeServiceError(w, r, err, "combined.ipinfo")
		return
	}

	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country == "" {
		country = info.CountryCode
	}
	if country == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "country could not be determined; pass ?country=XX")
		return
	}

	result, err := h.advisories.GetAdvisory(ctx, country)
	if err != nil {
		h.writeServiceError(w, r, err, "combined.advisory")
		return
	}

	logger.WithContext(ctx).Debug("Combined lookup", "country", result.CountryCode, "score", result.Score)

	w.Header().Set("Cache-Control", "private, no-store")
	h.writeJSONResponse(w, http.StatusOK, models.CombinedPayload{
		IPInfo:    &info,
		Advisory:  result,
		RiskLevel: advisory.LevelFor(result.Score),
	})
}
