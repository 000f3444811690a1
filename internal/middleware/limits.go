package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rajasatyajit/TravelSafe/internal/auth"
	"github.com/rajasatyajit/TravelSafe/internal/geo"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/internal/ratelimit"
	"github.com/rajasatyajit/TravelSafe/pkg/utils"
)

// PrincipalKey picks the bucket for a request: API key, then signed-in user,
// then a hash of the client IP.
func PrincipalKey(r *http.Request) string {
	if p := auth.GetPrincipal(r.Context()); p != nil {
		return "key:" + p.KeyID
	}
	if s := auth.GetSession(r.Context()); s != nil {
		return "user:" + s.UserID
	}
	return "ip:" + utils.ShortHash(geo.ClientIP(r.RemoteAddr), 16)
}

// RateLimit enforces the limiter's per-minute budget and records usage for
// requests that were served. A nil limiter disables the check. Limiter
// failures let the request through.
func RateLimit(l ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := PrincipalKey(r)
			d, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.WithContext(r.Context()).Warn("Rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.Itoa(d.ResetSeconds))
			}
			if !d.Allowed {
				retry := d.ResetSeconds
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, r, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)

			endpoint := r.Method + " " + routePattern(r)
			if err := l.RecordUsage(r.Context(), key, endpoint, time.Now()); err != nil {
				logger.WithContext(r.Context()).Warn("Failed to record usage", "error", err)
			}
		})
	}
}
