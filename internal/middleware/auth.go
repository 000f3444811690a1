package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rajasatyajit/TravelSafe/config"
	"github.com/rajasatyajit/TravelSafe/internal/auth"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
)

// KeyVerifier resolves a raw API key to its principal. *auth.Verifier implements it.
type KeyVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Principal, error)
}

// APIKeyAuth reads the key from the configured header or Authorization: Bearer.
// When keys are required a missing or bad key is rejected with 401; otherwise a
// valid key still attaches its principal and anonymous calls pass through.
func APIKeyAuth(cfg config.AuthConfig, v KeyVerifier) func(http.Handler) http.Handler {
	header := cfg.KeyHeader
	if header == "" {
		header = "X-API-Key"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerOrRaw(r.Header.Get(header))
			if raw == "" {
				raw = bearerOrRaw(r.Header.Get("Authorization"))
			}

			if raw == "" {
				if cfg.RequireAPIKeys {
					writeError(w, r, http.StatusUnauthorized, "unauthorized", "Missing API key")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			p, err := v.Verify(r.Context(), raw)
			if err != nil || p == nil {
				if err != nil && !isKeyError(err) {
					logger.WithContext(r.Context()).Error("API key verification failed", "error", err)
				}
				if cfg.RequireAPIKeys {
					msg := "Invalid API key"
					if errors.Is(err, auth.ErrKeyRevoked) {
						msg = "API key revoked"
					}
					writeError(w, r, http.StatusUnauthorized, "unauthorized", msg)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func isKeyError(err error) bool {
	return errors.Is(err, auth.ErrUnauthorized) || errors.Is(err, auth.ErrInvalidKey) || errors.Is(err, auth.ErrKeyRevoked)
}

// Session attaches the signed-in user when the session cookie is valid.
// It never rejects a request; use RequireSession for that.
func Session(sm *auth.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm == nil {
				next.ServeHTTP(w, r)
				return
			}
			s, err := sm.FromRequest(r)
			if err != nil {
				if !errors.Is(err, auth.ErrNoSession) {
					logger.WithContext(r.Context()).Debug("Ignoring unreadable session cookie", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), s)))
		})
	}
}

// RequireSession rejects requests without a signed-in user.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetSession(r.Context()) == nil {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "Sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
