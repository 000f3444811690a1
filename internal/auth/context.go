package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidKey   = errors.New("invalid api key")
	ErrKeyRevoked   = errors.New("api key revoked")
	ErrNoSession    = errors.New("no session")
)

// Principal sources.
const (
	SourceStaticKey = "static_key"
	SourceAPIKey    = "api_key"
)

// Principal carries the API client identified by its key.
// NOTE: Do not place secrets or raw API keys here.
type Principal struct {
	KeyID  string
	Owner  string
	Plan   string
	Source string
}

// Session is the signed-in user carried by the session cookie.
type Session struct {
	UserID string
	Name   string
	Email  string
}

type principalKeyType struct{}
type sessionKeyType struct{}

var (
	principalKey = principalKeyType{}
	sessionKey   = sessionKeyType{}
)

// WithPrincipal attaches principal to context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves principal from context (nil if absent)
func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// WithSession attaches the signed-in user to context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// GetSession retrieves the signed-in user (nil if absent)
func GetSession(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}
