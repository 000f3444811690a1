package models

import (
	"strings"
	"time"

	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
)

// User is an account created on first Google sign-in.
type User struct {
	ID          string    `json:"id"`
	GoogleID    string    `json:"googleId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// HistoryRecord is a saved dashboard snapshot.
type HistoryRecord struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	IPInfo    *IPInfo           `json:"ipInfo,omitempty"`
	Advisory  AdvisoryResult    `json:"advisory"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// SaveHistoryRequest is the body of POST /api/history.
type SaveHistoryRequest struct {
	IPInfo   *IPInfo           `json:"ipInfo"`
	Advisory AdvisoryResult    `json:"advisory"`
	Meta     map[string]string `json:"meta"`
}

// Validate checks the snapshot carries an advisory.
func (r SaveHistoryRequest) Validate() error {
	code := strings.TrimSpace(r.Advisory.CountryCode)
	if code == "" {
		return apperrors.ValidationError{Field: "advisory.countryCode", Message: "is required"}
	}
	if len(code) != 2 {
		return apperrors.ValidationError{Field: "advisory.countryCode", Message: "must be a two-letter code"}
	}
	if r.Advisory.Score < 0 || r.Advisory.Score > 5 {
		return apperrors.ValidationError{Field: "advisory.score", Message: "must be between 0 and 5"}
	}
	if len(r.Meta) > 20 {
		return apperrors.ValidationError{Field: "meta", Message: "at most 20 entries"}
	}
	return nil
}

// HistoryQuery filters a user's snapshots.
type HistoryQuery struct {
	UserID string
	Limit  int
}

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Normalize clamps the limit into range.
func (q HistoryQuery) Normalize() HistoryQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	return q
}
