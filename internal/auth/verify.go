package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/pkg/utils"
)

// Verifier checks API keys against the configured static keys and the key store.
type Verifier struct {
	static []string
	keys   KeyStore
	now    func() time.Time
}

// NewVerifier builds a verifier. keys may be nil when only static keys are accepted.
func NewVerifier(staticKeys []string, keys KeyStore) *Verifier {
	return &Verifier{static: staticKeys, keys: keys, now: time.Now}
}

// Verify returns the principal for raw or ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrUnauthorized
	}

	for _, k := range v.static {
		if subtle.ConstantTimeCompare([]byte(k), []byte(raw)) == 1 {
			return &Principal{
				KeyID:  "static-" + utils.ShortHash(raw, 12),
				Owner:  "static",
				Plan:   "free",
				Source: SourceStaticKey,
			}, nil
		}
	}

	_, id, secret, ok := ParseAPIKey(raw)
	if !ok || v.keys == nil {
		return nil, ErrUnauthorized
	}

	rec, err := v.keys.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, err
	}
	if rec.Status != KeyActive {
		return nil, ErrKeyRevoked
	}
	if !CheckSecret(rec.Hash, secret) {
		return nil, ErrInvalidKey
	}

	if err := v.keys.Touch(ctx, id, v.now().UTC()); err != nil {
		logger.WithContext(ctx).Warn("Failed to record api key use", "key_id", id, "error", err)
	}

	return &Principal{KeyID: rec.KeyID, Owner: rec.Owner, Plan: rec.Plan, Source: SourceAPIKey}, nil
}

// IssueKey creates and stores a new key, returning the raw key once.
func (v *Verifier) IssueKey(ctx context.Context, owner, plan, env string) (rawKey string, rec KeyRecord, err error) {
	if v.keys == nil {
		return "", KeyRecord{}, apperrors.ErrServiceUnavailable
	}
	if plan == "" {
		plan = "free"
	}
	id, raw, hash, err := GenerateAPIKey(env)
	if err != nil {
		return "", KeyRecord{}, err
	}
	rec = KeyRecord{
		KeyID:     id,
		Hash:      hash,
		Owner:     owner,
		Plan:      plan,
		Status:    KeyActive,
		CreatedAt: v.now().UTC(),
	}
	if err := v.keys.Create(ctx, rec); err != nil {
		return "", KeyRecord{}, err
	}
	return raw, rec, nil
}

// RevokeKey disables a stored key.
func (v *Verifier) RevokeKey(ctx context.Context, keyID string) error {
	if v.keys == nil {
		return apperrors.ErrServiceUnavailable
	}
	return v.keys.Revoke(ctx, keyID)
}
