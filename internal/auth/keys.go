package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Key format: ts_{env}_{id}_{secret}
// - id: 12 hex chars
// - secret: 32 hex chars
func GenerateAPIKey(env string) (id string, rawKey string, secretHash []byte, err error) {
	if env == "" || strings.Contains(env, "_") {
		return "", "", nil, fmt.Errorf("invalid key environment %q", env)
	}
	id, secret := randomToken(12), randomToken(32)
	if id == "" || secret == "" {
		return "", "", nil, fmt.Errorf("failed to generate token")
	}
	rawKey = fmt.Sprintf("ts_%s_%s_%s", env, id, secret)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", nil, err
	}
	return id, rawKey, hash, nil
}

// ParseAPIKey splits into env, id, secret
func ParseAPIKey(raw string) (env string, id string, secret string, ok bool) {
	parts := strings.Split(raw, "_")
	if len(parts) != 4 || parts[0] != "ts" || parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}

// CheckSecret compares a presented secret with its stored hash.
func CheckSecret(hash []byte, secret string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}

func randomToken(n int) string {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)[:n]
}
