package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns the hex SHA-256 of s.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// ShortHash returns the first n hex characters of HashString(s). It is used for
// identifiers derived from secrets or client addresses that must not be stored raw.
func ShortHash(s string, n int) string {
	h := HashString(s)
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}
