package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashPassword creates a SHA256 hash of the password as lowercase hex.
// Every place that computes or compares a credential hash must go through
// this function; the stored format depends on it.
func HashPassword(password string) string {
	hash := sha256.Sum256([]byte(password))
	return hex.EncodeToString(hash[:])
}
