package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultRecoveryTTL is the default recovery token lifetime.
const DefaultRecoveryTTL = 30 * time.Minute

// NewRecoveryToken returns a random URL-safe token.
func NewRecoveryToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating recovery token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RecoveryLookup derives the indexed lookup value of a recovery token. It is
// keyed with the signing secret, so the stored value cannot be recomputed
// from a guessed token without it.
func RecoveryLookup(secret, token string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("recovery:"))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
