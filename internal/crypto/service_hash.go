package crypto

import (
	"crypto/sha256"
	"fmt"
)

// TokenHash computes the SHA-256 hex hash of an API token. Tokens are
// stored hashed; the plaintext only travels in the request header.
func TokenHash(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

// KeyFingerprint returns a short hex fingerprint of an encryption key,
// safe to log for operator diagnostics.
func KeyFingerprint(key []byte) string {
	h := sha256.Sum256(key)
	return fmt.Sprintf("%x", h[:4])
}
