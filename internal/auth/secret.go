package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/mo"
)

// SecretAuthenticator accepts exactly one shared secret. Only the secret's
// SHA-256 digest is kept.
type SecretAuthenticator struct {
	digest [32]byte
}

// NewSecretAuthenticator returns an authenticator for secret.
func NewSecretAuthenticator(secret string) *SecretAuthenticator {
	// #nosec G401 -- SHA-256 is appropriate for high-entropy secrets (not passwords)
	return &SecretAuthenticator{digest: sha256.Sum256([]byte(secret))}
}

// Validate compares token with the configured secret in constant time.
func (a *SecretAuthenticator) Validate(token string) Result {
	if token == "" {
		return deny(TypeSecret, "missing token")
	}
	// #nosec G401 -- SHA-256 is appropriate for high-entropy secrets (not passwords)
	got := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(got[:], a.digest[:]) != 1 {
		return deny(TypeSecret, "invalid token")
	}
	return accept(TypeSecret, got)
}

// Type returns TypeSecret.
func (a *SecretAuthenticator) Type() Type {
	return TypeSecret
}

// ValidateResult is Validate as a mo.Result.
func (a *SecretAuthenticator) ValidateResult(token string) mo.Result[Result] {
	return toResult(a.Validate(token))
}

// subject is a short fingerprint safe to log.
func subject(hash [32]byte) string {
	return hex.EncodeToString(hash[:6])
}
