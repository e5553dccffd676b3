package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

// BearerAuthenticator accepts opaque tokens, with or without a "Bearer " prefix.
type BearerAuthenticator struct {
	want   [32]byte
	pinned bool
}

// NewBearerAuthenticator creates a bearer authenticator.
// If secret is empty, any non-empty token is accepted.
func NewBearerAuthenticator(secret string) *BearerAuthenticator {
	if secret == "" {
		return &BearerAuthenticator{}
	}
	return &BearerAuthenticator{want: sha256.Sum256([]byte(secret)), pinned: true}
}

// Validate strips an optional "Bearer " scheme and checks what remains.
func (a *BearerAuthenticator) Validate(token string) Result {
	const scheme = "bearer "
	if len(token) >= len(scheme) && strings.EqualFold(token[:len(scheme)], scheme) {
		token = token[len(scheme):]
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return deny(TypeBearer, "empty bearer token")
	}

	got := sha256.Sum256([]byte(token))
	if a.pinned && subtle.ConstantTimeCompare(got[:], a.want[:]) != 1 {
		return deny(TypeBearer, "invalid bearer token")
	}
	return accept(TypeBearer, got)
}

// Type returns the authentication type (bearer).
func (a *BearerAuthenticator) Type() Type {
	return TypeBearer
}
