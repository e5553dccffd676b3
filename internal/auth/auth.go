// Package auth validates the tokens clients present in the event channel
// handshake.
package auth

// Type represents the authentication method used.
type Type string

const (
	// TypeSecret represents a token compared against a configured shared secret.
	TypeSecret Type = "secret"
	// TypeBearer represents an opaque bearer token, optionally prefixed with "Bearer ".
	TypeBearer Type = "bearer"
	// TypeNone represents no authentication or failed auth with no valid type.
	TypeNone Type = "none"
)

// Result contains the outcome of an authentication attempt.
type Result struct {
	// Type indicates which authentication method was used (or attempted).
	Type Type
	// Error contains the error message if authentication failed.
	Error string
	// Subject is a stable, non-secret identifier derived from the token.
	Subject string
	// Valid indicates whether authentication succeeded.
	Valid bool
}

// Authenticator defines the interface for handshake token checks.
type Authenticator interface {
	// Validate checks token and returns a Result with Valid=true on success.
	Validate(token string) Result

	// Type returns the authentication type this authenticator handles.
	Type() Type
}

// New builds the authenticator for a list of accepted secrets. With no
// secrets any non-empty token is accepted.
func New(secrets ...string) Authenticator {
	if len(secrets) == 0 {
		return NewBearerAuthenticator("")
	}
	auths := make([]Authenticator, 0, len(secrets))
	for _, s := range secrets {
		auths = append(auths, NewSecretAuthenticator(s))
	}
	return NewChainAuthenticator(auths...)
}
