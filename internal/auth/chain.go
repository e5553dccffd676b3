package auth

import "github.com/samber/mo"

// ChainAuthenticator accepts a token if any of its members does. Members are
// consulted in order and the first acceptance wins; a rejected token reports
// the last member's reason.
type ChainAuthenticator struct {
	members []Authenticator
}

// NewChainAuthenticator chains members in the given order.
func NewChainAuthenticator(members ...Authenticator) *ChainAuthenticator {
	return &ChainAuthenticator{members: members}
}

// Validate returns the first accepting member's Result unchanged.
func (c *ChainAuthenticator) Validate(token string) Result {
	if len(c.members) == 0 {
		return deny(TypeNone, "no authentication configured")
	}

	var last Result
	for _, a := range c.members {
		if last = a.Validate(token); last.Valid {
			return last
		}
	}
	// Members disagree on type, so a chain rejection is untyped.
	return deny(TypeNone, last.Error)
}

// Type is TypeNone; the accepting member names the real type in its Result.
func (c *ChainAuthenticator) Type() Type {
	return TypeNone
}

// ValidateResult is Validate as a mo.Result.
func (c *ChainAuthenticator) ValidateResult(token string) mo.Result[Result] {
	return toResult(c.Validate(token))
}
