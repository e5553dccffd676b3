package auth

import "github.com/samber/mo"

// ValidationError is a rejected handshake token.
type ValidationError struct {
	Type    Type
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError returns a ValidationError for an authenticator of type authType.
func NewValidationError(authType Type, message string) *ValidationError {
	return &ValidationError{Type: authType, Message: message}
}

func deny(t Type, reason string) Result {
	return Result{Type: t, Error: reason}
}

func accept(t Type, hash [32]byte) Result {
	return Result{Valid: true, Type: t, Subject: subject(hash)}
}

func toResult(r Result) mo.Result[Result] {
	if !r.Valid {
		return mo.Err[Result](NewValidationError(r.Type, r.Error))
	}
	return mo.Ok(r)
}
