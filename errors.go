package authclient

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeUnauthorized       = "UNAUTHORIZED"
	textCodeLoginInitiation    = "LOGIN_INITIATION_FAILED"
	textCodeCallbackExchange   = "CALLBACK_EXCHANGE_FAILED"
	textCodeMalformedSession   = "MALFORMED_SESSION_RESPONSE"
	textCodeInvalidTransition  = "INVALID_LIFECYCLE_TRANSITION"
	textCodePersistenceVerify  = "PERSISTENCE_VERIFY_FAILED"
	textCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
)

// ErrUnauthorized is returned when the backend definitively rejects the
// current credentials (HTTP 401).
var ErrUnauthorized = goerrors.New("session rejected by backend", goerrors.CategoryAuth).
	WithTextCode(textCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrLoginInitiation is returned when the backend fails to produce an
// external login URL.
var ErrLoginInitiation = goerrors.New("failed to initiate login", goerrors.CategoryOperation).
	WithTextCode(textCodeLoginInitiation)

// ErrCallbackExchange is returned when an authorization code cannot be
// exchanged for a login payload.
var ErrCallbackExchange = goerrors.New("failed to exchange authorization code", goerrors.CategoryOperation).
	WithTextCode(textCodeCallbackExchange)

// ErrMalformedSession marks a well-formed HTTP success whose body does not
// carry a usable session. It is inconclusive: local state is preserved.
var ErrMalformedSession = goerrors.New("session response missing required fields", goerrors.CategoryValidation).
	WithTextCode(textCodeMalformedSession)

// ErrInvalidTransition is returned when a requested lifecycle phase change
// is not allowed.
var ErrInvalidTransition = goerrors.New("invalid lifecycle transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrPersistenceVerify is surfaced (as a log, never a panic) when a
// write-through persist cannot be confirmed on re-read after one retry.
var ErrPersistenceVerify = goerrors.New("persisted auth state could not be verified", goerrors.CategoryInternal).
	WithTextCode(textCodePersistenceVerify)

// IsUnauthorizedError reports whether err represents a definitive
// authorization rejection from the backend.
func IsUnauthorizedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCodeUnauthorized ||
		(rich.Category == goerrors.CategoryAuth && rich.Code == goerrors.CodeUnauthorized)
}

// IsMalformedSessionError reports whether err marks an inconclusive session
// check that must not destroy local state.
func IsMalformedSessionError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCodeMalformedSession
}
