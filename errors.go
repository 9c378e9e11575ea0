package authclient

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNetwork           = "NETWORK_ERROR"
	TextCodeAuthentication    = "AUTHENTICATION_FAILED"
	TextCodeValidation        = "VALIDATION_FAILED"
	TextCodeNotFound          = "NOT_FOUND"
	TextCodeConflict          = "CONFLICT"
	TextCodeNoSession         = "NO_SESSION"
	TextCodeMalformedPayload  = "MALFORMED_PAYLOAD"
	TextCodeStoreFailure      = "SESSION_STORE_ERROR"
	TextCodeInvalidTransition = "INVALID_SESSION_STATE_TRANSITION"
	TextCodeSessionInvariant  = "SESSION_INVARIANT_VIOLATION"
)

// ErrNetwork is returned when the endpoint could not be reached.
var ErrNetwork = goerrors.New("identity endpoint unreachable", goerrors.CategoryOperation).
	WithTextCode(TextCodeNetwork).
	WithCode(goerrors.CodeInternal)

// ErrAuthentication covers invalid credentials and expired or invalid tokens.
var ErrAuthentication = goerrors.New("authentication failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthentication).
	WithCode(goerrors.CodeUnauthorized)

// ErrValidation is returned for input rejected before or by the endpoint.
var ErrValidation = goerrors.New("validation failed", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrNotFound is returned when a referenced entity no longer exists.
var ErrNotFound = goerrors.New("entity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrConflict is returned when the endpoint reports a uniqueness conflict.
var ErrConflict = goerrors.New("entity conflict", goerrors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(goerrors.CodeConflict)

// ErrNoSession is returned when an operation needs tokens and none are stored.
var ErrNoSession = goerrors.New("no active session", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(goerrors.CodeUnauthorized)

// ErrMalformedPayload is returned when an endpoint answers with an undecodable body.
var ErrMalformedPayload = goerrors.New("malformed endpoint payload", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedPayload).
	WithCode(goerrors.CodeBadRequest)

// ErrStore wraps SessionStore failures.
var ErrStore = goerrors.New("session store failure", goerrors.CategoryInternal).
	WithTextCode(TextCodeStoreFailure).
	WithCode(goerrors.CodeInternal)

// ErrInvalidTransition is returned when the session state machine rejects a move.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrSessionInvariant is returned when a session snapshot breaks the token pair rules.
var ErrSessionInvariant = goerrors.New("session invariant violated", goerrors.CategoryInternal).
	WithTextCode(TextCodeSessionInvariant).
	WithCode(goerrors.CodeInternal)

// ErrorKind is the closed set of outcomes a Result can carry.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindNetwork        ErrorKind = "network"
	KindAuthentication ErrorKind = "authentication"
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindNoSession      ErrorKind = "no_session"
	KindCanceled       ErrorKind = "canceled"
	KindInternal       ErrorKind = "internal"
)

// KindOf maps an error to its ErrorKind using the go-errors category and text code.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	if goerrors.Is(err, context.Canceled) || goerrors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return KindInternal
	}

	if richErr.TextCode == TextCodeNoSession {
		return KindNoSession
	}

	switch richErr.Category {
	case goerrors.CategoryOperation:
		return KindNetwork
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return KindAuthentication
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return KindValidation
	case goerrors.CategoryNotFound:
		return KindNotFound
	default:
		return KindInternal
	}
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsAuthenticationError reports whether err is a credential or token failure.
func IsAuthenticationError(err error) bool {
	return KindOf(err) == KindAuthentication
}

// IsValidationError reports whether err should be rendered as a validation message.
// Not found errors count, they surface the same way to calling screens.
func IsValidationError(err error) bool {
	kind := KindOf(err)
	return kind == KindValidation || kind == KindNotFound
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

func wrapStoreError(err error, op, key string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, ErrStore.Category, ErrStore.Message).
		WithTextCode(ErrStore.TextCode).
		WithMetadata(map[string]any{
			"op":  op,
			"key": key,
		})
}
