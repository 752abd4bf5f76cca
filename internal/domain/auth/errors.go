package auth

import "errors"

// ErrorKind classifies authentication failures surfaced to callers.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindNotAuthorized      ErrorKind = "not_authorized"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindNetwork            ErrorKind = "network_error"
	KindPopupCancelled     ErrorKind = "popup_cancelled"
	KindRealSessionActive  ErrorKind = "real_session_active"
)

// Message returns the user-facing text for the kind. The login surface shows it verbatim.
func (k ErrorKind) Message() string {
	switch k {
	case KindNotAuthorized:
		return "This email is not authorized"
	case KindInvalidCredentials:
		return "Invalid email or password"
	case KindNetwork:
		return "Unable to reach the sign-in service. Please try again."
	case KindPopupCancelled:
		return "Sign-in was cancelled"
	case KindRealSessionActive:
		return "Sign out before starting a demo session"
	default:
		return ""
	}
}

// AuthError is a typed authentication failure. Err keeps the underlying cause for logs.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches another *AuthError by kind so sentinel comparisons work with errors.Is.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// NewAuthError wraps cause with the given kind.
func NewAuthError(kind ErrorKind, cause error) *AuthError {
	return &AuthError{Kind: kind, Err: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotAuthorized      = &AuthError{Kind: KindNotAuthorized}
	ErrInvalidCredentials = &AuthError{Kind: KindInvalidCredentials}
	ErrNetwork            = &AuthError{Kind: KindNetwork}
	ErrPopupCancelled     = &AuthError{Kind: KindPopupCancelled}
	ErrRealSessionActive  = &AuthError{Kind: KindRealSessionActive}
)

// KindOf extracts the ErrorKind of err, or KindNone when err is not an AuthError.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindNone
}
