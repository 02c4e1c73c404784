package auth

import "errors"

// Errors returned by the Authority. Typed failures carrying a name or a
// detail message are *TokenError values that unwrap to one of these.
var (
	// ErrEndpointDisabled indicates token management was called while auth is off.
	ErrEndpointDisabled = errors.New("endpoint disabled, started without auth")
	// ErrConflict indicates the token name is already taken.
	ErrConflict = errors.New("token name already exists")
	// ErrForbidden indicates the operation is not allowed for this bearer or target.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument indicates a malformed request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthenticated indicates no bearer credential was presented.
	ErrUnauthenticated = errors.New("missing token")
	// ErrInvalidCredential indicates the bearer is unknown, revoked or expired.
	// The three cases are never distinguished.
	ErrInvalidCredential = errors.New("invalid token")
	// ErrNotFound indicates the referenced token name does not exist.
	ErrNotFound = errors.New("token not found")
)

// TokenError is a typed Authority failure.
type TokenError struct {
	Err    error  // one of the sentinel errors above
	Name   string // token name the failure refers to, if any
	Detail string // replaces the default message when set
}

func (e *TokenError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Name != "" {
		return e.Err.Error() + ", " + e.Name
	}
	return e.Err.Error()
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

func conflictErr(name string) error {
	return &TokenError{Err: ErrConflict, Name: name}
}

func notFoundErr(name string) error {
	return &TokenError{Err: ErrNotFound, Name: name}
}

func forbiddenErr(detail string) error {
	return &TokenError{Err: ErrForbidden, Detail: detail}
}

func invalidArgumentErr(detail string) error {
	return &TokenError{Err: ErrInvalidArgument, Detail: detail}
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrEndpointDisabled):
		return "endpoint_disabled"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_request"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credentials"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}
