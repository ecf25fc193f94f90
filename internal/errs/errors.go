// Package errs classifies failures crossing the HTTP boundary.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUpstreamAuth    = errors.New("upstream authentication failed")
	ErrUpstreamNetwork = errors.New("upstream request failed")
	ErrSerialization   = errors.New("malformed payload")
	ErrMisconfigured   = errors.New("server misconfigured")
)

// Error tags a cause with one of the sentinel kinds. Error() returns the
// cause's message unchanged so callers see the upstream text.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation wraps a bad-input cause.
func Validation(op string, err error) error {
	return &Error{Kind: ErrValidation, Op: op, Err: err}
}

// Serialization wraps a decoding failure.
func Serialization(op string, err error) error {
	return &Error{Kind: ErrSerialization, Op: op, Err: err}
}

// Misconfigured wraps a fault in the server's own settings. It is never
// the caller's fault, so it maps to 500.
func Misconfigured(op string, err error) error {
	return &Error{Kind: ErrMisconfigured, Op: op, Err: err}
}

// Upstream wraps a failed call to an external provider. auth selects
// ErrUpstreamAuth over ErrUpstreamNetwork.
func Upstream(op string, auth bool, err error) error {
	kind := ErrUpstreamNetwork
	if auth {
		kind = ErrUpstreamAuth
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// HTTPStatus maps an error to the status code returned to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSerialization):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
