package shared

import (
	"errors"
	"fmt"
)

// RequestError is used when we want a specific error message and StatusCode.
// For upstream calls the StatusCode is the code the upstream answered with,
// and the message is the best-effort detail pulled from its response body.
//
// Error codes should be bubbled where the RequestError msg is expected to be
// returned to the user. If the user should see a generic error message but
// the error chain should include more detail for logging purposes, then a
// generic error should be added that provides context.
type RequestError struct {
	StatusCode int
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status %d: err %v", r.StatusCode, r.Err)
}

var (
	// ErrInvalidArgument marks caller misuse: empty identifiers, missing
	// inputs. Always raised before any network I/O happens.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstreamUnreachable marks transport-level upstream failures: DNS,
	// connect, TLS, timeouts. The underlying cause is joined onto it.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrInvalidResponseFormat means the upstream answered but the payload is
	// missing the nested fields we extract from. No partial or alternate
	// extraction is attempted.
	ErrInvalidResponseFormat = errors.New("unexpected upstream response format")

	// ErrMissingCredential means the application credential is absent from
	// process configuration.
	ErrMissingCredential = errors.New("missing application credential")

	// ErrInternalServerError doubles as the generic envelope clients see
	// whenever a handler fails; detail stays in the logs.
	ErrInternalServerError = &RequestError{Err: errors.New("Internal Server Error"), StatusCode: 500}
	ErrBadRequest          = &RequestError{Err: errors.New("bad request"), StatusCode: 400}
)
