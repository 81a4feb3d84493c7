// Package errors defines the sentinel error types used across the console:
// precondition (validation), local not-found, upstream, transport, and
// fixture errors. Handlers convert these to responses at the operation
// boundary; nothing propagates as an uncaught fault.
package errors

import "fmt"

// ErrValidation represents a precondition failure: a required field or
// selection is missing. Rejected before any I/O.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for precondition failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field: %s", e.Field)
	}
	return "validation error"
}

// Is implements errors.Is matching by type.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ErrNotFound represents a locally stored resource that doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for missing local resources.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return "resource not found"
}

// Is implements errors.Is matching by type.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// NewNotFoundError creates a NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

// ErrUpstream represents a non-2xx response from the evaluation backend.
var ErrUpstream = &UpstreamError{}

// UpstreamError carries the upstream HTTP status and, when parseable, the
// upstream-provided message.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("evaluation backend returned status %d", e.StatusCode)
}

// Is implements errors.Is matching by type.
func (e *UpstreamError) Is(target error) bool {
	_, ok := target.(*UpstreamError)
	return ok
}

// NewUpstreamError creates an UpstreamError. message may be empty; the
// generic templated message including the status is used then.
func NewUpstreamError(statusCode int, message string) *UpstreamError {
	return &UpstreamError{StatusCode: statusCode, Message: message}
}

// ErrTransport represents a network or parse failure talking to the backend.
// The original error is retained for diagnostics only; callers surface a
// generic failure message.
var ErrTransport = &TransportError{}

// TransportError wraps the underlying network/decode error.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "transport error"
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is implements errors.Is matching by type.
func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// NewTransportError wraps err as a transport failure for the given operation.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// ErrFixtureNotFound represents a missing or unloadable mock fixture. It is
// kept distinct from upstream and local not-found conditions so mock-mode
// failures are never mistaken for real backend responses.
var ErrFixtureNotFound = &FixtureNotFoundError{}

// FixtureNotFoundError is a sentinel error for mock-mode fixture failures.
type FixtureNotFoundError struct {
	Name string
}

func (e *FixtureNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("fixture %q not found", e.Name)
	}
	return "fixture not found"
}

// Is implements errors.Is matching by type.
func (e *FixtureNotFoundError) Is(target error) bool {
	_, ok := target.(*FixtureNotFoundError)
	return ok
}

// NewFixtureNotFoundError creates a FixtureNotFoundError for the named fixture.
func NewFixtureNotFoundError(name string) *FixtureNotFoundError {
	return &FixtureNotFoundError{Name: name}
}
