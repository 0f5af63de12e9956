package gitlab

import (
	"context"
	"errors"
	"fmt"
)

// ProjectNotFoundError is returned when the forge answers 404 for a project lookup
type ProjectNotFoundError struct {
	Project string
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("project not found: %s", e.Project)
}

// RequestRejectedError is a non-retryable 4xx answer. Message carries the
// forge's structured error body when there is one.
type RequestRejectedError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *RequestRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request rejected (status %d): %s", e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("request rejected (status %d): %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// IsNotFound reports whether the rejection was a 404
func (e *RequestRejectedError) IsNotFound() bool {
	return e.StatusCode == 404
}

// TransientUpstreamError is returned once the retry budget is exhausted.
// It carries the last status seen, or the last transport error.
type TransientUpstreamError struct {
	Endpoint   string
	Attempts   int
	LastStatus int
	LastErr    error
}

func (e *TransientUpstreamError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("upstream unavailable after %d attempts: %s: %v", e.Attempts, e.Endpoint, e.LastErr)
	}
	return fmt.Sprintf("upstream unavailable after %d attempts: %s (last status %d)", e.Attempts, e.Endpoint, e.LastStatus)
}

func (e *TransientUpstreamError) Unwrap() error {
	return e.LastErr
}

// AuthRequiredError is returned when an operation needs a token that is not configured
type AuthRequiredError struct {
	Operation string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s requires authentication; configure CERNGITLAB_TOKEN", e.Operation)
}

// TimeoutError is returned when the per-call deadline expires
type TimeoutError struct {
	Operation string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Operation)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// Error kinds reported at the tool boundary
const (
	KindProjectNotFound   = "ProjectNotFound"
	KindRequestRejected   = "RequestRejected"
	KindTransientUpstream = "TransientUpstream"
	KindAuthRequired      = "AuthRequired"
	KindTimeout           = "Timeout"
	KindInvalidArgument   = "InvalidArgument"
	KindInternal          = "Internal"
)

// ErrorKind classifies err into one of the Kind* constants
func ErrorKind(err error) string {
	var (
		notFound  *ProjectNotFoundError
		rejected  *RequestRejectedError
		transient *TransientUpstreamError
		auth      *AuthRequiredError
		timeout   *TimeoutError
	)
	switch {
	case errors.As(err, &timeout):
		return KindTimeout
	case errors.As(err, &notFound):
		return KindProjectNotFound
	case errors.As(err, &auth):
		return KindAuthRequired
	case errors.As(err, &rejected):
		return KindRequestRejected
	case errors.As(err, &transient):
		// per-request timeouts inside an exhausted retry budget stay transient
		return KindTransientUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

// IsNotFound reports whether err is a project miss or a 404 rejection
func IsNotFound(err error) bool {
	var notFound *ProjectNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var rejected *RequestRejectedError
	return errors.As(err, &rejected) && rejected.IsNotFound()
}

// AsTimeout converts err into a TimeoutError when the call deadline carried by
// ctx has expired. Other errors, including exhausted per-request timeouts, are
// returned untouched.
func AsTimeout(ctx context.Context, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		var timeout *TimeoutError
		if errors.As(err, &timeout) {
			return err
		}
		return &TimeoutError{Operation: operation}
	}
	return err
}
