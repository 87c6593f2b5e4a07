package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// DataNotFoundMessage describes missing setup data snapshots.
	DataNotFoundMessage = "setup data not available for this account"
)

// Sentinel errors for flow-control decisions across the pipeline.
var (
	// ErrDataNotFound marks a missing dataset. Execution must not retry on it.
	ErrDataNotFound = errors.New("dataset not found")
	// ErrBadResultShape marks generated code output that violates the
	// table / list-of-tables / mapping-of-tables contract. Retryable.
	ErrBadResultShape = errors.New("result shape not supported")
	// ErrUploadFailed marks a failed artifact offload. The turn still
	// completes with a partial result.
	ErrUploadFailed = errors.New("artifact upload failed")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapDataNotFound ties a loader failure to the ErrDataNotFound sentinel so
// callers can detect it with errors.Is.
func WrapDataNotFound(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %v", ErrDataNotFound, err),
		Status:  http.StatusNotFound,
		Message: DataNotFoundMessage,
	}
}

// IsDataNotFound reports whether err stems from a missing snapshot.
func IsDataNotFound(err error) bool {
	return errors.Is(err, ErrDataNotFound)
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
