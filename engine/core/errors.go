package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gateway's failure taxonomy. Components wrap these
// with fmt.Errorf("%w") so callers can classify failures with errors.Is
// while the tool boundary converts them into structured failure results.
var (
	// ErrNotFound indicates an unknown task or input name.
	ErrNotFound = errors.New("not found")
	// ErrNoTemplate indicates a template operation on an input without a template.
	ErrNoTemplate = errors.New("input has no template")
	// ErrValidation indicates malformed content or a missing required field/value.
	ErrValidation = errors.New("validation failed")
	// ErrUpload indicates a file transfer failure.
	ErrUpload = errors.New("upload failed")
	// ErrBackend indicates the remote API returned an error payload or a
	// malformed response.
	ErrBackend = errors.New("backend error")
	// ErrTimeout indicates no response arrived within the deadline.
	ErrTimeout = errors.New("request timed out")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Backendf wraps ErrBackend with a formatted message.
func Backendf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrBackend}, args...)...)
}

// Uploadf wraps ErrUpload with a formatted message.
func Uploadf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUpload}, args...)...)
}
