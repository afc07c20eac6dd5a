package engine

import "errors"

var (
	// ErrInvalidArgument is matched by every request validation error.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed is returned by Exec once the Engine is closed.
	ErrClosed = errors.New("engine is closed")
	// ErrInvalidState marks programming errors; they are raised as panics.
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError rejects a malformed request. Its message is reported as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrInvalidArgument) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
