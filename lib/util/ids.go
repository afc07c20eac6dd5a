package util

import "github.com/google/uuid"

// IDGenerator produces a fresh, collision-free string on every call.
type IDGenerator func() string

// NewID returns a random (version 4) UUID string.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func NewID() string {
	return uuid.NewString()
}
