package store

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrUnavailable marks a transient backend failure; the caller may retry
	// the whole operation.
	ErrUnavailable = errors.New("store unavailable")

	ErrNotFound = errors.New("not found")
)

// WrapKind tags a sentinel kind with the operation and the underlying cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
