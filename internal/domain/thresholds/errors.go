package thresholds

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownCategory     = errors.New("unknown threshold category")
	ErrEmptyThresholds     = errors.New("empty threshold list")
	ErrUnorderedThresholds = errors.New("thresholds must be positive and strictly ascending")
)

// NewKind tags a sentinel kind with the operation and subject that raised it.
func NewKind(op string, kind error, subject string) error {
	return fmt.Errorf("%s: %w: %s", op, kind, subject)
}
