package service

import (
	"errors"
	"fmt"
)

// Sentinel error kinds surfaced to callers. Generation failures are never
// returned; they are replaced by fallbacks.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotConfigured = errors.New("language model not configured")
)

func invalidInput(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInvalidInput, err)
}
