package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Components wrap one of these so callers can classify with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrLoad          = errors.New("load error")
	ErrEmbedding     = errors.New("embedding error")
	ErrStore         = errors.New("store error")
	ErrGeneration    = errors.New("generation error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
)

// Errorf wraps kind with a formatted message. The result matches kind under errors.Is.
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Wrap attaches kind to err, keeping err in the chain.
func Wrap(kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}
