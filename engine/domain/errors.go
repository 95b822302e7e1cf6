package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for construction and configuration failures.
var (
	ErrMissingAnswer       = errors.New("answer is required")
	ErrMissingSources      = errors.New("at least one source is required")
	ErrMissingErrorMessage = errors.New("error message is required")
	ErrBadCitationOrder    = errors.New("citation indexes must be 1-based and consecutive")
	ErrInvalidChunkSize    = errors.New("invalid chunk size")
	ErrInvalidOverlap      = errors.New("invalid chunk overlap")
	ErrInvalidDimension    = errors.New("invalid vector dimension")
	ErrInvalidTopK         = errors.New("invalid top-k")
)

// ConfigError wraps a sentinel with the offending parameter and value.
type ConfigError struct {
	Param   string
	Value   string
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s (value=%q)", e.Wrapped, e.Param, e.Value)
}

func (e *ConfigError) Unwrap() error { return e.Wrapped }

// NewConfigError creates a ConfigError.
func NewConfigError(param, value string, wrapped error) *ConfigError {
	return &ConfigError{Param: param, Value: value, Wrapped: wrapped}
}
