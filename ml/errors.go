package ml

import (
	"errors"
	"fmt"
)

var (
	ErrModelNotLoaded   = errors.New("model not loaded")
	ErrInvalidEstimate  = errors.New("model returned a non-finite estimate")
	ErrEstimateOverflow = errors.New("estimate overflows currency amount")
)

// InvalidInputError reports a raw form value the deriver refused.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PredictionError wraps a failed model invocation.
type PredictionError struct {
	Cause error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Cause)
}

func (e *PredictionError) Unwrap() error {
	return e.Cause
}

// IsInvalidInput reports whether err carries an *InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// IsPredictionFailure reports whether err carries a *PredictionError.
func IsPredictionFailure(err error) bool {
	var target *PredictionError
	return errors.As(err, &target)
}
