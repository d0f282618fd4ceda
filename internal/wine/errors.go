package wine

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned when a caller submits a blank query.
var ErrEmptyQuery = errors.New("query must not be blank")

// FailureClass categorizes why a single acquisition strategy failed.
type FailureClass string

// Failure classes recorded in strategy diagnostics.
const (
	FailureRejected  FailureClass = "rejected"
	FailureTimeout   FailureClass = "timeout"
	FailureMalformed FailureClass = "malformed"
	FailureEmpty     FailureClass = "empty"
)

// StrategyError wraps a failure from one acquisition strategy with its
// classification. The chain executor never treats it as fatal; it is
// recorded and the next strategy is tried.
type StrategyError struct {
	Strategy string
	Class    FailureClass
	Err      error
}

// NewStrategyError builds a classified strategy failure.
func NewStrategyError(strategy string, class FailureClass, err error) *StrategyError {
	return &StrategyError{Strategy: strategy, Class: class, Err: err}
}

// Error implements the error interface.
func (e *StrategyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Strategy, e.Class, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Strategy, e.Class)
}

// Unwrap supports errors.Is/As.
func (e *StrategyError) Unwrap() error {
	return e.Err
}

// ClassOf extracts the failure class from an error chain, defaulting to
// malformed when the error carries no classification.
func ClassOf(err error) FailureClass {
	var se *StrategyError
	if errors.As(err, &se) {
		return se.Class
	}
	return FailureMalformed
}
