package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrRunnerUnavailable means the runner's binary or backend is missing.
	ErrRunnerUnavailable = errors.New("runner unavailable")
	// ErrInputInvalid means the input or output path cannot be used.
	ErrInputInvalid = errors.New("invalid runner input")
)

// ExecutionError is a stage-aware failure carrying process detail.
type ExecutionError struct {
	Stage  string
	Detail string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Detail)
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsExecutionError reports whether err wraps an *ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
