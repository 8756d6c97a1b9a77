package run

import (
	"errors"
	"fmt"

	"tavolo/internal/tasks"
)

// ErrTaskNotFound means a required sub-task is missing from the execution
// backend. Fatal: the run cannot proceed.
var ErrTaskNotFound = errors.New("required sub-task not registered")

// SubTaskError wraps a failure raised by a sub-task. Fatal: the run aborts
// and the error propagates to the caller.
type SubTaskError struct {
	Kind tasks.Kind
	Err  error
}

func (e *SubTaskError) Error() string {
	return fmt.Sprintf("%s sub-task: %v", e.Kind, e.Err)
}

func (e *SubTaskError) Unwrap() error { return e.Err }
