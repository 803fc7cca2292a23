package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrInference is matched by every failure to obtain a usable decision.
	ErrInference = errors.New("inference failed")

	// ErrNoChoices means the service answered with an empty choice list.
	ErrNoChoices = errors.New("response has no choices")

	// ErrNoToolCall means the model answered without calling an action.
	ErrNoToolCall = errors.New("response has no tool call")

	// ErrSchema means the action arguments did not match the catalogue.
	ErrSchema = errors.New("action arguments do not match schema")
)

// Error wraps a failure with the stage that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrInference, e.Err}
}

func schemaErr(format string, args ...any) error {
	return &Error{Op: "parse", Err: fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...))}
}
