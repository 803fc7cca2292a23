package input

import (
	"errors"
	"fmt"
)

var (
	// ErrInjection is matched by every failed or partial injection.
	ErrInjection = errors.New("input injection failed")

	// ErrUnsupportedPlatform is returned by the sender on non-Windows builds.
	ErrUnsupportedPlatform = errors.New("input injection not supported on this platform")
)

// InjectionError reports a batch the OS did not fully accept.
type InjectionError struct {
	Want int
	Got  int
	Err  error
}

func (e *InjectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input: injected %d of %d events: %v", e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("input: injected %d of %d events", e.Got, e.Want)
}

func (e *InjectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInjection}
	}
	return []error{ErrInjection, e.Err}
}
