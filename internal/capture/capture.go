// Package capture reads the desktop into a BGRA frame.
package capture

import (
	"errors"
	"fmt"

	"franz/internal/imaging"
)

// ErrCapture is the sentinel matched by every capture failure.
var ErrCapture = errors.New("screen capture failed")

// Error reports which acquisition step failed.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture: %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrCapture, e.Err}
}

// Capturer snapshots the screen.
type Capturer interface {
	// Capture returns a width x height top-down BGRA frame, or an error and no frame.
	Capture(width, height int) (imaging.Frame, error)
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return &Error{Step: "size", Err: fmt.Errorf("invalid capture size %dx%d", width, height)}
	}
	return nil
}
