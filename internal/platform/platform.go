// Package platform owns the native library bindings shared by screen
// capture, input injection and the overlay window. A Binding is loaded once
// at startup and handed to each component instead of living in package
// globals.
package platform

import (
	"errors"
	"syscall"
)

// ErrUnsupportedPlatform is returned by operations that need the Windows desktop.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Size is a display size in physical pixels.
type Size struct {
	Width  int
	Height int
}

// LastError filters the error returned by a lazy proc Call, which is never
// nil. A zero errno means the call did not set a last error and yields nil.
func LastError(err error) error {
	var errno syscall.Errno
	if err == nil || (errors.As(err, &errno) && errno == 0) {
		return nil
	}
	return err
}
