package capture

import (
	"errors"
	"syscall"
	"testing"
)

func TestErrorMatchesSentinelAndCause(t *testing.T) {
	cause := syscall.Errno(8)
	err := error(&Error{Step: "CreateDIBSection", Err: cause})

	if !errors.Is(err, ErrCapture) {
		t.Error("Expected error to match ErrCapture")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to match the underlying cause")
	}
	var ce *Error
	if !errors.As(err, &ce) || ce.Step != "CreateDIBSection" {
		t.Errorf("Expected step CreateDIBSection, got %+v", ce)
	}
}

func TestCheckSize(t *testing.T) {
	if err := checkSize(1920, 1080); err != nil {
		t.Errorf("Expected valid size, got %v", err)
	}
	for _, s := range [][2]int{{0, 10}, {10, 0}, {-1, -1}} {
		if err := checkSize(s[0], s[1]); !errors.Is(err, ErrCapture) {
			t.Errorf("checkSize(%d,%d): expected ErrCapture, got %v", s[0], s[1], err)
		}
	}
}
