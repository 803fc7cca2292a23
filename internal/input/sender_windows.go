//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"franz/internal/platform"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfMove      = 0x0001
	mouseeventfLeftDown  = 0x0002
	mouseeventfLeftUp    = 0x0004
	mouseeventfRightDown = 0x0008
	mouseeventfRightUp   = 0x0010
	mouseeventfWheel     = 0x0800
	mouseeventfAbsolute  = 0x8000

	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004
)

// mouseInput mirrors MOUSEINPUT.
type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// rawInput mirrors INPUT. The union is represented by its largest member,
// mouseInput; keyboard payloads are written over the same bytes.
type rawInput struct {
	Type uint32
	Mi   mouseInput
}

// SendInput injects events with user32!SendInput.
type SendInput struct {
	b *platform.Binding
}

// NewSystemSender returns the SendInput-backed sender.
func NewSystemSender(b *platform.Binding) Sender {
	return &SendInput{b: b}
}

// Send marshals the batch to INPUT records and submits it in one call.
func (s *SendInput) Send(events []Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	records := make([]rawInput, len(events))
	for i, ev := range events {
		if err := marshal(ev, &records[i]); err != nil {
			return 0, err
		}
	}

	n, _, err := s.b.SendInput.Call(
		uintptr(len(records)),
		uintptr(unsafe.Pointer(&records[0])),
		unsafe.Sizeof(records[0]),
	)
	if int(n) != len(records) {
		return int(n), platform.LastError(err)
	}
	return int(n), nil
}

func marshal(ev Event, rec *rawInput) error {
	switch e := ev.(type) {
	case Move:
		rec.Type = inputMouse
		rec.Mi = mouseInput{Dx: e.To.X, Dy: e.To.Y, DwFlags: mouseeventfMove | mouseeventfAbsolute}
	case ButtonEvent:
		rec.Type = inputMouse
		flags, err := buttonFlags(e)
		if err != nil {
			return err
		}
		rec.Mi = mouseInput{DwFlags: flags}
	case Wheel:
		rec.Type = inputMouse
		rec.Mi = mouseInput{MouseData: uint32(e.Delta), DwFlags: mouseeventfWheel}
	case KeyEvent:
		rec.Type = inputKeyboard
		ki := (*keybdInput)(unsafe.Pointer(&rec.Mi))
		ki.WScan = e.Unit
		ki.DwFlags = keyeventfUnicode
		if !e.Down {
			ki.DwFlags |= keyeventfKeyUp
		}
	default:
		return fmt.Errorf("input: unknown event %T", ev)
	}
	return nil
}

func buttonFlags(e ButtonEvent) (uint32, error) {
	switch {
	case e.Button == ButtonLeft && e.Down:
		return mouseeventfLeftDown, nil
	case e.Button == ButtonLeft:
		return mouseeventfLeftUp, nil
	case e.Button == ButtonRight && e.Down:
		return mouseeventfRightDown, nil
	case e.Button == ButtonRight:
		return mouseeventfRightUp, nil
	}
	return 0, fmt.Errorf("input: unsupported button %s", e.Button)
}
