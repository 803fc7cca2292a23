// Package input synthesizes hardware-level pointer and keyboard events.
package input

import (
	"fmt"

	"franz/internal/coords"
)

// Button identifies a mouse button.
type Button uint8

const (
	ButtonLeft Button = iota + 1
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	default:
		return fmt.Sprintf("button(%d)", uint8(b))
	}
}

// WheelDelta is one notional wheel detent.
const WheelDelta = 120

// Event is one atomic synthetic input event. The concrete types are Move,
// ButtonEvent, KeyEvent and Wheel; no other type implements it.
type Event interface {
	event()
	String() string
}

// Move is an absolute pointer move in device-absolute coordinates.
type Move struct {
	To coords.DevicePoint
}

// ButtonEvent presses or releases a mouse button at the current position.
type ButtonEvent struct {
	Button Button
	Down   bool
}

// KeyEvent presses or releases a key carrying one UTF-16 code unit.
type KeyEvent struct {
	Unit uint16
	Down bool
}

// Wheel is a vertical wheel rotation; positive scrolls away from the user.
type Wheel struct {
	Delta int32
}

func (Move) event()        {}
func (ButtonEvent) event() {}
func (KeyEvent) event()    {}
func (Wheel) event()       {}

func (e Move) String() string { return fmt.Sprintf("move(%d,%d)", e.To.X, e.To.Y) }

func (e ButtonEvent) String() string {
	if e.Down {
		return e.Button.String() + "-down"
	}
	return e.Button.String() + "-up"
}

func (e KeyEvent) String() string {
	if e.Down {
		return fmt.Sprintf("key-down(U+%04X)", e.Unit)
	}
	return fmt.Sprintf("key-up(U+%04X)", e.Unit)
}

func (e Wheel) String() string { return fmt.Sprintf("wheel(%d)", e.Delta) }

// MoveTo builds an absolute pointer move.
func MoveTo(p coords.DevicePoint) Event { return Move{To: p} }

// Press builds a button-down event.
func Press(b Button) Event { return ButtonEvent{Button: b, Down: true} }

// Release builds a button-up event.
func Release(b Button) Event { return ButtonEvent{Button: b} }

// KeyDown builds a Unicode key-down event.
func KeyDown(unit uint16) Event { return KeyEvent{Unit: unit, Down: true} }

// KeyUp builds a Unicode key-up event.
func KeyUp(unit uint16) Event { return KeyEvent{Unit: unit} }

// WheelTick builds one wheel detent in the given direction (+1 or -1).
func WheelTick(direction int) Event {
	if direction < 0 {
		return Wheel{Delta: -WheelDelta}
	}
	return Wheel{Delta: WheelDelta}
}

// Sender delivers a batch of events to the OS input stream.
type Sender interface {
	// Send injects events in order and returns how many were accepted.
	Send(events []Event) (int, error)
}
