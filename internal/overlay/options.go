package overlay

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"franz/internal/platform"
)

// Layout selects where the window is placed.
type Layout string

const (
	LayoutFull  Layout = "full"
	LayoutHalf  Layout = "half"
	LayoutPanel Layout = "panel"
)

// Rect is a window rectangle in physical pixels.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Options configures the window.
type Options struct {
	Layout Layout
	// Panel is used by LayoutPanel.
	Panel  Rect
	Screen platform.Size

	Font        string
	FontSize    int
	Background  RGB
	InitialText string

	ReadyTimeout time.Duration
	StopTimeout  time.Duration
}

// RGB is a 24-bit colour.
type RGB struct {
	R, G, B uint8
}

// ParseRGB parses "#RRGGBB".
func ParseRGB(s string) (RGB, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("colour %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// ColorRef returns the colour in Win32 COLORREF order (0x00BBGGRR).
func (c RGB) ColorRef() uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16
}

// DefaultPanel is the side panel the overlay starts in.
var DefaultPanel = Rect{X: 1400, Y: 200, Width: 480, Height: 600}

func (o Options) withDefaults() Options {
	if o.Layout == "" {
		o.Layout = LayoutPanel
	}
	if o.Panel.Width <= 0 || o.Panel.Height <= 0 {
		o.Panel = DefaultPanel
	}
	if o.Font == "" {
		o.Font = "Consolas"
	}
	if o.FontSize <= 0 {
		o.FontSize = 16
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 2 * time.Second
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = time.Second
	}
	return o
}

// Bounds returns the window rectangle for the configured layout.
func (o Options) Bounds() Rect {
	sw, sh := o.Screen.Width, o.Screen.Height
	switch o.Layout {
	case LayoutFull:
		return Rect{Width: sw, Height: sh}
	case LayoutHalf:
		w, h := sw/2, sh/2
		return Rect{X: (sw - w) / 2, Y: (sh - h) / 2, Width: w, Height: h}
	default:
		return o.Panel
	}
}
