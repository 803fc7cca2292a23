//go:build !windows

package platform

import (
	"image"
	"log/slog"

	"github.com/kbinani/screenshot"
)

// Binding is empty off Windows; screen geometry comes from the screenshot library.
type Binding struct{}

// Load returns an empty binding.
func Load() (*Binding, error) {
	return &Binding{}, nil
}

// EnableDPIAwareness is a no-op off Windows.
func (b *Binding) EnableDPIAwareness(logger *slog.Logger) {}

// LoadRichEdit reports false off Windows.
func (b *Binding) LoadRichEdit() bool { return false }

// ScreenSize returns the size of the union of all active displays.
func (b *Binding) ScreenSize() Size {
	r := VirtualBounds()
	return Size{Width: r.Dx(), Height: r.Dy()}
}

// VirtualBounds returns the rectangle covering every active display.
func VirtualBounds() image.Rectangle {
	var all image.Rectangle
	for i := 0; i < screenshot.NumActiveDisplays(); i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	return all
}

// IsElevated is always false off Windows.
func IsElevated() bool { return false }
