// Package imaging holds the per-cycle pixel buffers and the transforms applied
// to them before they leave the process: nearest-neighbour downsampling and a
// minimal PNG encoder.
package imaging

import (
	"errors"
	"fmt"
)

// BytesPerPixel is the stride of one pixel in a Frame (B, G, R, A).
const BytesPerPixel = 4

// ErrFrameSize is returned when a buffer does not hold exactly width*height pixels.
var ErrFrameSize = errors.New("frame buffer size does not match dimensions")

// Frame is a top-down BGRA pixel buffer.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
}

// NewFrame allocates a zeroed frame of the given size.
func NewFrame(width, height int) Frame {
	return Frame{
		Pix:    make([]byte, width*height*BytesPerPixel),
		Width:  width,
		Height: height,
	}
}

// Validate checks the dimensions against the buffer length.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrFrameSize, f.Width, f.Height)
	}
	if want := f.Width * f.Height * BytesPerPixel; len(f.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, have %d", ErrFrameSize, f.Width, f.Height, want, len(f.Pix))
	}
	return nil
}

// Offset returns the index of the first byte of pixel (x, y).
func (f Frame) Offset(x, y int) int {
	return (y*f.Width + x) * BytesPerPixel
}

// SetBGRA writes one pixel.
func (f Frame) SetBGRA(x, y int, b, g, r, a byte) {
	i := f.Offset(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = b, g, r, a
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return Frame{Pix: pix, Width: f.Width, Height: f.Height}
}
