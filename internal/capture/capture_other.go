//go:build !windows

package capture

import (
	"image"

	"github.com/kbinani/screenshot"

	"franz/internal/imaging"
	"franz/internal/platform"
)

// Screenshot captures through the X11/Quartz backends of kbinani/screenshot.
// It exists for diagnostics on development machines; the agent targets Windows.
type Screenshot struct{}

// New returns the screenshot-backed capturer.
func New(_ *platform.Binding) *Screenshot {
	return &Screenshot{}
}

// Capture grabs the width x height region at the virtual desktop origin and
// converts it to BGRA.
func (c *Screenshot) Capture(width, height int) (imaging.Frame, error) {
	if err := checkSize(width, height); err != nil {
		return imaging.Frame{}, err
	}
	origin := platform.VirtualBounds().Min
	rect := image.Rect(origin.X, origin.Y, origin.X+width, origin.Y+height)

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return imaging.Frame{}, &Error{Step: "CaptureRect", Err: err}
	}
	return fromRGBA(img, width, height), nil
}

// fromRGBA swaps an RGBA image into a BGRA frame.
func fromRGBA(img *image.RGBA, width, height int) imaging.Frame {
	frame := imaging.NewFrame(width, height)
	for y := 0; y < height; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+width*4]
		dst := frame.Pix[frame.Offset(0, y):frame.Offset(0, y+1)]
		for x := 0; x < width*4; x += 4 {
			dst[x], dst[x+1], dst[x+2], dst[x+3] = src[x+2], src[x+1], src[x], src[x+3]
		}
	}
	return frame
}
