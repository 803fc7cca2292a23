//go:build windows

package capture

import (
	"errors"
	"unsafe"

	"franz/internal/imaging"
	"franz/internal/platform"
)

const (
	srccopy      = 0x00CC0020
	captureblt   = 0x40000000
	biRGB        = 0
	dibRGBColors = 0
	bitsPerPixel = 32
	bitmapPlanes = 1
)

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [3]uint32
}

// GDI captures the screen device context with BitBlt into a DIB section.
type GDI struct {
	b *platform.Binding
}

// New returns the GDI capturer.
func New(b *platform.Binding) *GDI {
	return &GDI{b: b}
}

// Capture copies the top-left width x height region of the screen DC. Every
// GDI object acquired here is released before returning, on success or not.
func (c *GDI) Capture(width, height int) (imaging.Frame, error) {
	if err := checkSize(width, height); err != nil {
		return imaging.Frame{}, err
	}
	b := c.b

	screenDC, _, err := b.GetDC.Call(0)
	if screenDC == 0 {
		return imaging.Frame{}, &Error{Step: "GetDC", Err: callErr(err)}
	}
	defer b.ReleaseDC.Call(0, screenDC)

	memDC, _, err := b.CreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return imaging.Frame{}, &Error{Step: "CreateCompatibleDC", Err: callErr(err)}
	}
	defer b.DeleteDC.Call(memDC)

	bmi := bitmapInfo{Header: bitmapInfoHeader{
		Width:       int32(width),
		Height:      -int32(height), // negative height selects a top-down DIB
		Planes:      bitmapPlanes,
		BitCount:    bitsPerPixel,
		Compression: biRGB,
	}}
	bmi.Header.Size = uint32(unsafe.Sizeof(bmi.Header))

	var bits unsafe.Pointer
	dib, _, err := b.CreateDIBSection.Call(
		screenDC,
		uintptr(unsafe.Pointer(&bmi)),
		dibRGBColors,
		uintptr(unsafe.Pointer(&bits)),
		0, 0,
	)
	if dib == 0 || bits == nil {
		return imaging.Frame{}, &Error{Step: "CreateDIBSection", Err: callErr(err)}
	}
	defer b.DeleteObject.Call(dib)

	old, _, err := b.SelectObject.Call(memDC, dib)
	if old == 0 {
		return imaging.Frame{}, &Error{Step: "SelectObject", Err: callErr(err)}
	}
	defer b.SelectObject.Call(memDC, old)

	ok, _, err := b.BitBlt.Call(memDC, 0, 0, uintptr(width), uintptr(height), screenDC, 0, 0, srccopy|captureblt)
	if ok == 0 {
		return imaging.Frame{}, &Error{Step: "BitBlt", Err: callErr(err)}
	}
	b.GdiFlush.Call()

	frame := imaging.NewFrame(width, height)
	copy(frame.Pix, unsafe.Slice((*byte)(bits), len(frame.Pix)))
	return frame, nil
}

var errUnknownCall = errors.New("call failed without a last error")

// callErr turns the error of a failed LazyProc.Call into one worth reporting.
func callErr(err error) error {
	if err = platform.LastError(err); err == nil {
		return errUnknownCall
	}
	return err
}
