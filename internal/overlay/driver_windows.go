//go:build windows

package overlay

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"franz/internal/platform"
)

const (
	wsPopup   = 0x80000000
	wsVisible = 0x10000000
	wsVScroll = 0x00200000

	esMultiline   = 0x0004
	esAutoVScroll = 0x0040
	esReadOnly    = 0x0800

	wsExTopmost = 0x00000008

	wmSetFont        = 0x0030
	wmSetText        = 0x000C
	wmClose          = 0x0010
	wmQuit           = 0x0012
	emSetBkgndColor  = 0x0443
	swShowNoActivate = 4

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoActivate = 0x0010
	swpShowWindow = 0x0040

	hwndTopmost = ^uintptr(0) // (HWND)-1

	pmRemove      = 0x0001
	qsAllInput    = 0x04FF
	waitTimeoutMs = 50

	smtoAbortIfHung = 0x0002
	sendTimeoutMs   = 500

	fwNormal         = 400
	defaultCharset   = 1
	cleartypeQuality = 5
	fixedPitchModern = 0x01 | 0x30
)

type msg struct {
	Hwnd    windows.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// win32 drives a read-only multi-line edit control used as a text panel.
type win32 struct {
	b    *platform.Binding
	hwnd atomic.Uintptr
	font uintptr
}

func newDriver(b *platform.Binding) driver {
	return &win32{b: b}
}

func (d *win32) create(opts Options) error {
	b := d.b
	class := "EDIT"
	richEdit := b.LoadRichEdit()
	if richEdit {
		class = "RICHEDIT50W"
	}
	classPtr, err := windows.UTF16PtrFromString(class)
	if err != nil {
		return err
	}

	r := opts.Bounds()
	hwnd, _, callErr := b.CreateWindowEx.Call(
		wsExTopmost,
		uintptr(unsafe.Pointer(classPtr)),
		0,
		wsPopup|wsVisible|wsVScroll|esMultiline|esAutoVScroll|esReadOnly,
		uintptr(r.X), uintptr(r.Y), uintptr(r.Width), uintptr(r.Height),
		0, 0, b.ModuleHandle(), 0,
	)
	if hwnd == 0 {
		return fmt.Errorf("CreateWindowExW(%s): %w", class, callErr)
	}
	d.hwnd.Store(hwnd)

	if face, err := windows.UTF16PtrFromString(opts.Font); err == nil {
		d.font, _, _ = b.CreateFont.Call(
			uintptr(-int32(opts.FontSize)), 0, 0, 0, fwNormal,
			0, 0, 0, defaultCharset, 0, 0, cleartypeQuality, fixedPitchModern,
			uintptr(unsafe.Pointer(face)),
		)
	}
	if d.font != 0 {
		b.SendMessage.Call(hwnd, wmSetFont, d.font, 1)
	}
	if richEdit {
		b.SendMessage.Call(hwnd, emSetBkgndColor, 0, uintptr(opts.Background.ColorRef()))
	}

	if text, err := windows.UTF16PtrFromString(opts.InitialText); err == nil {
		b.SetWindowText.Call(hwnd, uintptr(unsafe.Pointer(text)))
	}
	b.ShowWindow.Call(hwnd, swShowNoActivate)
	d.raise(hwnd)
	return nil
}

func (d *win32) raise(hwnd uintptr) {
	d.b.SetWindowPos.Call(hwnd, hwndTopmost, 0, 0, 0, 0,
		swpNoMove|swpNoSize|swpNoActivate|swpShowWindow)
}

// pump dispatches window messages until stop closes or the queue is quit,
// then destroys the window if it still exists.
func (d *win32) pump(stop <-chan struct{}) {
	b := d.b
	var m msg
	defer d.cleanup()

	for {
		select {
		case <-stop:
			return
		default:
		}
		for {
			ret, _, _ := b.PeekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
			if ret == 0 {
				break
			}
			if m.Message == wmQuit {
				return
			}
			b.TranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			b.DispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
		}
		b.MsgWaitForMultiple.Call(0, 0, 0, waitTimeoutMs, qsAllInput)
	}
}

func (d *win32) cleanup() {
	b := d.b
	if hwnd := d.hwnd.Swap(0); hwnd != 0 {
		if ok, _, _ := b.IsWindow.Call(hwnd); ok != 0 {
			b.DestroyWindow.Call(hwnd)
		}
	}
	if d.font != 0 {
		b.DeleteObject.Call(d.font)
		d.font = 0
	}
}

// setText uses a bounded cross-thread send so a hung pump cannot stall the caller.
func (d *win32) setText(text string) error {
	hwnd := d.hwnd.Load()
	if hwnd == 0 {
		return nil
	}
	p, err := windows.UTF16PtrFromString(text)
	if err != nil {
		return err
	}
	var result uintptr
	ret, _, callErr := d.b.SendMessageTimeout.Call(
		hwnd, wmSetText, 0, uintptr(unsafe.Pointer(p)),
		smtoAbortIfHung, sendTimeoutMs, uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		return fmt.Errorf("SendMessageTimeoutW(WM_SETTEXT): %w", callErr)
	}
	d.raise(hwnd)
	return nil
}

func (d *win32) destroy() {
	if hwnd := d.hwnd.Load(); hwnd != 0 {
		d.b.PostMessage.Call(hwnd, wmClose, 0, 0)
	}
}
