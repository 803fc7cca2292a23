//go:build windows

package platform

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows"
)

const (
	smCXScreen = 0
	smCYScreen = 1

	processPerMonitorDPIAware = 2
)

// Binding holds the lazily resolved user32, gdi32, kernel32 and shcore procedures.
type Binding struct {
	user32   *windows.LazyDLL
	gdi32    *windows.LazyDLL
	kernel32 *windows.LazyDLL
	shcore   *windows.LazyDLL

	// user32
	GetSystemMetrics     *windows.LazyProc
	GetDC                *windows.LazyProc
	ReleaseDC            *windows.LazyProc
	SendInput            *windows.LazyProc
	CreateWindowEx       *windows.LazyProc
	DestroyWindow        *windows.LazyProc
	IsWindow             *windows.LazyProc
	ShowWindow           *windows.LazyProc
	SetWindowPos         *windows.LazyProc
	SetWindowText        *windows.LazyProc
	SendMessage          *windows.LazyProc
	SendMessageTimeout   *windows.LazyProc
	PostMessage          *windows.LazyProc
	PostThreadMessage    *windows.LazyProc
	PeekMessage          *windows.LazyProc
	GetMessage           *windows.LazyProc
	TranslateMessage     *windows.LazyProc
	DispatchMessage      *windows.LazyProc
	MsgWaitForMultiple   *windows.LazyProc
	SetWindowsHookEx     *windows.LazyProc
	CallNextHookEx       *windows.LazyProc
	UnhookWindowsHookEx  *windows.LazyProc
	SetProcessDPIAwareV1 *windows.LazyProc

	// gdi32
	CreateCompatibleDC *windows.LazyProc
	CreateDIBSection   *windows.LazyProc
	SelectObject       *windows.LazyProc
	BitBlt             *windows.LazyProc
	DeleteObject       *windows.LazyProc
	DeleteDC           *windows.LazyProc
	CreateFont         *windows.LazyProc
	GdiFlush           *windows.LazyProc

	// kernel32
	GetModuleHandle    *windows.LazyProc
	GetCurrentThreadID *windows.LazyProc

	// shcore
	SetProcessDPIAwareness *windows.LazyProc

	richEdit bool
}

// Load resolves the system DLLs. It fails only when user32 or gdi32 cannot be loaded.
func Load() (*Binding, error) {
	b := &Binding{
		user32:   windows.NewLazySystemDLL("user32.dll"),
		gdi32:    windows.NewLazySystemDLL("gdi32.dll"),
		kernel32: windows.NewLazySystemDLL("kernel32.dll"),
		shcore:   windows.NewLazySystemDLL("shcore.dll"),
	}
	for _, dll := range []*windows.LazyDLL{b.user32, b.gdi32, b.kernel32} {
		if err := dll.Load(); err != nil {
			return nil, fmt.Errorf("load %s: %w", dll.Name, err)
		}
	}

	u, g, k := b.user32, b.gdi32, b.kernel32
	b.GetSystemMetrics = u.NewProc("GetSystemMetrics")
	b.GetDC = u.NewProc("GetDC")
	b.ReleaseDC = u.NewProc("ReleaseDC")
	b.SendInput = u.NewProc("SendInput")
	b.CreateWindowEx = u.NewProc("CreateWindowExW")
	b.DestroyWindow = u.NewProc("DestroyWindow")
	b.IsWindow = u.NewProc("IsWindow")
	b.ShowWindow = u.NewProc("ShowWindow")
	b.SetWindowPos = u.NewProc("SetWindowPos")
	b.SetWindowText = u.NewProc("SetWindowTextW")
	b.SendMessage = u.NewProc("SendMessageW")
	b.SendMessageTimeout = u.NewProc("SendMessageTimeoutW")
	b.PostMessage = u.NewProc("PostMessageW")
	b.PostThreadMessage = u.NewProc("PostThreadMessageW")
	b.PeekMessage = u.NewProc("PeekMessageW")
	b.GetMessage = u.NewProc("GetMessageW")
	b.TranslateMessage = u.NewProc("TranslateMessage")
	b.DispatchMessage = u.NewProc("DispatchMessageW")
	b.MsgWaitForMultiple = u.NewProc("MsgWaitForMultipleObjects")
	b.SetWindowsHookEx = u.NewProc("SetWindowsHookExW")
	b.CallNextHookEx = u.NewProc("CallNextHookEx")
	b.UnhookWindowsHookEx = u.NewProc("UnhookWindowsHookEx")
	b.SetProcessDPIAwareV1 = u.NewProc("SetProcessDPIAware")

	b.CreateCompatibleDC = g.NewProc("CreateCompatibleDC")
	b.CreateDIBSection = g.NewProc("CreateDIBSection")
	b.SelectObject = g.NewProc("SelectObject")
	b.BitBlt = g.NewProc("BitBlt")
	b.DeleteObject = g.NewProc("DeleteObject")
	b.DeleteDC = g.NewProc("DeleteDC")
	b.CreateFont = g.NewProc("CreateFontW")
	b.GdiFlush = g.NewProc("GdiFlush")

	b.GetModuleHandle = k.NewProc("GetModuleHandleW")
	b.GetCurrentThreadID = k.NewProc("GetCurrentThreadId")

	b.SetProcessDPIAwareness = b.shcore.NewProc("SetProcessDpiAwareness")

	return b, nil
}

// EnableDPIAwareness opts the process into per-monitor DPI awareness so that
// screen metrics, capture and injection all see physical pixels. It must run
// before any window is created.
func (b *Binding) EnableDPIAwareness(logger *slog.Logger) {
	if err := b.SetProcessDPIAwareness.Find(); err == nil {
		hr, _, _ := b.SetProcessDPIAwareness.Call(processPerMonitorDPIAware)
		if hr == 0 {
			return
		}
		logger.Debug("SetProcessDpiAwareness refused", "hresult", fmt.Sprintf("0x%X", uint32(hr)))
	}
	if ret, _, err := b.SetProcessDPIAwareV1.Call(); ret == 0 {
		logger.Warn("DPI awareness unavailable, coordinates may be scaled", "error", err)
	}
}

// LoadRichEdit loads Msftedit.dll so the overlay can use a RichEdit control.
// It reports whether the control class is available.
func (b *Binding) LoadRichEdit() bool {
	if b.richEdit {
		return true
	}
	if _, err := windows.LoadLibraryEx("Msftedit.dll", 0, windows.LOAD_LIBRARY_SEARCH_SYSTEM32); err == nil {
		b.richEdit = true
	}
	return b.richEdit
}

// ScreenSize returns the primary display size in physical pixels.
func (b *Binding) ScreenSize() Size {
	w, _, _ := b.GetSystemMetrics.Call(smCXScreen)
	h, _, _ := b.GetSystemMetrics.Call(smCYScreen)
	return Size{Width: int(int32(w)), Height: int(int32(h))}
}

// ModuleHandle returns the instance handle of the running executable.
func (b *Binding) ModuleHandle() uintptr {
	h, _, _ := b.GetModuleHandle.Call(0)
	return h
}

// CurrentThreadID returns the calling OS thread id.
func (b *Binding) CurrentThreadID() uint32 {
	id, _, _ := b.GetCurrentThreadID.Call()
	return uint32(id)
}
