//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"syscall"
	"unsafe"
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmSysKeyDown = 0x0104
	wmQuit       = 0x0012

	// llkhfInjected marks events produced by SendInput, including our own typing.
	llkhfInjected = 0x10
)

type kbdLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    syscall.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// The hook procedure has no user pointer, so the running manager is global.
var (
	instanceManager atomic.Pointer[Manager]
	keyboardHook    uintptr
	hookCallback    = syscall.NewCallback(keyboardHookProc)
)

func (m *Manager) startPlatform() error {
	if !instanceManager.CompareAndSwap(nil, m) {
		return fmt.Errorf("keyboard hook already installed")
	}

	started := make(chan error, 1)
	m.done = make(chan struct{})

	// The hook must be installed on the thread that pumps its messages.
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(m.done)
		defer instanceManager.CompareAndSwap(m, nil)

		b := m.b
		atomic.StoreUint32(&m.threadID, b.CurrentThreadID())

		h, _, err := b.SetWindowsHookEx.Call(whKeyboardLL, hookCallback, b.ModuleHandle(), 0)
		if h == 0 {
			started <- fmt.Errorf("SetWindowsHookExW: %w", err)
			return
		}
		keyboardHook = h
		started <- nil
		m.log.Debug("keyboard hook installed")

		var ms msg
		for {
			ret, _, _ := b.GetMessage.Call(uintptr(unsafe.Pointer(&ms)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			b.TranslateMessage.Call(uintptr(unsafe.Pointer(&ms)))
			b.DispatchMessage.Call(uintptr(unsafe.Pointer(&ms)))
		}

		b.UnhookWindowsHookEx.Call(keyboardHook)
		keyboardHook = 0
	}()

	return <-started
}

func (m *Manager) stopPlatform() {
	if m.done == nil {
		return
	}
	if id := atomic.LoadUint32(&m.threadID); id != 0 {
		m.b.PostThreadMessage.Call(uintptr(id), wmQuit, 0, 0)
	}
	<-m.done
}

func keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 {
		if m := instanceManager.Load(); m != nil {
			kbd := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
			if kbd.Flags&llkhfInjected == 0 {
				if keyName := vkCodeToName(kbd.VkCode); keyName != "" {
					isDown := wParam == wmKeyDown || wParam == wmSysKeyDown
					m.UpdateState(keyName, isDown)
				}
			}
		}
	}
	var next uintptr
	if m := instanceManager.Load(); m != nil {
		next, _, _ = m.b.CallNextHookEx.Call(keyboardHook, uintptr(nCode), wParam, lParam)
	}
	return next
}

func vkCodeToName(vk uint32) string {
	switch vk {
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x5B, 0x5C:
		return "CMD"
	case 0x20:
		return "SPACE"
	case 0x0D:
		return "ENTER"
	case 0x1B:
		return "ESC"
	case 0x08:
		return "BACKSPACE"
	case 0x09:
		return "TAB"
	case 0x14:
		return "CAPSLOCK"
	case 0x21:
		return "PAGEUP"
	case 0x22:
		return "PAGEDOWN"
	case 0x23:
		return "END"
	case 0x24:
		return "HOME"
	case 0x25:
		return "LEFT"
	case 0x26:
		return "UP"
	case 0x27:
		return "RIGHT"
	case 0x28:
		return "DOWN"
	case 0x2C:
		return "PRINTSCREEN"
	case 0x2D:
		return "INSERT"
	case 0x2E:
		return "DELETE"
	case 0x13:
		return "PAUSE"
	case 0x91:
		return "SCROLLLOCK"
	}

	// A-Z and 0-9 map to their ASCII letters
	if vk >= 0x41 && vk <= 0x5A || vk >= 0x30 && vk <= 0x39 {
		return string(rune(vk))
	}

	if vk >= 0x70 && vk <= 0x7B {
		return fmt.Sprintf("F%d", vk-0x6F)
	}

	return ""
}
