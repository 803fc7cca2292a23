// Package tray provides the system tray control surface using getlantern/systray.
package tray

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
)

// Controller is the part of the agent the tray drives.
type Controller interface {
	Pause()
	Resume()
	Paused() bool
	Quit()
}

// Tray manages the system tray icon and menu
type Tray struct {
	ctl Controller
	log *slog.Logger

	mu         sync.Mutex
	statusText string
	status     *systray.MenuItem
	pause      *systray.MenuItem

	readyCh chan struct{}
	quitCh  chan struct{}
}

// New creates a new system tray
func New(ctl Controller, logger *slog.Logger) *Tray {
	return &Tray{
		ctl:        ctl,
		log:        logger.With("component", "tray"),
		statusText: "Starting",
		readyCh:    make(chan struct{}),
		quitCh:     make(chan struct{}),
	}
}

// Run starts the tray event loop and blocks until Stop. On Windows it must
// be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// Ready is closed once the menu exists.
func (t *Tray) Ready() <-chan struct{} {
	return t.readyCh
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// SetStatus shows text in the disabled first menu line.
func (t *Tray) SetStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusText = text
	if t.status != nil {
		t.status.SetTitle(text)
	}
}

func (t *Tray) setupMenu() {
	systray.SetTitle("FRANZ")
	systray.SetTooltip("FRANZ desktop agent")
	systray.SetIcon(getIcon())

	t.mu.Lock()
	t.status = systray.AddMenuItem(t.statusText, "Last cycle")
	t.status.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	t.pause = systray.AddMenuItem(pauseLabel(t.ctl.Paused()), "Pause or resume the agent")
	quit := systray.AddMenuItem("Quit", "Stop the agent")

	go func() {
		for {
			select {
			case <-t.pause.ClickedCh:
				t.pause.SetTitle(t.togglePause())
			case <-quit.ClickedCh:
				t.log.Info("quit requested from tray")
				t.ctl.Quit()
				return
			case <-t.quitCh:
				return
			}
		}
	}()

	close(t.readyCh)
}

// togglePause flips the controller and returns the new menu label.
func (t *Tray) togglePause() string {
	if t.ctl.Paused() {
		t.log.Info("resumed from tray")
		t.ctl.Resume()
	} else {
		t.log.Info("paused from tray")
		t.ctl.Pause()
	}
	return pauseLabel(t.ctl.Paused())
}

func pauseLabel(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}

// getIcon returns a 16x16 32-bit ICO filled with the overlay background
// and a lighter border.
func getIcon() []byte {
	const (
		size      = 16
		headerLen = 6 + 16
		dibLen    = 40
		pixelLen  = size * size * 4
		maskLen   = size * 4 // 1bpp rows padded to 32 bits
	)
	icon := make([]byte, headerLen+dibLen+pixelLen+maskLen)
	le := binary.LittleEndian

	// ICONDIR
	le.PutUint16(icon[2:], 1) // type: icon
	le.PutUint16(icon[4:], 1) // count

	// ICONDIRENTRY
	icon[6], icon[7] = size, size
	le.PutUint16(icon[10:], 1)  // planes
	le.PutUint16(icon[12:], 32) // bpp
	le.PutUint32(icon[14:], dibLen+pixelLen+maskLen)
	le.PutUint32(icon[18:], headerLen)

	// BITMAPINFOHEADER, height doubled for XOR+AND masks
	dib := icon[headerLen:]
	le.PutUint32(dib[0:], dibLen)
	le.PutUint32(dib[4:], size)
	le.PutUint32(dib[8:], size*2)
	le.PutUint16(dib[12:], 1)
	le.PutUint16(dib[14:], 32)
	le.PutUint32(dib[20:], pixelLen)

	pix := icon[headerLen+dibLen:]
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			o := (y*size + x) * 4
			c := byte(0x1E)
			if x == 0 || y == 0 || x == size-1 || y == size-1 {
				c = 0xD0
			}
			pix[o], pix[o+1], pix[o+2], pix[o+3] = c, c, c, 0xFF
		}
	}
	return icon
}
