// Package overlay shows the agent's narrative in an always-on-top window
// owned by a dedicated message-pump thread.
package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"franz/internal/platform"
)

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("overlay already started")

	// ErrReadyTimeout is returned when the window did not come up in time.
	ErrReadyTimeout = errors.New("overlay not ready before timeout")

	// ErrStopTimeout is returned when the pump thread did not exit in time.
	ErrStopTimeout = errors.New("overlay thread did not exit before timeout")
)

// State is the lifecycle position of an Overlay.
type State int32

const (
	Uninitialized State = iota
	Starting
	Ready
	Running
	Destroying
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Destroying:
		return "destroying"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// driver owns the native window. create and pump run on the locked pump
// thread; setText and destroy may be called from any goroutine.
type driver interface {
	create(opts Options) error
	pump(stop <-chan struct{})
	setText(text string) error
	destroy()
}

// Overlay is the narrative window. Update is the only entry point meant to
// be called while the pump runs.
type Overlay struct {
	drv  driver
	opts Options
	log  *slog.Logger

	state atomic.Int32

	ready chan struct{}
	stop  chan struct{}
	done  chan struct{}

	startErr error
	stopOnce sync.Once

	mu   sync.Mutex
	text string
}

// New returns an overlay drawing through the platform's native window driver.
func New(b *platform.Binding, opts Options, logger *slog.Logger) *Overlay {
	return newOverlay(newDriver(b), opts, logger)
}

func newOverlay(drv driver, opts Options, logger *slog.Logger) *Overlay {
	return &Overlay{
		drv:   drv,
		opts:  opts.withDefaults(),
		log:   logger.With("component", "overlay"),
		ready: make(chan struct{}),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		text:  opts.InitialText,
	}
}

// State reports the current lifecycle state.
func (o *Overlay) State() State {
	return State(o.state.Load())
}

// Text returns the text last handed to the window.
func (o *Overlay) Text() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text
}

// Start spawns the pump thread and waits up to ReadyTimeout for the window.
// On error the caller keeps running without an overlay; Close is still safe.
func (o *Overlay) Start() error {
	if !o.state.CompareAndSwap(int32(Uninitialized), int32(Starting)) {
		return ErrAlreadyStarted
	}
	go o.run()

	timer := time.NewTimer(o.opts.ReadyTimeout)
	defer timer.Stop()
	select {
	case <-o.ready:
		if o.startErr != nil {
			return fmt.Errorf("create overlay window: %w", o.startErr)
		}
		o.log.Debug("overlay ready", "layout", o.opts.Layout)
		return nil
	case <-timer.C:
		return ErrReadyTimeout
	}
}

func (o *Overlay) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(o.done)
	defer o.state.Store(int32(Terminated))

	if err := o.drv.create(o.opts); err != nil {
		o.startErr = err
		close(o.ready)
		return
	}
	o.state.CompareAndSwap(int32(Starting), int32(Ready))
	close(o.ready)

	o.state.CompareAndSwap(int32(Ready), int32(Running))
	o.drv.pump(o.stop)
}

// Update replaces the window text and re-asserts topmost. Before the window
// is ready, or once shutdown began, it does nothing.
func (o *Overlay) Update(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s := o.State(); s != Ready && s != Running {
		return
	}
	o.text = text
	if err := o.drv.setText(text); err != nil {
		o.log.Warn("overlay update failed", "error", err)
	}
}

// Close requests window destruction, signals the pump to stop and waits up
// to StopTimeout for the thread to exit. Only the first call has effect.
func (o *Overlay) Close() error {
	var err error
	o.stopOnce.Do(func() {
		o.mu.Lock()
		if o.state.CompareAndSwap(int32(Uninitialized), int32(Terminated)) {
			o.mu.Unlock()
			return
		}
		if o.State() != Terminated {
			o.state.Store(int32(Destroying))
		}
		o.mu.Unlock()

		o.drv.destroy()
		close(o.stop)

		timer := time.NewTimer(o.opts.StopTimeout)
		defer timer.Stop()
		select {
		case <-o.done:
		case <-timer.C:
			err = ErrStopTimeout
		}
	})
	return err
}
