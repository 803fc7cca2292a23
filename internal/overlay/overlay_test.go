package overlay

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"franz/internal/platform"
)

type fakeDriver struct {
	mu        sync.Mutex
	createErr error
	block     chan struct{} // delays create until closed
	texts     []string
	destroyed int
	pumped    bool
}

func (d *fakeDriver) create(Options) error {
	if d.block != nil {
		<-d.block
	}
	return d.createErr
}

func (d *fakeDriver) pump(stop <-chan struct{}) {
	d.mu.Lock()
	d.pumped = true
	d.mu.Unlock()
	<-stop
}

func (d *fakeDriver) setText(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
	return nil
}

func (d *fakeDriver) destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed++
}

func (d *fakeDriver) setTexts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.texts...)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		InitialText:  "hello",
		ReadyTimeout: time.Second,
		StopTimeout:  time.Second,
	}
}

func TestLifecycle(t *testing.T) {
	d := &fakeDriver{}
	o := newOverlay(d, testOptions(), discard())

	if o.State() != Uninitialized {
		t.Fatalf("Expected uninitialized, got %v", o.State())
	}
	if err := o.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s := o.State(); s != Ready && s != Running {
		t.Errorf("Expected ready or running after Start, got %v", s)
	}

	o.Update("first")
	o.Update("second")
	if got := d.setTexts(); len(got) != 2 || got[1] != "second" {
		t.Errorf("Expected two updates ending in 'second', got %v", got)
	}
	if o.Text() != "second" {
		t.Errorf("Expected text 'second', got %q", o.Text())
	}

	if err := o.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if o.State() != Terminated {
		t.Errorf("Expected terminated, got %v", o.State())
	}
	if d.destroyed != 1 {
		t.Errorf("Expected one destroy request, got %d", d.destroyed)
	}
}

func TestStartTwice(t *testing.T) {
	o := newOverlay(&fakeDriver{}, testOptions(), discard())
	defer o.Close()
	if err := o.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := o.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
}

func TestUpdateBeforeReadyIsNoop(t *testing.T) {
	d := &fakeDriver{}
	o := newOverlay(d, testOptions(), discard())

	o.Update("too early")
	if len(d.setTexts()) != 0 {
		t.Errorf("Expected no driver call before Start")
	}
	if o.Text() != "hello" {
		t.Errorf("Expected initial text to remain, got %q", o.Text())
	}
}

func TestUpdateAfterCloseIsNoop(t *testing.T) {
	d := &fakeDriver{}
	o := newOverlay(d, testOptions(), discard())
	if err := o.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	o.Update("late")
	if len(d.setTexts()) != 0 {
		t.Errorf("Expected no driver call after Close, got %v", d.setTexts())
	}
}

func TestCreateFailureDegrades(t *testing.T) {
	d := &fakeDriver{createErr: errors.New("no desktop")}
	o := newOverlay(d, testOptions(), discard())

	if err := o.Start(); err == nil {
		t.Fatal("Expected Start to fail")
	}
	o.Update("ignored")
	if err := o.Close(); err != nil {
		t.Errorf("Close after failed start: %v", err)
	}
	if o.State() != Terminated {
		t.Errorf("Expected terminated, got %v", o.State())
	}
}

func TestReadyTimeout(t *testing.T) {
	block := make(chan struct{})
	d := &fakeDriver{block: block}
	opts := testOptions()
	opts.ReadyTimeout = 20 * time.Millisecond
	o := newOverlay(d, opts, discard())

	if err := o.Start(); !errors.Is(err, ErrReadyTimeout) {
		t.Fatalf("Expected ErrReadyTimeout, got %v", err)
	}
	close(block)
	if err := o.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestStopTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	d := &fakeDriver{block: block}
	opts := testOptions()
	opts.ReadyTimeout = 10 * time.Millisecond
	opts.StopTimeout = 10 * time.Millisecond
	o := newOverlay(d, opts, discard())

	_ = o.Start()
	if err := o.Close(); !errors.Is(err, ErrStopTimeout) {
		t.Errorf("Expected ErrStopTimeout, got %v", err)
	}
	if err := o.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}

func TestCloseWithoutStart(t *testing.T) {
	d := &fakeDriver{}
	o := newOverlay(d, testOptions(), discard())
	if err := o.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.destroyed != 0 {
		t.Errorf("Expected no destroy request, got %d", d.destroyed)
	}
	if err := o.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected Start after Close to fail, got %v", err)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	d := &fakeDriver{}
	o := newOverlay(d, testOptions(), discard())
	if err := o.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Update("x")
		}()
	}
	wg.Wait()
	if err := o.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := len(d.setTexts()); n != 8 {
		t.Errorf("Expected 8 updates, got %d", n)
	}
}

func TestBounds(t *testing.T) {
	screen := platform.Size{Width: 1920, Height: 1080}
	tests := []struct {
		layout Layout
		want   Rect
	}{
		{LayoutFull, Rect{Width: 1920, Height: 1080}},
		{LayoutHalf, Rect{X: 480, Y: 270, Width: 960, Height: 540}},
		{LayoutPanel, DefaultPanel},
		{"", DefaultPanel},
	}
	for _, tt := range tests {
		got := Options{Layout: tt.layout, Screen: screen}.withDefaults().Bounds()
		if got != tt.want {
			t.Errorf("Layout %q: expected %+v, got %+v", tt.layout, tt.want, got)
		}
	}
}

func TestParseRGB(t *testing.T) {
	c, err := ParseRGB("#1E1E1E")
	if err != nil {
		t.Fatalf("ParseRGB failed: %v", err)
	}
	if c.ColorRef() != 0x1E1E1E {
		t.Errorf("Expected 0x1E1E1E, got %#x", c.ColorRef())
	}
	c, _ = ParseRGB("102030")
	if c.ColorRef() != 0x302010 {
		t.Errorf("Expected BGR order 0x302010, got %#x", c.ColorRef())
	}
	for _, bad := range []string{"", "#12345", "#GGGGGG"} {
		if _, err := ParseRGB(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
