package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"franz/internal/backoff"
	"franz/internal/capture"
	"franz/internal/coords"
	"franz/internal/imaging"
	"franz/internal/inference"
	"franz/internal/input"
	"franz/internal/metrics"
	"franz/internal/platform"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCapturer struct {
	calls  int
	failAt map[int]bool
}

func (c *fakeCapturer) Capture(w, h int) (imaging.Frame, error) {
	c.calls++
	if c.failAt[c.calls] {
		return imaging.Frame{}, &capture.Error{Step: "BitBlt", Err: errors.New("desktop locked")}
	}
	f := imaging.NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = byte(i)
	}
	return f, nil
}

type result struct {
	d   inference.Decision
	err error
}

type scriptedDecider struct {
	script []result
	calls  int
	pngs   [][]byte
}

func (s *scriptedDecider) Decide(_ context.Context, png []byte) (inference.Decision, error) {
	s.pngs = append(s.pngs, png)
	r := s.script[s.calls%len(s.script)]
	s.calls++
	return r.d, r.err
}

type recordingActuator struct {
	calls []string
	err   error
}

func (r *recordingActuator) record(format string, args ...any) error {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	return r.err
}

func (r *recordingActuator) Click(p coords.Point) error       { return r.record("click %v,%v", p.X, p.Y) }
func (r *recordingActuator) RightClick(p coords.Point) error  { return r.record("right %v,%v", p.X, p.Y) }
func (r *recordingActuator) DoubleClick(p coords.Point) error { return r.record("double %v,%v", p.X, p.Y) }
func (r *recordingActuator) Drag(a, b coords.Point) error {
	return r.record("drag %v,%v-%v,%v", a.X, a.Y, b.X, b.Y)
}
func (r *recordingActuator) TypeText(s string) error { return r.record("type %q", s) }
func (r *recordingActuator) Scroll(dy float64) error { return r.record("scroll %v", dy) }

type recordingNarrator struct {
	mu      sync.Mutex
	updates []string
}

func (n *recordingNarrator) Update(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, text)
}

type memSink struct {
	frames     map[int][]byte
	narratives map[int]string
	err        error
}

func newMemSink() *memSink {
	return &memSink{frames: map[int][]byte{}, narratives: map[int]string{}}
}

func (s *memSink) WriteFrame(step int, png []byte) error {
	if s.err != nil {
		return s.err
	}
	s.frames[step] = png
	return nil
}

func (s *memSink) WriteNarrative(step int, text string) error {
	if s.err != nil {
		return s.err
	}
	s.narratives[step] = text
	return nil
}

type sleepLog struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (l *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	l.mu.Lock()
	l.slept = append(l.slept, d)
	l.mu.Unlock()
	return ctx.Err()
}

func testOptions(cycles int) Options {
	return Options{
		Screen:           platform.Size{Width: 16, Height: 12},
		Perception:       platform.Size{Width: 8, Height: 6},
		NarrativeSettle:  200 * time.Millisecond,
		PostAction:       500 * time.Millisecond,
		ObservePause:     time.Second,
		Backoff:          backoff.Policy{Initial: 2 * time.Second, Max: 30 * time.Second, Factor: 2},
		MaxCycles:        cycles,
		InitialNarrative: "start",
	}
}

func observe(story string) result {
	return result{d: inference.Decision{Action: inference.ActionObserve, Narrative: story, HasNarrative: story != ""}}
}

func newTestAgent(deps Deps, opts Options) (*Agent, *sleepLog) {
	a := New(deps, opts, discard())
	sl := &sleepLog{}
	a.sleep = sl.sleep
	return a, sl
}

func TestInferenceFailureKeepsNarrative(t *testing.T) {
	dec := &scriptedDecider{script: []result{
		observe("first"),
		{err: &inference.Error{Op: "request", Err: errors.New("connection refused")}},
		observe("third"),
	}}
	narr := &recordingNarrator{}
	m := metrics.New()
	var reports []Report
	opts := testOptions(3)
	opts.OnCycle = func(r Report) { reports = append(reports, r) }

	a, sl := newTestAgent(Deps{
		Capturer: &fakeCapturer{},
		Decider:  dec,
		Actuator: &recordingActuator{},
		Narrator: narr,
		Metrics:  m,
	}, opts)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if want := []string{"first", "third"}; !reflect.DeepEqual(narr.updates, want) {
		t.Errorf("Expected overlay updates %v, got %v", want, narr.updates)
	}
	if dec.calls != 3 {
		t.Errorf("Expected 3 inference calls, got %d", dec.calls)
	}
	if len(reports) != 2 || reports[0].Step != 1 || reports[1].Step != 3 {
		t.Errorf("Unexpected reports %+v", reports)
	}
	if a.Narrative() != "third" {
		t.Errorf("Expected final narrative 'third', got %q", a.Narrative())
	}

	// settle+observe, backoff, settle+observe
	want := []time.Duration{200 * time.Millisecond, time.Second, 2 * time.Second, 200 * time.Millisecond, time.Second}
	if !reflect.DeepEqual(sl.slept, want) {
		t.Errorf("Expected sleeps %v, got %v", want, sl.slept)
	}

	if got := testutil.ToFloat64(m.CycleErrorsTotal.WithLabelValues(KindInference)); got != 1 {
		t.Errorf("Expected 1 inference error, got %v", got)
	}
	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(metrics.ResultOK)); got != 2 {
		t.Errorf("Expected 2 ok cycles, got %v", got)
	}
}

func TestNarrativeStateAcrossFailure(t *testing.T) {
	dec := &scriptedDecider{script: []result{
		observe("before"),
		{err: &inference.Error{Op: "parse", Err: inference.ErrSchema}},
	}}
	a, _ := newTestAgent(Deps{
		Capturer: &fakeCapturer{},
		Decider:  dec,
		Actuator: &recordingActuator{},
	}, testOptions(2))

	_ = a.Run(context.Background())
	if a.Narrative() != "before" {
		t.Errorf("Failed cycle changed the narrative to %q", a.Narrative())
	}
}

func TestMissingNarrativeKeepsPrevious(t *testing.T) {
	dec := &scriptedDecider{script: []result{
		observe("seen"),
		{d: inference.Decision{Action: inference.ActionScroll, Delta: -240}},
	}}
	narr := &recordingNarrator{}
	act := &recordingActuator{}
	a, _ := newTestAgent(Deps{Capturer: &fakeCapturer{}, Decider: dec, Actuator: act, Narrator: narr}, testOptions(2))

	_ = a.Run(context.Background())
	if want := []string{"seen", "seen"}; !reflect.DeepEqual(narr.updates, want) {
		t.Errorf("Expected %v, got %v", want, narr.updates)
	}
	if want := []string{"scroll -240"}; !reflect.DeepEqual(act.calls, want) {
		t.Errorf("Expected %v, got %v", want, act.calls)
	}
}

func TestDispatch(t *testing.T) {
	p := coords.Point{X: 100, Y: 200}
	q := coords.Point{X: 300, Y: 400}
	tests := []struct {
		d     inference.Decision
		call  string
		pause time.Duration
	}{
		{inference.Decision{Action: inference.ActionClick, Point: p}, "click 100,200", 500 * time.Millisecond},
		{inference.Decision{Action: inference.ActionRightClick, Point: p}, "right 100,200", 500 * time.Millisecond},
		{inference.Decision{Action: inference.ActionDoubleClick, Point: p}, "double 100,200", 500 * time.Millisecond},
		{inference.Decision{Action: inference.ActionDrag, Point: p, Target: q}, "drag 100,200-300,400", 500 * time.Millisecond},
		{inference.Decision{Action: inference.ActionType, Text: "hi"}, `type "hi"`, 500 * time.Millisecond},
		{inference.Decision{Action: inference.ActionScroll, Delta: 120}, "scroll 120", 500 * time.Millisecond},
		{inference.Decision{Action: inference.ActionObserve}, "", time.Second},
		{inference.Decision{Action: "dance"}, "", time.Second},
	}
	for _, tt := range tests {
		t.Run(string(tt.d.Action), func(t *testing.T) {
			act := &recordingActuator{}
			a, sl := newTestAgent(Deps{
				Capturer: &fakeCapturer{},
				Decider:  &scriptedDecider{script: []result{{d: tt.d}}},
				Actuator: act,
			}, testOptions(1))
			_ = a.Run(context.Background())

			var want []string
			if tt.call != "" {
				want = []string{tt.call}
			}
			if !reflect.DeepEqual(act.calls, want) {
				t.Errorf("Expected calls %v, got %v", want, act.calls)
			}
			if len(sl.slept) != 2 || sl.slept[1] != tt.pause {
				t.Errorf("Expected pause %v after action, got %v", tt.pause, sl.slept)
			}
		})
	}
}

type recordingSender struct {
	batches [][]input.Event
}

func (s *recordingSender) Send(events []input.Event) (int, error) {
	s.batches = append(s.batches, append([]input.Event(nil), events...))
	return len(events), nil
}

func TestClickReachesInputStream(t *testing.T) {
	sender := &recordingSender{}
	engine := input.NewEngine(sender, coords.NewMapper(1000, 800), input.Timing{DragSteps: 1}, discard())

	dec := &scriptedDecider{script: []result{{d: inference.Decision{
		Action:       inference.ActionClick,
		Point:        coords.Point{X: 500, Y: 500},
		Narrative:    "I click the centre.",
		HasNarrative: true,
	}}}}
	opts := testOptions(1)
	opts.Screen = platform.Size{Width: 1000, Height: 800}
	a, _ := newTestAgent(Deps{Capturer: &fakeCapturer{}, Decider: dec, Actuator: engine}, opts)

	_ = a.Run(context.Background())

	want := [][]input.Event{{
		input.MoveTo(coords.DevicePoint{X: 32767, Y: 32767}),
		input.Press(input.ButtonLeft),
		input.Release(input.ButtonLeft),
	}}
	if !reflect.DeepEqual(sender.batches, want) {
		t.Errorf("Expected %v, got %v", want, sender.batches)
	}
}

func TestInputFailureIsClassified(t *testing.T) {
	act := &recordingActuator{err: &input.InjectionError{Want: 3, Got: 0}}
	m := metrics.New()
	narr := &recordingNarrator{}
	a, sl := newTestAgent(Deps{
		Capturer: &fakeCapturer{},
		Decider:  &scriptedDecider{script: []result{{d: inference.Decision{Action: inference.ActionClick, Narrative: "n", HasNarrative: true}}}},
		Actuator: act,
		Narrator: narr,
		Metrics:  m,
	}, testOptions(1))

	_ = a.Run(context.Background())
	if got := testutil.ToFloat64(m.CycleErrorsTotal.WithLabelValues(KindInput)); got != 1 {
		t.Errorf("Expected 1 input error, got %v", got)
	}
	if len(narr.updates) != 1 {
		t.Errorf("Narrative is shown before the action runs, got %v", narr.updates)
	}
	if last := sl.slept[len(sl.slept)-1]; last != 2*time.Second {
		t.Errorf("Expected backoff after failed action, got %v", sl.slept)
	}
}

func TestCaptureFailureSkipsInference(t *testing.T) {
	capt := &fakeCapturer{failAt: map[int]bool{1: true}}
	dec := &scriptedDecider{script: []result{observe("ok")}}
	m := metrics.New()
	a, _ := newTestAgent(Deps{Capturer: capt, Decider: dec, Actuator: &recordingActuator{}, Metrics: m}, testOptions(2))

	_ = a.Run(context.Background())
	if dec.calls != 1 {
		t.Errorf("Expected inference only for the second cycle, got %d calls", dec.calls)
	}
	if got := testutil.ToFloat64(m.CycleErrorsTotal.WithLabelValues(KindCapture)); got != 1 {
		t.Errorf("Expected 1 capture error, got %v", got)
	}
}

func TestArchive(t *testing.T) {
	sink := newMemSink()
	dec := &scriptedDecider{script: []result{observe("one"), observe("")}}
	a, _ := newTestAgent(Deps{Capturer: &fakeCapturer{}, Decider: dec, Actuator: &recordingActuator{}, Sink: sink}, testOptions(2))

	_ = a.Run(context.Background())
	if len(sink.frames) != 2 {
		t.Fatalf("Expected 2 archived frames, got %d", len(sink.frames))
	}
	if !reflect.DeepEqual(sink.frames[1], dec.pngs[0]) {
		t.Errorf("Archived frame differs from the one sent for inference")
	}
	if sink.narratives[1] != "one" || sink.narratives[2] != "one" {
		t.Errorf("Unexpected archived narratives %v", sink.narratives)
	}
}

func TestArchiveFailureIsNotFatal(t *testing.T) {
	sink := newMemSink()
	sink.err = errors.New("disk full")
	m := metrics.New()
	dec := &scriptedDecider{script: []result{observe("fine")}}
	a, _ := newTestAgent(Deps{Capturer: &fakeCapturer{}, Decider: dec, Actuator: &recordingActuator{}, Sink: sink, Metrics: m}, testOptions(1))

	_ = a.Run(context.Background())
	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Errorf("Expected the cycle to succeed, got %v ok cycles", got)
	}
	if got := testutil.ToFloat64(m.CycleErrorsTotal.WithLabelValues(KindArchive)); got != 2 {
		t.Errorf("Expected 2 archive errors, got %v", got)
	}
}

func TestFramesAreDownsampled(t *testing.T) {
	dec := &scriptedDecider{script: []result{observe("x")}}
	a, _ := newTestAgent(Deps{Capturer: &fakeCapturer{}, Decider: dec, Actuator: &recordingActuator{}}, testOptions(1))
	_ = a.Run(context.Background())

	png := dec.pngs[0]
	// IHDR width and height follow the 8-byte signature and chunk header
	w := int(png[16])<<24 | int(png[17])<<16 | int(png[18])<<8 | int(png[19])
	h := int(png[20])<<24 | int(png[21])<<16 | int(png[22])<<8 | int(png[23])
	if w != 8 || h != 6 {
		t.Errorf("Expected an 8x6 image, got %dx%d", w, h)
	}
}

func TestPauseAndQuit(t *testing.T) {
	capt := &fakeCapturer{}
	a, _ := newTestAgent(Deps{
		Capturer: capt,
		Decider:  &scriptedDecider{script: []result{observe("x")}},
		Actuator: &recordingActuator{},
	}, testOptions(0))

	a.Pause()
	done := make(chan struct{})
	go func() {
		_ = a.Run(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	a.Quit()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Quit")
	}
	if capt.calls != 0 {
		t.Errorf("Paused agent captured %d frames", capt.calls)
	}
}

func TestResumeAfterPause(t *testing.T) {
	capt := &fakeCapturer{}
	a, _ := newTestAgent(Deps{
		Capturer: capt,
		Decider:  &scriptedDecider{script: []result{observe("x")}},
		Actuator: &recordingActuator{},
	}, testOptions(1))

	a.TogglePause()
	if !a.Paused() {
		t.Fatal("Expected paused")
	}
	done := make(chan struct{})
	go func() {
		_ = a.Run(context.Background())
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	a.TogglePause()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not finish after Resume")
	}
	if capt.calls != 1 {
		t.Errorf("Expected one capture, got %d", capt.calls)
	}
}

func TestCancelledContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	capt := &fakeCapturer{}
	a, _ := newTestAgent(Deps{Capturer: capt, Decider: &scriptedDecider{script: []result{observe("x")}}, Actuator: &recordingActuator{}}, testOptions(0))
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if capt.calls != 0 {
		t.Errorf("Expected no cycles, got %d", capt.calls)
	}
}

type cancellingDecider struct {
	cancel context.CancelFunc
	d      inference.Decision
	ctxErr error
}

func (c *cancellingDecider) Decide(ctx context.Context, _ []byte) (inference.Decision, error) {
	c.cancel()
	c.ctxErr = ctx.Err()
	return c.d, nil
}

func TestInterruptDuringInferenceCompletesCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dec := &cancellingDecider{cancel: cancel, d: inference.Decision{
		Action:       inference.ActionClick,
		Narrative:    "n",
		HasNarrative: true,
		Point:        coords.Point{X: 500, Y: 500},
	}}
	act := &recordingActuator{}
	var reports []Report
	opts := testOptions(0)
	opts.OnCycle = func(r Report) { reports = append(reports, r) }
	a, sl := newTestAgent(Deps{Capturer: &fakeCapturer{}, Decider: dec, Actuator: act}, opts)

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if dec.ctxErr != nil {
		t.Errorf("Expected inference to run uncancelled, got %v", dec.ctxErr)
	}
	if want := []string{"click 500,500"}; !reflect.DeepEqual(act.calls, want) {
		t.Errorf("Expected actuator calls %v, got %v", want, act.calls)
	}
	if want := []time.Duration{200 * time.Millisecond, 500 * time.Millisecond}; !reflect.DeepEqual(sl.slept, want) {
		t.Errorf("Expected pauses %v, got %v", want, sl.slept)
	}
	if len(reports) != 1 || reports[0].Action != inference.ActionClick {
		t.Errorf("Expected one click report, got %+v", reports)
	}
	if a.Narrative() != "n" {
		t.Errorf("Expected narrative %q, got %q", "n", a.Narrative())
	}
}

func TestQuitDuringInferenceCompletesCycle(t *testing.T) {
	act := &recordingActuator{}
	var a *Agent
	dec := &quittingDecider{quit: func() { a.Quit() }}
	a, _ = newTestAgent(Deps{Capturer: &fakeCapturer{}, Decider: dec, Actuator: act}, testOptions(0))

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := []string{`type "hi"`}; !reflect.DeepEqual(act.calls, want) {
		t.Errorf("Expected actuator calls %v, got %v", want, act.calls)
	}
}

type quittingDecider struct {
	quit func()
}

func (q *quittingDecider) Decide(context.Context, []byte) (inference.Decision, error) {
	q.quit()
	return inference.Decision{Action: inference.ActionType, Text: "hi"}, nil
}

func TestNarrativeReadableDuringRun(t *testing.T) {
	a, _ := newTestAgent(Deps{
		Capturer: &fakeCapturer{},
		Decider:  &scriptedDecider{script: []result{observe("a"), observe("b")}},
		Actuator: &recordingActuator{},
	}, testOptions(50))

	done := make(chan struct{})
	go func() {
		_ = a.Run(context.Background())
		close(done)
	}()
	for {
		select {
		case <-done:
			if got := a.Narrative(); got != "b" {
				t.Errorf("Expected final narrative %q, got %q", "b", got)
			}
			return
		default:
			_ = a.Narrative()
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&capture.Error{Step: "GetDC", Err: errors.New("x")}, KindCapture},
		{fmt.Errorf("wrap: %w", imaging.ErrEncoding), KindEncode},
		{imaging.ErrFrameSize, KindEncode},
		{&inference.Error{Op: "request", Err: errors.New("x")}, KindInference},
		{fmt.Errorf("click: %w", &input.InjectionError{Want: 3, Got: 1}), KindInput},
		{errors.New("mystery"), KindUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
