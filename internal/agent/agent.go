// Package agent runs the perception-action cycle: capture the screen, ask
// the model, show its narrative and perform its action.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"franz/internal/backoff"
	"franz/internal/coords"
	"franz/internal/imaging"
	"franz/internal/inference"
	"franz/internal/metrics"
	"franz/internal/platform"
)

// Capturer grabs the physical screen as a BGRA frame.
type Capturer interface {
	Capture(width, height int) (imaging.Frame, error)
}

// Decider turns an encoded frame into the next action.
type Decider interface {
	Decide(ctx context.Context, png []byte) (inference.Decision, error)
}

// Actuator performs gestures at normalized positions.
type Actuator interface {
	Click(p coords.Point) error
	RightClick(p coords.Point) error
	DoubleClick(p coords.Point) error
	Drag(from, to coords.Point) error
	TypeText(text string) error
	Scroll(dy float64) error
}

// Narrator displays the current narrative.
type Narrator interface {
	Update(text string)
}

// FrameSink archives each cycle's frame and narrative.
type FrameSink interface {
	WriteFrame(step int, png []byte) error
	WriteNarrative(step int, text string) error
}

// Deps are the collaborators of an Agent. Narrator, Sink and Metrics are optional.
type Deps struct {
	Capturer Capturer
	Decider  Decider
	Actuator Actuator
	Narrator Narrator
	Sink     FrameSink
	Metrics  *metrics.Metrics
}

// Options tune the loop.
type Options struct {
	// Screen is the physical capture size; Perception is what the model sees.
	Screen     platform.Size
	Perception platform.Size

	NarrativeSettle time.Duration
	PostAction      time.Duration
	ObservePause    time.Duration
	Backoff         backoff.Policy

	// MaxCycles stops the loop after that many cycles; 0 runs until cancelled.
	MaxCycles int

	InitialNarrative string

	// OnCycle is called after every successful cycle.
	OnCycle func(Report)
}

// Report summarizes one successful cycle.
type Report struct {
	Step      int
	Action    inference.Action
	Narrative string
	Duration  time.Duration
}

// Agent owns the narrative and drives the cycle. Run must not be called
// concurrently; Narrative, Pause, Resume and Quit may be called from any goroutine.
type Agent struct {
	deps Deps
	opts Options
	log  *slog.Logger

	step    int
	tracker *backoff.Tracker

	paused atomic.Bool
	wake   chan struct{}

	mu        sync.Mutex
	narrative string
	cancel    context.CancelFunc
	quit      bool

	sleep func(ctx context.Context, d time.Duration) error
}

// New returns an agent that starts from opts.InitialNarrative.
func New(deps Deps, opts Options, logger *slog.Logger) *Agent {
	if deps.Narrator == nil {
		deps.Narrator = nopNarrator{}
	}
	if opts.Backoff == (backoff.Policy{}) {
		opts.Backoff = backoff.DefaultPolicy()
	}
	return &Agent{
		deps:      deps,
		opts:      opts,
		log:       logger.With("component", "agent"),
		narrative: opts.InitialNarrative,
		tracker:   backoff.NewTracker(opts.Backoff),
		wake:      make(chan struct{}, 1),
		sleep:     backoff.Sleep,
	}
}

// Narrative returns the current narrative. Safe to call while Run is active.
func (a *Agent) Narrative() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.narrative
}

// Run loops until ctx is cancelled, Quit is called or MaxCycles is reached.
// Per-cycle failures are logged and followed by a backoff; they never end the loop.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	if a.quit {
		a.mu.Unlock()
		return nil
	}
	a.cancel = cancel
	a.mu.Unlock()

	a.log.Info("agent started",
		"screen", fmt.Sprintf("%dx%d", a.opts.Screen.Width, a.opts.Screen.Height),
		"perception", fmt.Sprintf("%dx%d", a.opts.Perception.Width, a.opts.Perception.Height),
		"max_cycles", a.opts.MaxCycles,
	)

	for {
		if err := a.waitWhilePaused(ctx); err != nil {
			break
		}
		if a.opts.MaxCycles > 0 && a.step >= a.opts.MaxCycles {
			a.log.Info("cycle limit reached", "cycles", a.step)
			break
		}

		a.step++
		start := time.Now()
		report, err := a.cycle(ctx, a.step)
		elapsed := time.Since(start)
		if err != nil {
			kind := Classify(err)
			a.deps.Metrics.CycleFailed(kind, elapsed)
			delay := a.tracker.Failure()
			a.log.Error("cycle failed",
				"cycle", a.step,
				"kind", kind,
				"error", err,
				"retry_in", delay,
			)
			if a.sleep(ctx, delay) != nil {
				break
			}
			continue
		}

		a.tracker.Success()
		a.deps.Metrics.CycleDone(elapsed)
		report.Duration = elapsed
		if a.opts.OnCycle != nil {
			a.opts.OnCycle(report)
		}
		if ctx.Err() != nil {
			break
		}
	}

	a.log.Info("agent stopped", "cycles", a.step)
	return nil
}

// cycle runs one capture-decide-act pass. A failure before the decision
// leaves the narrative untouched. Once started, a cycle runs to completion:
// cancellation of ctx is only observed by Run between cycles.
func (a *Agent) cycle(ctx context.Context, step int) (Report, error) {
	ctx = context.WithoutCancel(ctx)
	frame, err := a.deps.Capturer.Capture(a.opts.Screen.Width, a.opts.Screen.Height)
	if err != nil {
		return Report{}, err
	}
	small, err := imaging.Downsample(frame, a.opts.Perception.Width, a.opts.Perception.Height)
	if err != nil {
		return Report{}, fmt.Errorf("%w: downsample: %w", imaging.ErrEncoding, err)
	}
	png, err := imaging.EncodePNG(small)
	if err != nil {
		return Report{}, err
	}
	if a.deps.Sink != nil {
		if err := a.deps.Sink.WriteFrame(step, png); err != nil {
			a.deps.Metrics.StageFailed(KindArchive)
			a.log.Warn("archive frame failed", "cycle", step, "error", err)
		}
	}

	// The client timeout bounds the request.
	inferStart := time.Now()
	decision, err := a.deps.Decider.Decide(ctx, png)
	a.deps.Metrics.Inference(time.Since(inferStart))
	if err != nil {
		return Report{}, err
	}

	a.mu.Lock()
	if decision.HasNarrative {
		a.narrative = decision.Narrative
	}
	narrative := a.narrative
	a.mu.Unlock()

	a.deps.Narrator.Update(narrative)
	if a.deps.Sink != nil {
		if err := a.deps.Sink.WriteNarrative(step, narrative); err != nil {
			a.deps.Metrics.StageFailed(KindArchive)
			a.log.Warn("archive narrative failed", "cycle", step, "error", err)
		}
	}

	report := Report{Step: step, Action: decision.Action, Narrative: narrative}
	a.deps.Metrics.Action(actionLabel(decision.Action))
	a.log.Info("cycle",
		"cycle", step,
		"action", decision.Action,
		"png_bytes", len(png),
		"narrative", narrative,
	)

	_ = a.sleep(ctx, a.opts.NarrativeSettle)

	acted, err := a.dispatch(decision)
	if err != nil {
		return report, err
	}
	pause := a.opts.ObservePause
	if acted {
		pause = a.opts.PostAction
	}
	_ = a.sleep(ctx, pause)
	return report, nil
}

// dispatch performs the decision's gesture. It reports false for
// observation, including action names outside the catalogue.
func (a *Agent) dispatch(d inference.Decision) (bool, error) {
	act := a.deps.Actuator
	var err error
	switch d.Action {
	case inference.ActionClick:
		err = act.Click(d.Point)
	case inference.ActionRightClick:
		err = act.RightClick(d.Point)
	case inference.ActionDoubleClick:
		err = act.DoubleClick(d.Point)
	case inference.ActionDrag:
		err = act.Drag(d.Point, d.Target)
	case inference.ActionType:
		err = act.TypeText(d.Text)
	case inference.ActionScroll:
		err = act.Scroll(d.Delta)
	case inference.ActionObserve:
		return false, nil
	default:
		a.log.Warn("unknown action treated as observation", "action", d.Action)
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("%s: %w", d.Action, err)
	}
	return true, nil
}

func actionLabel(a inference.Action) string {
	if a.Known() {
		return string(a)
	}
	return "unknown"
}

type nopNarrator struct{}

func (nopNarrator) Update(string) {}
