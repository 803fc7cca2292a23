package input

import (
	"log/slog"
	"math"
	"time"
	"unicode/utf16"

	"franz/internal/coords"
)

// Timing holds the empirical pauses between and after gestures.
type Timing struct {
	// Settle is slept after every gesture so the OS can process it.
	Settle time.Duration
	// DoubleClickGap separates the two clicks of a double click.
	DoubleClickGap time.Duration
	// DragSteps is the number of interpolated moves in a drag.
	DragSteps int
	// DragStepDelay separates consecutive drag moves.
	DragStepDelay time.Duration
}

// DefaultTiming returns the pauses the agent was tuned with.
func DefaultTiming() Timing {
	return Timing{
		Settle:         50 * time.Millisecond,
		DoubleClickGap: 50 * time.Millisecond,
		DragSteps:      10,
		DragStepDelay:  20 * time.Millisecond,
	}
}

// Engine turns gestures at normalized positions into event batches.
type Engine struct {
	sender Sender
	mapper coords.Mapper
	timing Timing
	log    *slog.Logger
	sleep  func(time.Duration)
}

// NewEngine returns an engine targeting the display described by mapper.
func NewEngine(sender Sender, mapper coords.Mapper, timing Timing, logger *slog.Logger) *Engine {
	if timing.DragSteps < 1 {
		timing.DragSteps = 1
	}
	return &Engine{
		sender: sender,
		mapper: mapper,
		timing: timing,
		log:    logger.With("component", "input"),
		sleep:  time.Sleep,
	}
}

// send injects one batch and checks that the OS accepted all of it.
func (e *Engine) send(events ...Event) error {
	n, err := e.sender.Send(events)
	if err != nil || n != len(events) {
		return &InjectionError{Want: len(events), Got: n, Err: err}
	}
	return nil
}

func (e *Engine) settle() {
	e.sleep(e.timing.Settle)
}

// Click moves to p and clicks the left button in a single batch.
func (e *Engine) Click(p coords.Point) error {
	return e.clickWith(ButtonLeft, p)
}

// RightClick moves to p and clicks the right button in a single batch.
func (e *Engine) RightClick(p coords.Point) error {
	return e.clickWith(ButtonRight, p)
}

func (e *Engine) clickWith(b Button, p coords.Point) error {
	at := e.mapper.Map(p)
	e.log.Debug("click", "button", b, "x", at.X, "y", at.Y)
	if err := e.send(MoveTo(at), Press(b), Release(b)); err != nil {
		return err
	}
	e.settle()
	return nil
}

// DoubleClick clicks at p, pauses, then clicks again without moving.
func (e *Engine) DoubleClick(p coords.Point) error {
	at := e.mapper.Map(p)
	e.log.Debug("double click", "x", at.X, "y", at.Y)
	if err := e.send(MoveTo(at), Press(ButtonLeft), Release(ButtonLeft)); err != nil {
		return err
	}
	e.sleep(e.timing.DoubleClickGap)
	if err := e.send(Press(ButtonLeft), Release(ButtonLeft)); err != nil {
		return err
	}
	e.settle()
	return nil
}

// Drag presses the left button at from, moves to to in DragSteps
// interpolated steps and releases. If a move fails after the press, a
// release is still attempted so the button is not left held down.
func (e *Engine) Drag(from, to coords.Point) error {
	start, end := e.mapper.Map(from), e.mapper.Map(to)
	e.log.Debug("drag", "from_x", start.X, "from_y", start.Y, "to_x", end.X, "to_y", end.Y)

	if err := e.send(MoveTo(start), Press(ButtonLeft)); err != nil {
		return err
	}
	e.sleep(e.timing.DragStepDelay)

	steps := e.timing.DragSteps
	for i := 1; i <= steps; i++ {
		at := coords.Lerp(start, end, float64(i)/float64(steps))
		if err := e.send(MoveTo(at)); err != nil {
			if rerr := e.send(Release(ButtonLeft)); rerr != nil {
				e.log.Warn("release after failed drag", "error", rerr)
			}
			return err
		}
		e.sleep(e.timing.DragStepDelay)
	}

	if err := e.send(Release(ButtonLeft)); err != nil {
		return err
	}
	e.settle()
	return nil
}

// TypeText types text as Unicode key presses, one down/up pair per UTF-16
// code unit. Characters outside the BMP become two surrogate units.
func (e *Engine) TypeText(text string) error {
	if text == "" {
		return nil
	}
	units := utf16.Encode([]rune(text))
	events := make([]Event, 0, 2*len(units))
	for _, u := range units {
		events = append(events, KeyDown(u), KeyUp(u))
	}
	e.log.Debug("type", "units", len(units))
	if err := e.send(events...); err != nil {
		return err
	}
	e.settle()
	return nil
}

// ScrollTicks returns the number of wheel detents and their direction for a
// scroll amount: max(1, round(|dy|/120)) detents, upward only when dy > 0.
func ScrollTicks(dy float64) (ticks, direction int) {
	ticks = int(math.Round(math.Abs(dy) / WheelDelta))
	if ticks < 1 {
		ticks = 1
	}
	direction = -1
	if dy > 0 {
		direction = 1
	}
	return ticks, direction
}

// Scroll rotates the wheel by dy notional units.
func (e *Engine) Scroll(dy float64) error {
	ticks, dir := ScrollTicks(dy)
	events := make([]Event, ticks)
	for i := range events {
		events[i] = WheelTick(dir)
	}
	e.log.Debug("scroll", "ticks", ticks, "direction", dir)
	if err := e.send(events...); err != nil {
		return err
	}
	e.settle()
	return nil
}
