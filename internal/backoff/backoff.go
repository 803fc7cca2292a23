// Package backoff spaces out retries after consecutive failed cycles.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines exponential backoff with jitter.
type Policy struct {
	Initial time.Duration
	Max     time.Duration
	// Factor multiplies the delay after each consecutive failure.
	Factor float64
	// Jitter is the fraction (0 to 1) of random extra delay.
	Jitter float64
}

// DefaultPolicy waits 2s after the first failure, doubling up to 30s.
func DefaultPolicy() Policy {
	return Policy{
		Initial: 2 * time.Second,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay returns min(Max, Initial*Factor^(attempt-1) * (1 + Jitter*r)).
// Attempts start at 1 and r must lie in [0,1).
func (p Policy) Delay(attempt int, r float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	base := float64(p.Initial) * math.Pow(factor, exp)
	total := base + base*p.Jitter*r
	if p.Max > 0 {
		total = math.Min(float64(p.Max), total)
	}
	return time.Duration(math.Round(total))
}

// Tracker counts consecutive failures and yields the next delay.
// It is not safe for concurrent use.
type Tracker struct {
	policy   Policy
	attempts int
	rand     func() float64
}

// NewTracker returns a tracker with no recorded failures.
func NewTracker(p Policy) *Tracker {
	return &Tracker{policy: p, rand: rand.Float64} // #nosec G404 -- jitter only
}

// Failure records a failure and returns how long to wait before retrying.
func (t *Tracker) Failure() time.Duration {
	t.attempts++
	return t.policy.Delay(t.attempts, t.rand())
}

// Success clears the failure streak.
func (t *Tracker) Success() {
	t.attempts = 0
}

// Attempts returns the length of the current failure streak.
func (t *Tracker) Attempts() int {
	return t.attempts
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
