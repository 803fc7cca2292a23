package agent

import "context"

// Pause stops new cycles from starting. The cycle in flight completes.
func (a *Agent) Pause() {
	if !a.paused.Swap(true) {
		a.log.Info("paused")
	}
}

// Resume lets cycles start again.
func (a *Agent) Resume() {
	if a.paused.Swap(false) {
		a.log.Info("resumed")
		select {
		case a.wake <- struct{}{}:
		default:
		}
	}
}

// TogglePause flips between paused and running.
func (a *Agent) TogglePause() {
	if a.Paused() {
		a.Resume()
	} else {
		a.Pause()
	}
}

// Paused reports whether new cycles are held back.
func (a *Agent) Paused() bool {
	return a.paused.Load()
}

// Quit ends Run after the current cycle. Calling it before Run makes Run return at once.
func (a *Agent) Quit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quit = true
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *Agent) waitWhilePaused(ctx context.Context) error {
	for a.paused.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.wake:
		}
	}
	return ctx.Err()
}
