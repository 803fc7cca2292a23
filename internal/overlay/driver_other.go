//go:build !windows

package overlay

import "franz/internal/platform"

// headless keeps the lifecycle but draws nothing. The agent still logs the
// narrative, so nothing is lost on platforms without a native window.
type headless struct{}

func newDriver(_ *platform.Binding) driver { return headless{} }

func (headless) create(Options) error { return nil }

func (headless) pump(stop <-chan struct{}) { <-stop }

func (headless) setText(string) error { return nil }

func (headless) destroy() {}
