//go:build !windows

package hotkey

func (m *Manager) startPlatform() error {
	m.log.Warn("global hotkeys not supported on this platform")
	return nil
}

func (m *Manager) stopPlatform() {}
