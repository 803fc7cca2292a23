// Package hotkey watches the physical keyboard for operator hotkeys.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"franz/internal/platform"
)

// ErrInvalidCombo is returned for hotkey strings naming unknown keys.
var ErrInvalidCombo = errors.New("invalid hotkey")

var aliases = map[string]string{
	"CONTROL": "CTRL",
	"ESCAPE":  "ESC",
	"RETURN":  "ENTER",
	"WIN":     "CMD",
	"SUPER":   "CMD",
	"DEL":     "DELETE",
}

// Manager matches key state against registered combos. Callbacks run on
// their own goroutine, once per press of the combo's last key.
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // keys currently held

	b   *platform.Binding
	log *slog.Logger

	// set by the platform hook while it runs
	threadID uint32
	done     chan struct{}
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "P"]
	original string
	callback func()
}

// NewManager creates a new hotkey manager
func NewManager(b *platform.Binding, logger *slog.Logger) *Manager {
	return &Manager{
		currentState: make(map[string]bool),
		b:            b,
		log:          logger.With("component", "hotkey"),
	}
}

// ParseCombo splits "Ctrl+Alt+P" into canonical key names.
func ParseCombo(combo string) ([]string, error) {
	if strings.TrimSpace(combo) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCombo)
	}
	raw := strings.Split(strings.ToUpper(combo), "+")
	parts := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if a, ok := aliases[p]; ok {
			p = a
		}
		if !knownKey(p) {
			return nil, fmt.Errorf("%w: unknown key %q in %q", ErrInvalidCombo, p, combo)
		}
		if !seen[p] {
			seen[p] = true
			parts = append(parts, p)
		}
	}
	return parts, nil
}

// Register adds a combo such as "Ctrl+Alt+Shift+Esc". An empty combo is ignored.
func (m *Manager) Register(combo string, callback func()) error {
	if combo == "" {
		return nil
	}
	parts, err := ParseCombo(combo)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: combo,
		callback: callback,
	})
	return nil
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// UpdateState records a key transition and fires combos completed by it.
// Auto-repeat downs of an already held key do not fire again.
func (m *Manager) UpdateState(key string, isDown bool) {
	key = strings.ToUpper(key)

	m.mu.Lock()
	wasDown := m.currentState[key]
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown && !wasDown {
		m.checkMatches(key)
	}
}

func (m *Manager) checkMatches(pressed string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		involved := false
		match := true
		for _, part := range hk.parts {
			if part == pressed {
				involved = true
			}
			if !m.currentState[part] {
				match = false
				break
			}
		}
		if match && involved {
			m.log.Info("hotkey triggered", "hotkey", hk.original)
			go hk.callback()
		}
	}
}

// Start installs the platform keyboard hook.
func (m *Manager) Start() error {
	return m.startPlatform()
}

// Stop removes the hook and waits for its thread to exit.
func (m *Manager) Stop() {
	m.stopPlatform()
}

func knownKey(k string) bool {
	switch k {
	case "CTRL", "ALT", "SHIFT", "CMD", "SPACE", "ENTER", "ESC", "BACKSPACE", "TAB",
		"CAPSLOCK", "PAGEUP", "PAGEDOWN", "END", "HOME", "LEFT", "UP", "RIGHT", "DOWN",
		"PRINTSCREEN", "INSERT", "DELETE", "PAUSE", "SCROLLLOCK":
		return true
	}
	if len(k) == 1 && (k[0] >= 'A' && k[0] <= 'Z' || k[0] >= '0' && k[0] <= '9') {
		return true
	}
	var n int
	if _, err := fmt.Sscanf(k, "F%d", &n); err == nil && n >= 1 && n <= 12 && k == fmt.Sprintf("F%d", n) {
		return true
	}
	return false
}
