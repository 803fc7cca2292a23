// Package config provides configuration management for the agent.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides inference.api_key when the file leaves it empty.
const APIKeyEnv = "FRANZ_API_KEY"

// Config represents the application configuration
type Config struct {
	Inference  InferenceConfig  `yaml:"inference"`
	Perception PerceptionConfig `yaml:"perception"`
	Timing     TimingConfig     `yaml:"timing"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Control    ControlConfig    `yaml:"control"`
}

// InferenceConfig describes the OpenAI-compatible vision endpoint
type InferenceConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key,omitempty"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`

	// SystemPrompt replaces the built-in persona when set
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}

// PerceptionConfig is the size of the image the model sees
type PerceptionConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TimingConfig holds every pause of the cycle
type TimingConfig struct {
	ActionSettle        time.Duration `yaml:"action_settle"`
	DoubleClickGap      time.Duration `yaml:"double_click_gap"`
	DragSteps           int           `yaml:"drag_steps"`
	DragStepDelay       time.Duration `yaml:"drag_step_delay"`
	NarrativeSettle     time.Duration `yaml:"narrative_settle"`
	PostAction          time.Duration `yaml:"post_action"`
	ObservePause        time.Duration `yaml:"observe_pause"`
	ErrorBackoffInitial time.Duration `yaml:"error_backoff_initial"`
	ErrorBackoffMax     time.Duration `yaml:"error_backoff_max"`
}

// OverlayConfig places and styles the narrative window
type OverlayConfig struct {
	Enabled bool `yaml:"enabled"`

	// Layout is "full", "half" or "panel"; X/Y/Width/Height apply to panel
	Layout string `yaml:"layout"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	Font        string `yaml:"font"`
	FontSize    int    `yaml:"font_size"`
	Background  string `yaml:"background"`
	InitialText string `yaml:"initial_text"`

	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	StopTimeout  time.Duration `yaml:"stop_timeout"`
}

// ArchiveConfig controls the per-run frame dump
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// ControlConfig holds the operator's ways to stop or pause the agent
type ControlConfig struct {
	// StopHotkey ends the run (e.g. "Ctrl+Alt+Shift+Esc")
	StopHotkey string `yaml:"stop_hotkey"`

	// PauseHotkey toggles pause (e.g. "Ctrl+Alt+P")
	PauseHotkey string `yaml:"pause_hotkey"`

	// Tray shows a system tray menu with Pause/Resume/Quit
	Tray bool `yaml:"tray"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Inference: InferenceConfig{
			BaseURL:     "http://localhost:1234/v1",
			Model:       "qwen3-vl-2b-instruct",
			Temperature: 1.0,
			MaxTokens:   300,
			Timeout:     120 * time.Second,
		},
		Perception: PerceptionConfig{Width: 1536, Height: 864},
		Timing: TimingConfig{
			ActionSettle:        50 * time.Millisecond,
			DoubleClickGap:      50 * time.Millisecond,
			DragSteps:           10,
			DragStepDelay:       20 * time.Millisecond,
			NarrativeSettle:     200 * time.Millisecond,
			PostAction:          500 * time.Millisecond,
			ObservePause:        time.Second,
			ErrorBackoffInitial: 2 * time.Second,
			ErrorBackoffMax:     30 * time.Second,
		},
		Overlay: OverlayConfig{
			Enabled:      true,
			Layout:       "panel",
			X:            1400,
			Y:            200,
			Width:        480,
			Height:       600,
			Font:         "Consolas",
			FontSize:     16,
			Background:   "#1E1E1E",
			InitialText:  "FRANZ awakens. The screen before him is unknown. He watches and waits.",
			ReadyTimeout: 2 * time.Second,
			StopTimeout:  time.Second,
		},
		Archive: ArchiveConfig{Enabled: true, Dir: "dump"},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
		Control: ControlConfig{
			StopHotkey:  "Ctrl+Alt+Shift+Esc",
			PauseHotkey: "Ctrl+Alt+P",
			Tray:        true,
		},
	}
}

// Validate reports every invalid field, joined.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, field, msg string) {
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %s", field, msg))
		}
	}

	check(strings.TrimSpace(c.Inference.BaseURL) != "", "inference.base_url", "must not be empty")
	check(strings.TrimSpace(c.Inference.Model) != "", "inference.model", "must not be empty")
	check(c.Inference.Temperature >= 0 && c.Inference.Temperature <= 2, "inference.temperature", "must be within [0,2]")
	check(c.Inference.MaxTokens > 0, "inference.max_tokens", "must be positive")
	check(c.Inference.Timeout > 0, "inference.timeout", "must be positive")

	check(c.Perception.Width > 0, "perception.width", "must be positive")
	check(c.Perception.Height > 0, "perception.height", "must be positive")

	t := c.Timing
	check(t.DragSteps >= 1, "timing.drag_steps", "must be at least 1")
	for field, d := range map[string]time.Duration{
		"timing.action_settle":    t.ActionSettle,
		"timing.double_click_gap": t.DoubleClickGap,
		"timing.drag_step_delay":  t.DragStepDelay,
		"timing.narrative_settle": t.NarrativeSettle,
		"timing.post_action":      t.PostAction,
		"timing.observe_pause":    t.ObservePause,
	} {
		check(d >= 0, field, "must not be negative")
	}
	check(t.ErrorBackoffInitial > 0, "timing.error_backoff_initial", "must be positive")
	check(t.ErrorBackoffMax >= t.ErrorBackoffInitial, "timing.error_backoff_max", "must not be below error_backoff_initial")

	if c.Overlay.Enabled {
		switch c.Overlay.Layout {
		case "full", "half":
		case "panel":
			check(c.Overlay.Width > 0 && c.Overlay.Height > 0, "overlay.width", "panel needs a positive width and height")
		default:
			errs = append(errs, fmt.Errorf("overlay.layout: unsupported value %q", c.Overlay.Layout))
		}
		check(c.Overlay.FontSize > 0, "overlay.font_size", "must be positive")
		check(c.Overlay.ReadyTimeout > 0, "overlay.ready_timeout", "must be positive")
		check(c.Overlay.StopTimeout > 0, "overlay.stop_timeout", "must be positive")
	}

	if c.Archive.Enabled {
		check(strings.TrimSpace(c.Archive.Dir) != "", "archive.dir", "must not be empty when archive is enabled")
	}

	return errors.Join(errs...)
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	log        *slog.Logger
}

// NewManager creates a configuration manager for path. An empty path
// resolves to config.yaml in the per-user configuration directory.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if strings.TrimSpace(path) == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
		log:        logger.With("component", "config"),
	}, nil
}

// DefaultPath returns the path to the configuration file
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "franz")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "franz")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "franz")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "franz")
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// Path returns the file the manager reads and writes.
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk over the defaults and validates it.
// A missing file leaves the defaults in place.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := DefaultConfig()
	data, err := os.ReadFile(m.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m.log.Debug("no config file, using defaults", "path", m.configPath)
	case err != nil:
		return fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", m.configPath, err)
		}
	}

	if cfg.Inference.APIKey == "" {
		cfg.Inference.APIKey = os.Getenv(APIKeyEnv)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}
	m.config = cfg
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return err
	}

	m.log.Info("saving configuration", "path", m.configPath, "bytes", len(data))
	return os.WriteFile(m.configPath, data, 0o600)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set replaces the configuration after validating it
func (m *Manager) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}
