package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager owns the config file. All reads go through Get which returns the
// last committed config; Save validates, rewrites the whole file and commits.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	// Updated receives a signal after an external edit was reloaded.
	Updated chan bool
}

func NewManager(path string) *Manager {
	return &Manager{
		path:    path,
		cfg:     Default(),
		Updated: make(chan bool, 1),
	}
}

// Load reads and commits the config file. A missing file commits defaults; a
// malformed file returns an error and leaves the previous config in place.
func (m *Manager) Load() (*Config, error) {
	cfg, err := m.parse()
	if err != nil {
		if os.IsNotExist(err) {
			cfg = Default()
			m.commit(cfg)
			return cfg, nil
		}
		return nil, err
	}
	m.commit(cfg)
	return cfg, nil
}

func (m *Manager) parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}

	// Start from defaults so absent keys keep their default values.
	cfg := Default()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", m.path, err)
	}
	if cfg.Priorities == nil {
		cfg.Priorities = map[string]int{}
	}
	return cfg, nil
}

func (m *Manager) commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Get returns the committed config. Callers must treat it as read-only and go
// through Save for mutations.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Save validates, writes the whole document and commits it. The write goes
// through a temp file so a crash mid-write cannot corrupt the previous file.
func (m *Manager) Save(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}

	m.commit(cfg)
	return nil
}

// Validate rejects values the forms would refuse. Priorities are clamped
// rather than rejected since stale card names carry no risk.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	for _, tr := range []struct {
		name string
		t    Trigger
	}{
		{"auto_start", cfg.Schedule.AutoStart},
		{"scheduled_start", cfg.Schedule.ScheduledStart},
		{"scheduled_pause", cfg.Schedule.ScheduledPause},
		{"scheduled_resume", cfg.Schedule.ScheduledResume},
	} {
		if err := validateTime(tr.t.At); err != nil {
			return fmt.Errorf("invalid %s time: %w", tr.name, err)
		}
	}
	if cfg.Schedule.InactivityThresholdSec < 0 {
		return errors.New("inactivity threshold must not be negative")
	}
	if cfg.UI.WindowOpacity < 0.1 || cfg.UI.WindowOpacity > 1.0 {
		return fmt.Errorf("window opacity %.2f out of range [0.1, 1.0]", cfg.UI.WindowOpacity)
	}
	if cfg.Timing.DragDurationMs < 0 || cfg.Timing.ActionDelayMs < 0 {
		return errors.New("timing values must not be negative")
	}
	for name, p := range cfg.Priorities {
		cfg.Priorities[name] = ClampPriority(p)
	}
	return nil
}

func validateTime(t TimeOfDay) error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("hour %d out of range", t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("minute %d out of range", t.Minute)
	}
	if t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("second %d out of range", t.Second)
	}
	return nil
}

// Watch reloads the config when the file is edited outside the app and
// signals Updated. Runs until the watcher fails.
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != m.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := m.parse()
			if err != nil {
				slog.Warn("ignoring config reload after bad edit", "path", m.path, "error", err)
				continue
			}
			if err := Validate(cfg); err != nil {
				slog.Warn("ignoring config reload after invalid edit", "path", m.path, "error", err)
				continue
			}
			m.commit(cfg)
			slog.Info("config reloaded from external edit", "path", m.path)
			select {
			case m.Updated <- true:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
