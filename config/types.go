// Package config persists the automation configuration as a single JSON
// document that is read on startup and rewritten wholesale on every save.
package config

// TimeOfDay is a wall-clock trigger time. Second is only honored by the
// auto-start trigger; the scheduled triggers compare hour and minute.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// Trigger is one schedule entry with its enable flag.
type Trigger struct {
	Enabled bool      `json:"enabled"`
	At      TimeOfDay `json:"at"`
}

// Repeat controls which days the scheduled triggers may fire. Daily overrides
// the other two flags. With Daily false, either Weekdays (Mon-Fri) or Weekend
// (Sat-Sun) must match today; neither flag set suppresses the trigger.
type Repeat struct {
	Daily    bool `json:"daily"`
	Weekdays bool `json:"weekdays"`
	Weekend  bool `json:"weekend"`
}

// Schedule groups all time-based triggers consumed by the coordinator.
type Schedule struct {
	AutoStart       Trigger `json:"auto_start"`
	ScheduledStart  Trigger `json:"scheduled_start"`
	ScheduledPause  Trigger `json:"scheduled_pause"`
	ScheduledResume Trigger `json:"scheduled_resume"`
	Repeat          Repeat  `json:"repeat"`

	InactivityCloseEnabled bool `json:"inactivity_close_enabled"`
	InactivityThresholdSec int  `json:"inactivity_threshold_seconds"`
}

// UI holds the presentation settings the desktop shell reads.
type UI struct {
	WindowOpacity   float64 `json:"window_opacity"`
	BackgroundImage string  `json:"background_image"`
}

// Timing holds drag pacing parameters handed to the automation script.
type Timing struct {
	DragDurationMs int `json:"drag_duration_ms"`
	ActionDelayMs  int `json:"action_delay_ms"`
}

type Config struct {
	Schedule Schedule `json:"schedule"`
	UI       UI       `json:"ui"`
	Timing   Timing   `json:"timing"`

	// WorkerCommand is the automation script invocation, split into argv.
	WorkerCommand []string `json:"worker_command"`

	// LicenseKey is stored verbatim; validation lives in the external worker.
	LicenseKey string `json:"license_key"`

	// Priorities maps card name to play/evolve priority, clamped to 1-999.
	Priorities map[string]int `json:"priorities"`
}

const (
	PriorityMin     = 1
	PriorityMax     = 999
	PriorityDefault = 999
)

// Default returns the config applied when the file is absent or a key is
// missing.
func Default() *Config {
	return &Config{
		Schedule: Schedule{
			Repeat:                 Repeat{Daily: true},
			InactivityThresholdSec: 900,
		},
		UI: UI{
			WindowOpacity: 1.0,
		},
		Timing: Timing{
			DragDurationMs: 200,
			ActionDelayMs:  500,
		},
		Priorities: map[string]int{},
	}
}

// Priority returns the configured priority for a card, applying the default
// and clamping to the valid range.
func (c *Config) Priority(cardName string) int {
	p, ok := c.Priorities[cardName]
	if !ok {
		return PriorityDefault
	}
	return ClampPriority(p)
}

func ClampPriority(p int) int {
	if p < PriorityMin {
		return PriorityMin
	}
	if p > PriorityMax {
		return PriorityMax
	}
	return p
}
