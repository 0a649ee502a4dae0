package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckpilot/config"
)

type fakeWorker struct {
	running bool
	paused  bool

	starts  int
	stops   int
	pauses  int
	resumes int
}

func (f *fakeWorker) Start() error {
	f.starts++
	f.running = true
	f.paused = false
	return nil
}

func (f *fakeWorker) Stop() {
	f.stops++
	f.running = false
	f.paused = false
}

func (f *fakeWorker) Pause() {
	f.pauses++
	f.paused = true
}

func (f *fakeWorker) Resume() {
	f.resumes++
	f.paused = false
}

func (f *fakeWorker) IsRunning() bool { return f.running }
func (f *fakeWorker) IsPaused() bool  { return f.paused }

type staticConfig struct {
	cfg *config.Config
}

func (s *staticConfig) Get() *config.Config { return s.cfg }

// at builds a timestamp on a fixed date. 2025-06-02 is a Monday.
func at(day int, hour, minute, second int) time.Time {
	return time.Date(2025, 6, day, hour, minute, second, 0, time.UTC)
}

func newTestCoordinator(cfg *config.Config, w Worker, shutdown func()) *Coordinator {
	return NewCoordinator(&staticConfig{cfg: cfg}, w, shutdown)
}

func TestScheduledStartFiresOncePerDay(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.ScheduledStart = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 9, Minute: 30},
	}

	w := &fakeWorker{}
	c := newTestCoordinator(cfg, w, nil)

	// The 30s poll observes the matching minute twice.
	c.checkScheduledStart(at(2, 9, 30, 0))
	require.Equal(t, 1, w.starts)

	// Stop the worker so only the dedup latch can block a second start.
	w.running = false
	c.checkScheduledStart(at(2, 9, 30, 30))
	assert.Equal(t, 1, w.starts, "dedup latch should block the second tick")

	// Next day, the latch no longer applies.
	c.checkScheduledStart(at(3, 9, 30, 0))
	assert.Equal(t, 2, w.starts)
}

func TestScheduledStartRespectsRepeatFilter(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.ScheduledStart = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 9, Minute: 30},
	}
	cfg.Schedule.Repeat = config.Repeat{Daily: false, Weekdays: true}

	w := &fakeWorker{}
	c := newTestCoordinator(cfg, w, nil)

	// 2025-06-07 is a Saturday.
	c.checkScheduledStart(at(7, 9, 30, 0))
	assert.Equal(t, 0, w.starts, "weekdays filter should suppress Saturday")

	// Monday fires.
	c.checkScheduledStart(at(2, 9, 30, 0))
	assert.Equal(t, 1, w.starts)
}

func TestRepeatFlags(t *testing.T) {
	monday := time.Monday
	saturday := time.Saturday

	tests := []struct {
		name   string
		repeat config.Repeat
		day    time.Weekday
		want   bool
	}{
		{"daily overrides filters", config.Repeat{Daily: true}, saturday, true},
		{"weekdays on monday", config.Repeat{Weekdays: true}, monday, true},
		{"weekdays on saturday", config.Repeat{Weekdays: true}, saturday, false},
		{"weekend on saturday", config.Repeat{Weekend: true}, saturday, true},
		{"weekend on monday", config.Repeat{Weekend: true}, monday, false},
		{"no flags suppresses", config.Repeat{}, monday, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repeatAllows(tt.repeat, tt.day))
		})
	}
}

func TestPauseAndResumeLatchesAreIndependent(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.ScheduledPause = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 12, Minute: 0},
	}
	cfg.Schedule.ScheduledResume = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 13, Minute: 0},
	}

	w := &fakeWorker{running: true}
	c := newTestCoordinator(cfg, w, nil)

	c.checkScheduledPause(at(2, 12, 0, 0))
	require.Equal(t, 1, w.pauses)
	require.True(t, w.paused)

	// Pause having fired today must not block resume.
	c.checkScheduledResume(at(2, 13, 0, 0))
	require.Equal(t, 1, w.resumes)
	require.False(t, w.paused)

	// Each latch blocks only its own trigger for the rest of the day.
	w.paused = true
	c.checkScheduledResume(at(2, 13, 0, 30))
	assert.Equal(t, 1, w.resumes)

	w.paused = false
	c.checkScheduledPause(at(2, 12, 0, 30))
	assert.Equal(t, 1, w.pauses)
}

func TestPauseOnlyFiresWhileRunningUnpaused(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.ScheduledPause = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 12, Minute: 0},
	}

	w := &fakeWorker{}
	c := newTestCoordinator(cfg, w, nil)

	// Not running: no pause, and the latch must stay clear.
	c.checkScheduledPause(at(2, 12, 0, 0))
	assert.Equal(t, 0, w.pauses)
	assert.Empty(t, c.lastPauseDate)

	// Already paused: no double pause.
	w.running = true
	w.paused = true
	c.checkScheduledPause(at(2, 12, 0, 30))
	assert.Equal(t, 0, w.pauses)
}

func TestResumeOnlyFiresWhilePaused(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.ScheduledResume = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 13, Minute: 0},
	}

	w := &fakeWorker{running: true}
	c := newTestCoordinator(cfg, w, nil)

	c.checkScheduledResume(at(2, 13, 0, 0))
	assert.Equal(t, 0, w.resumes, "resume must not fire while unpaused")
	assert.Empty(t, c.lastResumeDate)
}

func TestAutoStartMatchesExactSecond(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.AutoStart = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 8, Minute: 0, Second: 5},
	}

	w := &fakeWorker{}
	c := newTestCoordinator(cfg, w, nil)

	c.checkAutoStart(at(2, 8, 0, 4))
	assert.Equal(t, 0, w.starts)

	c.checkAutoStart(at(2, 8, 0, 5))
	assert.Equal(t, 1, w.starts)

	// Guarded by the worker already running, so the same second cannot
	// double-start.
	c.checkAutoStart(at(2, 8, 0, 5))
	assert.Equal(t, 1, w.starts)
}

func TestAutoStartAndScheduledStartAreIndependent(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.AutoStart = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 8, Minute: 0, Second: 0},
	}
	cfg.Schedule.ScheduledStart = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 9, Minute: 30},
	}

	w := &fakeWorker{}
	c := newTestCoordinator(cfg, w, nil)

	c.checkAutoStart(at(2, 8, 0, 0))
	require.Equal(t, 1, w.starts)

	// Worker was stopped in between; the scheduled start still fires the
	// same day.
	w.running = false
	c.checkScheduledStart(at(2, 9, 30, 0))
	assert.Equal(t, 2, w.starts)
}

func TestMissedMinuteSkipsTrigger(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.ScheduledStart = config.Trigger{
		Enabled: true,
		At:      config.TimeOfDay{Hour: 9, Minute: 30},
	}

	w := &fakeWorker{}
	c := newTestCoordinator(cfg, w, nil)

	// System slept across 09:30; the next observed tick is 09:31.
	c.checkScheduledStart(at(2, 9, 29, 30))
	c.checkScheduledStart(at(2, 9, 31, 0))
	assert.Equal(t, 0, w.starts)
}

func TestInactivityCounterShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.InactivityCloseEnabled = true
	cfg.Schedule.InactivityThresholdSec = 5

	w := &fakeWorker{}
	shutdowns := 0
	c := newTestCoordinator(cfg, w, func() { shutdowns++ })

	for i := 0; i < 4; i++ {
		c.checkInactivity()
	}
	require.Equal(t, 0, shutdowns)
	require.Equal(t, 4, c.inactivitySeconds)

	c.checkInactivity()
	assert.Equal(t, 1, shutdowns, "worker never started, threshold 5 shuts down after 5 ticks")

	// The hook fires once even if ticks keep coming.
	c.checkInactivity()
	assert.Equal(t, 1, shutdowns)
}

func TestInactivityCounterResetsWhileRunning(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.InactivityCloseEnabled = true
	cfg.Schedule.InactivityThresholdSec = 5

	w := &fakeWorker{}
	c := newTestCoordinator(cfg, w, func() { t.Fatal("unexpected shutdown") })

	c.checkInactivity()
	c.checkInactivity()
	require.Equal(t, 2, c.inactivitySeconds)

	w.running = true
	c.checkInactivity()
	assert.Equal(t, 0, c.inactivitySeconds, "counter resets the instant the worker is observed running")

	// Accumulation restarts from zero after the worker stops again.
	w.running = false
	c.checkInactivity()
	assert.Equal(t, 1, c.inactivitySeconds)
}

func TestDisabledTriggersNeverFire(t *testing.T) {
	cfg := config.Default()
	cfg.Schedule.ScheduledStart = config.Trigger{
		Enabled: false,
		At:      config.TimeOfDay{Hour: 9, Minute: 30},
	}
	cfg.Schedule.AutoStart = config.Trigger{
		Enabled: false,
		At:      config.TimeOfDay{Hour: 8, Minute: 0},
	}

	w := &fakeWorker{}
	c := newTestCoordinator(cfg, w, nil)

	c.checkScheduledStart(at(2, 9, 30, 0))
	c.checkAutoStart(at(2, 8, 0, 0))
	assert.Equal(t, 0, w.starts)
}
