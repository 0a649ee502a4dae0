// Package schedule decides, once per polling tick, whether the automation
// worker should transition between not-running, running and paused based on
// the configured wall-clock triggers.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"deckpilot/config"
)

const (
	autoStartInterval  = time.Second
	inactivityInterval = time.Second
	scheduledInterval  = 30 * time.Second
)

// Worker is the automation worker handle driven by the coordinator.
type Worker interface {
	Start() error
	Stop()
	Pause()
	Resume()
	IsRunning() bool
	IsPaused() bool
}

// ConfigSource returns the current committed config. Satisfied by
// config.Manager.
type ConfigSource interface {
	Get() *config.Config
}

// Coordinator polls the clock and drives the worker. All ticks run on the
// Run goroutine; the latch fields must not be touched from elsewhere.
type Coordinator struct {
	cfg    ConfigSource
	worker Worker

	// now is injectable for tests.
	now func() time.Time

	// shutdown fires once when the inactivity threshold is reached.
	shutdown func()

	// once-per-calendar-day dedup latches, one per trigger kind.
	lastStartDate  string
	lastPauseDate  string
	lastResumeDate string

	inactivitySeconds int
	shutdownFired     bool
}

func NewCoordinator(cfg ConfigSource, worker Worker, shutdown func()) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		worker:   worker,
		now:      time.Now,
		shutdown: shutdown,
	}
}

// Run polls until the context is cancelled. One goroutine owns every ticker
// so trigger checks and latch updates never race.
func (c *Coordinator) Run(ctx context.Context) {
	autoStart := time.NewTicker(autoStartInterval)
	defer autoStart.Stop()
	inactivity := time.NewTicker(inactivityInterval)
	defer inactivity.Stop()
	start := time.NewTicker(scheduledInterval)
	defer start.Stop()
	pause := time.NewTicker(scheduledInterval)
	defer pause.Stop()
	resume := time.NewTicker(scheduledInterval)
	defer resume.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-autoStart.C:
			c.checkAutoStart(c.now())
		case <-inactivity.C:
			c.checkInactivity()
		case <-start.C:
			c.checkScheduledStart(c.now())
		case <-pause.C:
			c.checkScheduledPause(c.now())
		case <-resume.C:
			c.checkScheduledResume(c.now())
		}
	}
}

// checkAutoStart fires on exact hour/minute/second equality. There is no
// dedup latch: the check is idempotent because it is guarded by the worker
// not already running, and the matching second passes before the next day.
func (c *Coordinator) checkAutoStart(now time.Time) {
	trigger := c.cfg.Get().Schedule.AutoStart
	if !trigger.Enabled {
		return
	}
	if c.worker.IsRunning() {
		return
	}
	at := trigger.At
	if now.Hour() != at.Hour || now.Minute() != at.Minute || now.Second() != at.Second {
		return
	}

	slog.Info("auto-start trigger fired", "time", now.Format("15:04:05"))
	if err := c.worker.Start(); err != nil {
		slog.Error("auto-start failed to start worker", "error", err)
	}
}

func (c *Coordinator) checkScheduledStart(now time.Time) {
	sched := c.cfg.Get().Schedule
	if !c.scheduledTriggerMatches(sched.ScheduledStart, sched.Repeat, now, c.lastStartDate) {
		return
	}
	if c.worker.IsRunning() {
		return
	}

	c.lastStartDate = dateKey(now)
	slog.Info("scheduled start trigger fired", "time", now.Format("15:04"))
	if err := c.worker.Start(); err != nil {
		slog.Error("scheduled start failed to start worker", "error", err)
	}
}

func (c *Coordinator) checkScheduledPause(now time.Time) {
	sched := c.cfg.Get().Schedule
	if !c.scheduledTriggerMatches(sched.ScheduledPause, sched.Repeat, now, c.lastPauseDate) {
		return
	}
	if !c.worker.IsRunning() || c.worker.IsPaused() {
		return
	}

	c.lastPauseDate = dateKey(now)
	slog.Info("scheduled pause trigger fired", "time", now.Format("15:04"))
	c.worker.Pause()
}

func (c *Coordinator) checkScheduledResume(now time.Time) {
	sched := c.cfg.Get().Schedule
	if !c.scheduledTriggerMatches(sched.ScheduledResume, sched.Repeat, now, c.lastResumeDate) {
		return
	}
	if !c.worker.IsRunning() || !c.worker.IsPaused() {
		return
	}

	c.lastResumeDate = dateKey(now)
	slog.Info("scheduled resume trigger fired", "time", now.Format("15:04"))
	c.worker.Resume()
}

// scheduledTriggerMatches applies the shared minute-equality, repeat-filter
// and once-per-day checks. Equality rather than inequality means a tick
// missed across the matching minute (system sleep) skips the trigger for
// that day.
func (c *Coordinator) scheduledTriggerMatches(trigger config.Trigger, repeat config.Repeat, now time.Time, lastFired string) bool {
	if !trigger.Enabled {
		return false
	}
	if now.Hour() != trigger.At.Hour || now.Minute() != trigger.At.Minute {
		return false
	}
	if lastFired == dateKey(now) {
		return false
	}
	return repeatAllows(repeat, now.Weekday())
}

func repeatAllows(repeat config.Repeat, day time.Weekday) bool {
	if repeat.Daily {
		return true
	}
	weekend := day == time.Saturday || day == time.Sunday
	if repeat.Weekdays && !weekend {
		return true
	}
	if repeat.Weekend && weekend {
		return true
	}
	return false
}

// checkInactivity counts seconds while the worker is not running and invokes
// the shutdown hook when the configured threshold is reached. The counter
// resets the moment the worker is observed running.
func (c *Coordinator) checkInactivity() {
	sched := c.cfg.Get().Schedule

	if c.worker.IsRunning() {
		c.inactivitySeconds = 0
		return
	}
	c.inactivitySeconds++

	if !sched.InactivityCloseEnabled || sched.InactivityThresholdSec <= 0 {
		return
	}
	if c.inactivitySeconds < sched.InactivityThresholdSec || c.shutdownFired {
		return
	}

	c.shutdownFired = true
	slog.Info("inactivity threshold reached, shutting down",
		"idle_seconds", c.inactivitySeconds,
		"threshold", sched.InactivityThresholdSec)
	if c.shutdown != nil {
		c.shutdown()
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
