// Package worker supervises the external automation script as a child
// process and exposes the start/stop/pause/resume handle the schedule
// coordinator and the web API drive.
package worker

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"deckpilot/config"
)

var (
	ErrAlreadyRunning = errors.New("worker already running")
	ErrNoCommand      = errors.New("no worker command configured")
	ErrStartThrottled = errors.New("worker restarted too recently")
)

// Stats is the record the script reports on its stat lines.
type Stats struct {
	Games   int `json:"games"`
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Crowns  int `json:"crowns"`
	Elapsed int `json:"elapsed_seconds"`
}

// Callbacks deliver worker output back to the UI layer. All of them are
// optional and are invoked from the runner's reader goroutines.
type Callbacks struct {
	OnLog    func(line string)
	OnStatus func(status string)
	OnStats  func(stats Stats)
	OnError  func(msg string)
}

// ConfigSource returns the current committed config. Satisfied by
// config.Manager.
type ConfigSource interface {
	Get() *config.Config
}

type Runner struct {
	cfg       ConfigSource
	deckDir   string
	callbacks Callbacks

	// startLimiter paces restart attempts so a crash-looping script cannot
	// spin the emulator.
	startLimiter *rate.Limiter

	mu      sync.Mutex
	cmd     *exec.Cmd
	running bool
	paused  bool
	stats   Stats
	done    chan struct{}
}

func NewRunner(cfg ConfigSource, deckDir string, callbacks Callbacks) *Runner {
	return &Runner{
		cfg:          cfg,
		deckDir:      deckDir,
		callbacks:    callbacks,
		startLimiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// Start launches the configured automation script. The deck directory and
// drag timing parameters travel to the script through the environment.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}
	if !r.startLimiter.Allow() {
		return ErrStartThrottled
	}

	cfg := r.cfg.Get()
	if len(cfg.WorkerCommand) == 0 {
		return ErrNoCommand
	}

	cmd := exec.Command(cfg.WorkerCommand[0], cfg.WorkerCommand[1:]...)
	cmd.Env = append(os.Environ(),
		"DECKPILOT_DECK_DIR="+r.deckDir,
		"DECKPILOT_DRAG_DURATION_MS="+strconv.Itoa(cfg.Timing.DragDurationMs),
		"DECKPILOT_ACTION_DELAY_MS="+strconv.Itoa(cfg.Timing.ActionDelayMs),
		"DECKPILOT_LICENSE_KEY="+cfg.LicenseKey,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	r.cmd = cmd
	r.running = true
	r.paused = false
	r.stats = Stats{}
	r.done = make(chan struct{})
	done := r.done

	go r.readOutput(stdout)
	go r.readErrors(stderr)
	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		r.running = false
		r.paused = false
		r.cmd = nil
		r.mu.Unlock()
		close(done)
		if err != nil {
			slog.Warn("worker exited with error", "error", err)
		} else {
			slog.Info("worker exited")
		}
		r.emitStatus("idle")
	}()

	slog.Info("worker started", "command", cfg.WorkerCommand[0])
	r.emitStatus("running")
	return nil
}

// Stop kills the worker process and blocks until its exit is observed.
// Stopping an idle worker is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	cmd := r.cmd
	done := r.done
	paused := r.paused
	r.mu.Unlock()

	if cmd == nil {
		return
	}
	// A stopped (SIGSTOP) process will not die from SIGKILL delivery alone
	// until resumed, so resume first.
	if paused {
		if err := cmd.Process.Signal(syscall.SIGCONT); err != nil {
			slog.Warn("failed to resume worker before stop", "error", err)
		}
	}
	if err := cmd.Process.Kill(); err != nil {
		slog.Warn("failed to kill worker", "error", err)
	}
	<-done
}

// Pause suspends the script process. Cooperative in the sense of the worker
// contract: the process simply stops consuming time until Resume.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || r.paused || r.cmd == nil {
		return
	}
	if err := r.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		slog.Warn("failed to pause worker", "error", err)
		return
	}
	r.paused = true
	r.emitStatus("paused")
}

func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || !r.paused || r.cmd == nil {
		return
	}
	if err := r.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		slog.Warn("failed to resume worker", "error", err)
		return
	}
	r.paused = false
	r.emitStatus("running")
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Stats returns the last stats record reported by the script.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// readOutput routes script stdout lines: "status <s>" updates the status
// channel, "stat <json>" updates the stats record, everything else is a log
// line.
func (r *Runner) readOutput(pipe interface{ Read([]byte) (int, error) }) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "status "):
			r.emitStatus(strings.TrimPrefix(line, "status "))
		case strings.HasPrefix(line, "stat "):
			var stats Stats
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "stat ")), &stats); err != nil {
				slog.Warn("ignoring malformed stat line", "line", line, "error", err)
				continue
			}
			r.mu.Lock()
			r.stats = stats
			r.mu.Unlock()
			if r.callbacks.OnStats != nil {
				r.callbacks.OnStats(stats)
			}
		default:
			if r.callbacks.OnLog != nil {
				r.callbacks.OnLog(line)
			}
		}
	}
}

// readErrors surfaces stderr lines through the error callback and
// force-stops the worker on the first one. All worker failures are terminal
// for the run; the UI resets to idle via the status callback.
func (r *Runner) readErrors(pipe interface{ Read([]byte) (int, error) }) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		msg := scanner.Text()
		slog.Error("worker error", "message", msg)
		if r.callbacks.OnError != nil {
			r.callbacks.OnError(msg)
		}
		go r.Stop()
		return
	}
}

func (r *Runner) emitStatus(status string) {
	if r.callbacks.OnStatus != nil {
		r.callbacks.OnStatus(status)
	}
}
