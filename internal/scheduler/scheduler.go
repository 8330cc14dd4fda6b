// Package scheduler decides when structural document changes trigger a
// rescan: immediately after a quiet period, otherwise after a debounce.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/lexicon/internal/dom"
)

const (
	// DefaultQuietPeriod is the minimum gap since the last scan for a change
	// to be handled immediately.
	DefaultQuietPeriod = 3000 * time.Millisecond
	// DefaultDebounceWindow is how long a burst must stay silent before the
	// deferred scan runs.
	DefaultDebounceWindow = 600 * time.Millisecond
)

// State is the scheduler's position in its two-state machine.
type State int

const (
	Idle State = iota
	PendingFlush
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingFlush:
		return "pending_flush"
	}
	return "unknown"
}

// Decision describes how a mutation batch was handled.
type Decision string

const (
	Ignored   Decision = "ignored"
	Immediate Decision = "immediate"
	Deferred  Decision = "deferred"
)

// Scan triggers passed to the scan function.
const (
	TriggerInitial  = "initial"
	TriggerMutation = "mutation"
	TriggerDebounce = "debounce"
	TriggerManual   = "manual"
)

// Config wires a Scheduler.
type Config struct {
	QuietPeriod    time.Duration
	DebounceWindow time.Duration
	Clock          clockwork.Clock
	// Post runs a function on the goroutine that owns the document. Timer
	// callbacks reach the scheduler only through Post.
	Post func(func()) bool
	// Scan performs one full substitution pass.
	Scan   func(trigger string)
	Logger *slog.Logger
}

// Scheduler is not safe for concurrent use; every method runs on the loop.
type Scheduler struct {
	cfg     Config
	state   State
	lastRun time.Time
	timer   clockwork.Timer
	gen     uint64
	runs    int
}

// New creates an idle Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{cfg: cfg}
}

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// LastRun returns when the last scan completed, or the zero time.
func (s *Scheduler) LastRun() time.Time { return s.lastRun }

// Runs returns how many scans the scheduler has started.
func (s *Scheduler) Runs() int { return s.runs }

// RunNow scans immediately, cancelling any pending deferred scan.
func (s *Scheduler) RunNow(trigger string) {
	s.cancel()
	s.state = Idle
	s.run(trigger)
}

// Observe handles a mutation batch. Only batches that add nodes qualify.
func (s *Scheduler) Observe(batch []dom.Record) Decision {
	if dom.AddedNodes(batch) == 0 {
		return Ignored
	}
	if s.cfg.Clock.Since(s.lastRun) >= s.cfg.QuietPeriod {
		s.RunNow(TriggerMutation)
		return Immediate
	}

	s.cancel()
	s.gen++
	gen := s.gen
	s.timer = s.cfg.Clock.AfterFunc(s.cfg.DebounceWindow, func() {
		s.cfg.Post(func() { s.fire(gen) })
	})
	s.state = PendingFlush
	return Deferred
}

// Stop cancels any pending scan.
func (s *Scheduler) Stop() {
	s.cancel()
	s.state = Idle
}

func (s *Scheduler) fire(gen uint64) {
	if gen != s.gen || s.state != PendingFlush {
		s.cfg.Logger.Debug("scheduler: stale timer ignored")
		return
	}
	s.timer = nil
	s.state = Idle
	s.run(TriggerDebounce)
}

func (s *Scheduler) run(trigger string) {
	s.runs++
	s.cfg.Scan(trigger)
	s.lastRun = s.cfg.Clock.Now()
}

// cancel stops the pending timer and invalidates a callback that may
// already be queued on the loop.
func (s *Scheduler) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}
