// Package countdown implements the shared event timer. All transitions are
// synchronous computations over wall-clock timestamps; the clock is injected
// so tests can drive time deterministically.
package countdown

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateExpired State = "expired"
)

type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionReset  Action = "reset"
)

// Snapshot is the wire representation of a countdown. RemainingMs is
// recomputed from the clock at snapshot time while running, never read stale.
type Snapshot struct {
	StartedAtMs *int64 `json:"startedAtMs"`
	PausedAtMs  *int64 `json:"pausedAtMs"`
	RemainingMs int64  `json:"remainingMs"`
	IsRunning   bool   `json:"isRunning"`
}

// Countdown tracks one event's timer. While running, only startedAt and the
// total duration are authoritative; remaining is derived on read. While
// paused, idle or expired, remaining is the authoritative value.
type Countdown struct {
	total     time.Duration
	startedAt time.Time // zero = never started
	pausedAt  time.Time
	remaining time.Duration
	running   bool
	clock     clockwork.Clock
}

func New(total time.Duration, clock clockwork.Clock) *Countdown {
	return &Countdown{
		total:     total,
		remaining: total,
		clock:     clock,
	}
}

func (c *Countdown) State() State {
	switch {
	case c.running:
		return StateRunning
	case c.startedAt.IsZero():
		return StateIdle
	case c.remaining <= 0:
		return StateExpired
	default:
		return StatePaused
	}
}

// Start always restarts from the full duration, regardless of prior state.
func (c *Countdown) Start() {
	c.startedAt = c.clock.Now()
	c.pausedAt = time.Time{}
	c.remaining = c.total
	c.running = true
}

// Pause is only valid while running; otherwise it is a silent no-op.
func (c *Countdown) Pause() {
	if !c.running {
		return
	}
	c.pausedAt = c.clock.Now()
	c.running = false
	c.remaining = max(0, c.total-c.pausedAt.Sub(c.startedAt))
}

// Resume rebases startedAt so that the derived remaining picks up where the
// pause left off. Resuming from idle degenerates to a start (remaining equals
// the total), and resuming from expired re-expires on the next tick.
func (c *Countdown) Resume() {
	if c.running {
		return
	}
	c.startedAt = c.clock.Now().Add(-(c.total - c.remaining))
	c.pausedAt = time.Time{}
	c.running = true
}

func (c *Countdown) Reset() {
	c.startedAt = time.Time{}
	c.pausedAt = time.Time{}
	c.remaining = c.total
	c.running = false
}

// Apply dispatches a control action. Unknown actions are ignored, as are
// actions that are invalid in the current state.
func (c *Countdown) Apply(a Action) {
	switch a {
	case ActionStart:
		c.Start()
	case ActionPause:
		c.Pause()
	case ActionResume:
		c.Resume()
	case ActionReset:
		c.Reset()
	}
}

// Tick recomputes remaining while running and flips to expired at zero. It
// reports whether the countdown mutated, so callers skip broadcasting no-op
// ticks.
func (c *Countdown) Tick() bool {
	if !c.running {
		return false
	}
	c.remaining = max(0, c.total-c.clock.Now().Sub(c.startedAt))
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
	}
	return true
}

// Remaining derives the current remaining time without mutating state.
func (c *Countdown) Remaining() time.Duration {
	if c.running {
		return max(0, c.total-c.clock.Now().Sub(c.startedAt))
	}
	return c.remaining
}

func (c *Countdown) Snapshot() Snapshot {
	s := Snapshot{
		RemainingMs: c.Remaining().Milliseconds(),
		IsRunning:   c.running,
	}
	if !c.startedAt.IsZero() {
		ms := c.startedAt.UnixMilli()
		s.StartedAtMs = &ms
	}
	if !c.pausedAt.IsZero() {
		ms := c.pausedAt.UnixMilli()
		s.PausedAtMs = &ms
	}
	return s
}
