// internal/countdown/countdown.go
//
// Countdown timer state machine for a timed round.
// Responsibilities:
//   - Track duration / timeLeft in whole seconds.
//   - Drive one-second ticks as re-armed one-shot timers (never a repeating ticker).
//   - Fire the timeout callback exactly once when timeLeft reaches zero.
//
// State transitions:
//   Idle → Running → Paused | Expired, and Start re-enters Running from any state.
//
// Every Start/Pause/Reset/Stop cancels the in-flight tick first. A generation
// counter additionally discards a tick that was already executing when it
// was cancelled, so a stale tick can never touch state after its session ended.

package countdown

import (
	"sync"
	"time"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/clock"
)

// State names the timer lifecycle phase.
type State string

const (
	Idle    State = "idle"
	Running State = "running"
	Paused  State = "paused"
	Expired State = "expired"
)

// TickInterval is the length of one countdown step.
const TickInterval = time.Second

// Snapshot is a read-only view of the timer.
type Snapshot struct {
	Duration int   `json:"duration"`
	TimeLeft int   `json:"timeLeft"`
	Running  bool  `json:"isRunning"`
	State    State `json:"state"`
}

// Timer is a countdown bound to a Clock.
type Timer struct {
	clock     clock.Clock
	onTimeout func()
	onTick    func(Snapshot)

	mu       sync.Mutex
	duration int
	timeLeft int
	state    State
	pending  clock.Timer
	gen      uint64
}

// New creates an Idle timer. onTimeout may be nil.
func New(c clock.Clock, duration int, onTimeout func()) *Timer {
	if duration < 0 {
		duration = 0
	}
	return &Timer{
		clock:     c,
		onTimeout: onTimeout,
		duration:  duration,
		timeLeft:  duration,
		state:     Idle,
	}
}

// OnTick registers a callback invoked after every decrement.
func (t *Timer) OnTick(f func(Snapshot)) {
	t.mu.Lock()
	t.onTick = f
	t.mu.Unlock()
}

// Start (re)starts the countdown from the current duration.
func (t *Timer) Start() { t.start(nil) }

// StartWith sets a new duration and starts the countdown.
func (t *Timer) StartWith(duration int) { t.start(&duration) }

func (t *Timer) start(duration *int) {
	var expired bool
	t.mu.Lock()
	t.cancelLocked()
	if duration != nil {
		t.duration = max(0, *duration)
	}
	t.timeLeft = t.duration
	t.state = Running
	expired = t.checkExpiredLocked()
	if !expired {
		t.armLocked()
	}
	t.mu.Unlock()
	if expired {
		t.fireTimeout()
	}
}

// Pause freezes timeLeft and cancels the pending tick.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	if t.state == Running {
		t.state = Paused
	}
}

// Reset returns to Idle with timeLeft = duration. A nil duration keeps the
// current one.
func (t *Timer) Reset(duration *int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	if duration != nil {
		t.duration = max(0, *duration)
	}
	t.timeLeft = t.duration
	t.state = Idle
}

// Stop cancels every pending tick without changing timeLeft. Used on teardown.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	if t.state == Running {
		t.state = Paused
	}
}

// Snapshot returns the current timer values.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// TimeLeft is shorthand for Snapshot().TimeLeft.
func (t *Timer) TimeLeft() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeLeft
}

func (t *Timer) snapshotLocked() Snapshot {
	return Snapshot{
		Duration: t.duration,
		TimeLeft: t.timeLeft,
		Running:  t.state == Running,
		State:    t.state,
	}
}

// cancelLocked stops the pending tick and invalidates any tick in flight.
func (t *Timer) cancelLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.gen++
}

func (t *Timer) armLocked() {
	gen := t.gen
	t.pending = t.clock.AfterFunc(TickInterval, func() { t.tick(gen) })
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state != Running {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.timeLeft = max(0, t.timeLeft-1)
	snap := t.snapshotLocked()
	onTick := t.onTick
	expired := t.checkExpiredLocked()
	if !expired {
		t.armLocked()
	} else {
		snap = t.snapshotLocked()
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(snap)
	}
	if expired {
		t.fireTimeout()
	}
}

// checkExpiredLocked moves a Running timer with no time left to Expired.
func (t *Timer) checkExpiredLocked() bool {
	if t.state != Running || t.timeLeft > 0 {
		return false
	}
	t.cancelLocked()
	t.state = Expired
	return true
}

func (t *Timer) fireTimeout() {
	if t.onTimeout != nil {
		t.onTimeout()
	}
}
