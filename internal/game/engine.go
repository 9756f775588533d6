// internal/game/engine.go
//
// Play session for a single level.
// Responsibilities:
//   - Bind a scoring.Tracker and a countdown.Timer to one round.
//   - Gate clicks on the round status (only "playing" counts).
//   - Detect victory (found == total > 0): apply the time bonus, pause the
//     timer and end the round.
//   - Publish events (tick, click, status) for streaming clients.
//
// Locking: the session mutex is never held while the countdown may run a
// callback synchronously (StartWith with a zero limit), because the timeout
// handler takes the same mutex.

package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/clock"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/countdown"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/level"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/scoring"
)

// Options configure New. Zero values pick defaults.
type Options struct {
	// Clock drives the countdown (default clock.Real()).
	Clock clock.Clock
	// DefaultTimeLimit applies when the level has none (default
	// level.DefaultTimeLimit).
	DefaultTimeLimit int
}

// Game is one round on one level. Safe for concurrent use.
type Game struct {
	ID        string
	LevelID   string
	clock     clock.Clock
	timeLimit int

	mu         sync.Mutex
	status     Status
	tracker    *scoring.Tracker
	timer      *countdown.Timer
	startedAt  time.Time
	finishedAt time.Time
	lastActive time.Time
	listeners  map[uint64]func(Event)
	nextSub    uint64
	closers    []func()
}

// New creates a round in StatusReady for lv.
func New(lv level.Level, opts Options) *Game {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.DefaultTimeLimit <= 0 {
		opts.DefaultTimeLimit = level.DefaultTimeLimit
	}
	g := &Game{
		ID:        uuid.NewString(),
		LevelID:   lv.ID,
		clock:     opts.Clock,
		timeLimit: lv.TimeLimitOr(opts.DefaultTimeLimit),
		status:    StatusReady,
		listeners: make(map[uint64]func(Event)),
		tracker:   scoring.NewTracker(opts.Clock, lv.Differences.Clone(), lv.Rules()),
	}
	g.lastActive = opts.Clock.Now()
	g.timer = countdown.New(opts.Clock, g.timeLimit, g.handleTimeout)
	g.timer.OnTick(g.handleTick)
	return g
}

// Subscribe registers f for every event of this round. The returned func
// removes it.
func (g *Game) Subscribe(f func(Event)) func() {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.listeners[id] = f
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// Status reports the current round status.
func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Start begins the round. It is a no-op when the level has no differences.
// Starting a finished round starts it over.
func (g *Game) Start() bool {
	g.mu.Lock()
	g.lastActive = g.clock.Now()
	if g.tracker.Total() == 0 {
		g.mu.Unlock()
		return false
	}
	limit := g.timeLimit
	g.tracker.Reset()
	g.timer.Reset(&limit)
	g.status = StatusPlaying
	g.startedAt = g.clock.Now()
	g.finishedAt = time.Time{}
	g.mu.Unlock()

	// May fire handleTimeout synchronously when limit is 0.
	g.timer.StartWith(limit)

	g.mu.Lock()
	ev, listeners := g.eventLocked(EventStatus, nil)
	g.mu.Unlock()
	notify(listeners, ev)
	log.Debug().Str("game", g.ID).Str("level", g.LevelID).Int("limit", limit).Msg("round started")
	return true
}

// Click registers a click at (x, y) percent. ok is false when the round is
// not being played, in which case nothing changes.
func (g *Game) Click(x, y float64, ctx scoring.ClickContext) (res scoring.Result, ok bool) {
	g.mu.Lock()
	g.lastActive = g.clock.Now()
	if g.status != StatusPlaying {
		g.mu.Unlock()
		return scoring.Result{}, false
	}
	res = g.tracker.RegisterClick(x, y, ctx)
	won := g.checkVictoryLocked()
	ev, listeners := g.eventLocked(EventClick, &res)
	g.mu.Unlock()

	notify(listeners, ev)
	if won {
		notify(listeners, Event{Type: EventStatus, Snapshot: ev.Snapshot})
	}
	return res, true
}

// ClickPixels converts a click in client pixels against vp and calls Click.
func (g *Game) ClickPixels(clientX, clientY float64, vp geometry.Viewport, ctx scoring.ClickContext) (scoring.Result, bool) {
	if !vp.Valid() {
		return scoring.Result{}, false
	}
	x, y := vp.ToPercent(clientX, clientY)
	return g.Click(x, y, ctx)
}

// SetDifferences swaps the collection used for hit-testing, e.g. when the
// editor publishes a new snapshot mid-round.
func (g *Game) SetDifferences(c geometry.Collection) {
	g.mu.Lock()
	g.tracker.SetDifferences(c)
	won := g.checkVictoryLocked()
	var (
		ev        Event
		listeners []func(Event)
	)
	if won {
		ev, listeners = g.eventLocked(EventStatus, nil)
	}
	g.mu.Unlock()
	notify(listeners, ev)
}

// Reset returns the round to StatusReady with a full timer.
func (g *Game) Reset() {
	g.mu.Lock()
	g.tracker.Reset()
	limit := g.timeLimit
	g.timer.Reset(&limit)
	g.status = StatusReady
	g.startedAt, g.finishedAt = time.Time{}, time.Time{}
	g.lastActive = g.clock.Now()
	ev, listeners := g.eventLocked(EventStatus, nil)
	g.mu.Unlock()
	notify(listeners, ev)
}

// OnClose registers f to run once when the round is closed.
func (g *Game) OnClose(f func()) {
	g.mu.Lock()
	g.closers = append(g.closers, f)
	g.mu.Unlock()
}

// Close stops the timer, drops listeners and runs OnClose hooks.
func (g *Game) Close() {
	g.timer.Stop()
	g.mu.Lock()
	g.listeners = make(map[uint64]func(Event))
	closers := g.closers
	g.closers = nil
	g.mu.Unlock()
	for _, f := range closers {
		f()
	}
}

// Activity reports when the round was last started, clicked or reset, and
// when it finished (zero while unfinished).
func (g *Game) Activity() (last, finished time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActive, g.finishedAt
}

// Snapshot copies the round state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) handleTick(countdown.Snapshot) {
	g.mu.Lock()
	if g.status != StatusPlaying {
		g.mu.Unlock()
		return
	}
	ev, listeners := g.eventLocked(EventTick, nil)
	g.mu.Unlock()
	notify(listeners, ev)
}

func (g *Game) handleTimeout() {
	g.mu.Lock()
	// A timeout racing a restart belongs to the previous run.
	if g.status != StatusPlaying || g.timer.Snapshot().State != countdown.Expired {
		g.mu.Unlock()
		return
	}
	g.status = StatusTimeout
	g.finishedAt = g.clock.Now()
	ev, listeners := g.eventLocked(EventStatus, nil)
	g.mu.Unlock()
	log.Debug().Str("game", g.ID).Msg("round timed out")
	notify(listeners, ev)
}

// checkVictoryLocked ends a completed round with the time bonus applied.
func (g *Game) checkVictoryLocked() bool {
	if g.status != StatusPlaying || !g.tracker.Complete() {
		return false
	}
	g.tracker.ApplyBonus(g.timer.TimeLeft())
	g.timer.Pause()
	g.status = StatusWon
	g.finishedAt = g.clock.Now()
	return true
}

func (g *Game) snapshotLocked() Snapshot {
	st := g.tracker.Snapshot()
	tm := g.timer.Snapshot()
	s := Snapshot{
		ID:               g.ID,
		LevelID:          g.LevelID,
		Status:           g.status,
		Score:            st.Score,
		Attempts:         st.Attempts,
		Accuracy:         g.tracker.Accuracy(),
		FoundDifferences: st.FoundDifferences,
		Total:            g.tracker.Total(),
		WrongClick:       st.WrongClick,
		Rules:            g.tracker.Rules(),
		Timer:            tm,
		Clock:            FormatTime(tm.TimeLeft),
	}
	if !g.startedAt.IsZero() {
		t := g.startedAt
		s.StartedAt = &t
	}
	if !g.finishedAt.IsZero() {
		t := g.finishedAt
		s.FinishedAt = &t
	}
	return s
}

func (g *Game) eventLocked(t EventType, click *scoring.Result) (Event, []func(Event)) {
	out := make([]func(Event), 0, len(g.listeners))
	for _, f := range g.listeners {
		out = append(out, f)
	}
	return Event{Type: t, Snapshot: g.snapshotLocked(), Click: click}, out
}

func notify(listeners []func(Event), ev Event) {
	for _, f := range listeners {
		f(ev)
	}
}
