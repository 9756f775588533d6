// internal/editor/engine.go
//
// Authoring engine for difference zones ("editor mode").
// Responsibilities:
//   - Own the authoritative difference collection while a level is edited.
//   - Selection, drag sessions, keyboard nudges and per-field shape edits
//     (drag.go, mutate.go).
//   - Debounced checkpointing of the collection through persist.Adapter.
//
// Every mutation builds a new Collection (copy-on-write) and publishes it;
// snapshots handed out by Differences() are never modified afterwards.
// Operations on ids that no longer exist are silent no-ops.

package editor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/clock"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/persist"
)

// Editor tuning.
const (
	NudgeStepNormal = 0.8
	NudgeStepFine   = 0.2

	DefaultRadius     = 8
	DefaultRectWidth  = 12
	DefaultRectHeight = 12
	DefaultTolerance  = 2

	MinRadius        = 1
	MinRectDimension = 2
	MinTolerance     = 0

	RadiusStep    = 0.5
	DimensionStep = 0.5
	ToleranceStep = 0.5

	// minConvertedRect is the smallest side a circle→rect conversion yields.
	minConvertedRect = 6

	SaveDebounce = 200 * time.Millisecond
)

// Options configure an Engine. Zero values pick the defaults noted per field.
type Options struct {
	LevelID string
	// DevMode enables persistence; without it edits stay in memory.
	DevMode bool
	// Store is the persistence target; nil disables saving.
	Store *persist.Adapter
	// Clock drives the save debounce (default clock.Real()).
	Clock clock.Clock
	// Frames coalesces drag updates (default one 16ms frame on Clock).
	Frames clock.FrameScheduler
	// SaveDelay is the debounce window (default SaveDebounce).
	SaveDelay time.Duration
	// FlushOnClose writes a pending save during Close instead of dropping it.
	FlushOnClose bool
	// NamePrefix labels new differences as "<prefix> <id>" (default "Difference").
	NamePrefix string
}

// Engine is the editor state machine for one level.
type Engine struct {
	opts     Options
	frames   clock.FrameScheduler
	debounce *clock.Debouncer

	mu        sync.Mutex
	enabled   bool
	diffs     geometry.Collection
	selected  int
	hasSel    bool
	drag      *dragSession
	dragGen   uint64
	highWater int
	listeners map[uint64]func(geometry.Collection)
	nextSub   uint64
	seq       uint64

	// priorShape holds the shape an id had before its last type change.
	priorShape map[int]geometry.Shape

	// notifyMu orders deliveries; delivered is the last seq handed out.
	notifyMu  sync.Mutex
	delivered uint64
}

// New builds an engine over initial. The collection is copied.
func New(initial geometry.Collection, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Frames == nil {
		opts.Frames = clock.NewFrameScheduler(opts.Clock, clock.FrameInterval)
	}
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = SaveDebounce
	}
	if opts.NamePrefix == "" {
		opts.NamePrefix = "Difference"
	}
	diffs := initial.Clone()
	if diffs == nil {
		diffs = geometry.Collection{}
	}
	return &Engine{
		opts:       opts,
		frames:     opts.Frames,
		debounce:   clock.NewDebouncer(opts.Clock, opts.SaveDelay),
		diffs:      diffs,
		highWater:  diffs.MaxID(),
		listeners:  make(map[uint64]func(geometry.Collection)),
		priorShape: make(map[int]geometry.Shape),
	}
}

// LevelID is the level this engine edits.
func (e *Engine) LevelID() string { return e.opts.LevelID }

// Enabled reports whether editor mode is on.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Toggle flips editor mode, clearing selection and any drag.
func (e *Engine) Toggle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = !e.enabled
	e.hasSel, e.selected = false, 0
	e.cancelDragLocked()
	return e.enabled
}

// Differences returns the current snapshot. Callers must not modify it.
func (e *Engine) Differences() geometry.Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.diffs
}

// Selected returns the selected id, if any.
func (e *Engine) Selected() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected, e.hasSel
}

// Select sets the selection and cancels any active drag.
func (e *Engine) Select(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected, e.hasSel = id, true
	e.cancelDragLocked()
}

// ClearSelection drops the selection and any drag.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected, e.hasSel = 0, false
	e.cancelDragLocked()
}

// Subscribe registers f to receive published snapshots in commit order. A
// snapshot superseded before it could be delivered is skipped. f must not
// call back into the engine. The returned func removes it.
func (e *Engine) Subscribe(f func(geometry.Collection)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.listeners[id] = f
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Replace swaps in a new collection (level load or import). The id
// high-water mark restarts from the new collection.
func (e *Engine) Replace(c geometry.Collection) {
	next := c.Clone()
	if next == nil {
		next = geometry.Collection{}
	}
	e.mu.Lock()
	e.highWater = next.MaxID()
	e.selected, e.hasSel = 0, false
	clear(e.priorShape)
	e.cancelDragLocked()
	deliver := e.commitLocked(next)
	e.mu.Unlock()
	deliver()
}

// LoadStored returns the persisted collection for this level, if editing
// persistence is active and a stored copy exists.
func (e *Engine) LoadStored(ctx context.Context) (geometry.Collection, bool) {
	if !e.persistent() {
		return nil, false
	}
	stored := persist.Load[geometry.Collection](ctx, e.opts.Store, persist.DifferencesKey(e.opts.LevelID), nil)
	if stored == nil {
		return nil, false
	}
	return stored, true
}

// Close cancels the pending frame and save. With FlushOnClose the pending
// save is written synchronously instead of dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	e.cancelDragLocked()
	e.mu.Unlock()
	if e.opts.FlushOnClose {
		e.debounce.Flush()
		return
	}
	e.debounce.Cancel()
}

// SavePending reports whether a debounced save is waiting.
func (e *Engine) SavePending() bool { return e.debounce.Pending() }

func (e *Engine) persistent() bool {
	return e.opts.DevMode && e.opts.LevelID != "" && e.opts.Store != nil
}

// commitLocked publishes next and restarts the save window. The returned
// func notifies listeners and must run after the lock is released.
func (e *Engine) commitLocked(next geometry.Collection) func() {
	e.diffs = next
	if e.persistent() {
		key := persist.DifferencesKey(e.opts.LevelID)
		store := e.opts.Store
		e.debounce.Trigger(func() {
			if store.Save(context.Background(), key, next) {
				log.Debug().Str("key", key).Int("differences", len(next)).Msg("editor: differences saved")
			}
		})
	}
	out := make([]func(geometry.Collection), 0, len(e.listeners))
	for _, f := range e.listeners {
		out = append(out, f)
	}
	e.seq++
	seq := e.seq
	return func() { e.publish(seq, out, next) }
}

// publish delivers c unless a later commit has already been delivered.
func (e *Engine) publish(seq uint64, listeners []func(geometry.Collection), c geometry.Collection) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	if seq <= e.delivered {
		return
	}
	e.delivered = seq
	for _, f := range listeners {
		f(c)
	}
}

// update applies fn to a copy of the difference with id and publishes the
// result when fn reports a change. Unknown ids are ignored.
func (e *Engine) update(id int, fn func(d *geometry.Difference) bool) bool {
	e.mu.Lock()
	deliver, ok := e.updateLocked(id, fn)
	e.mu.Unlock()
	if ok {
		deliver()
	}
	return ok
}

func (e *Engine) updateLocked(id int, fn func(d *geometry.Difference) bool) (func(), bool) {
	idx := e.diffs.Find(id)
	if idx < 0 {
		return nil, false
	}
	next := e.diffs.Clone()
	if !fn(&next[idx]) {
		return nil, false
	}
	return e.commitLocked(next), true
}
