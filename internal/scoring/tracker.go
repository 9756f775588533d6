// internal/scoring/tracker.go
//
// Click scoring for a single round.
// Responsibilities:
//   - Resolve a click (percent coordinates) against the not-yet-found differences.
//   - Maintain score, attempts, the found set and the last wrong click.
//   - Apply the end-of-round time bonus.
//
// Rules:
//   - attempts increments on every click, before the hit/miss branch touches score.
//   - First match wins, in collection order; found differences are skipped.
//   - A miss subtracts PenaltyPerMiss with a floor of zero.
//   - The tracker never mutates the difference collection it reads.

package scoring

import (
	"math"
	"time"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/clock"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
)

// Image identifies which picture received the click.
type Image string

const (
	ImageOriginal Image = "original"
	ImageModified Image = "modified"
)

// ClickContext is caller-supplied metadata echoed back in WrongClick.
type ClickContext struct {
	Image Image `json:"imageType,omitempty"`
}

// WrongClick is the most recent miss.
type WrongClick struct {
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Timestamp time.Time    `json:"timestamp"`
	Context   ClickContext `json:"context"`
}

// Result describes the outcome of one click.
type Result struct {
	Hit        bool                 `json:"hit"`
	Difference *geometry.Difference `json:"difference,omitempty"`
}

// State is a copy of the tracker's values.
type State struct {
	Score            int         `json:"score"`
	Attempts         int         `json:"attempts"`
	FoundDifferences []int       `json:"foundDifferences"`
	WrongClick       *WrongClick `json:"wrongClick"`
}

// Tracker is not safe for concurrent use; the owning session serialises calls.
type Tracker struct {
	clock clock.Clock
	rules Rules
	diffs geometry.Collection

	found      []int
	foundSet   map[int]struct{}
	score      int
	attempts   int
	wrongClick *WrongClick
}

// NewTracker builds a tracker over diffs with rules merged onto Defaults.
func NewTracker(c clock.Clock, diffs geometry.Collection, o Overrides) *Tracker {
	return &Tracker{
		clock:    c,
		rules:    Merge(Defaults, o),
		diffs:    diffs,
		found:    []int{},
		foundSet: map[int]struct{}{},
	}
}

// Rules returns the effective scoring rules.
func (t *Tracker) Rules() Rules { return t.rules }

// SetDifferences swaps the collection snapshot used for hit-testing. Found
// ids that are not in diffs are dropped; the score already earned stays.
func (t *Tracker) SetDifferences(diffs geometry.Collection) {
	t.diffs = diffs
	kept := t.found[:0:0]
	for _, id := range t.found {
		if diffs.Has(id) {
			kept = append(kept, id)
		} else {
			delete(t.foundSet, id)
		}
	}
	t.found = kept
}

// Total is the number of differences in the current collection.
func (t *Tracker) Total() int { return len(t.diffs) }

// RegisterClick resolves a click at (x, y) in percent space.
func (t *Tracker) RegisterClick(x, y float64, ctx ClickContext) Result {
	t.attempts++

	for i := range t.diffs {
		d := t.diffs[i]
		if _, done := t.foundSet[d.ID]; done {
			continue
		}
		if !geometry.WithinShape(d, x, y) {
			continue
		}
		t.found = append(t.found, d.ID)
		t.foundSet[d.ID] = struct{}{}
		t.score += t.rules.PointsPerHit
		t.wrongClick = nil
		hit := d.Clone()
		return Result{Hit: true, Difference: &hit}
	}

	t.score = max(0, t.score-t.rules.PenaltyPerMiss)
	t.wrongClick = &WrongClick{X: x, Y: y, Timestamp: t.clock.Now(), Context: ctx}
	return Result{}
}

// ApplyBonus adds secondsRemaining*BonusPerSecond when secondsRemaining > 0.
func (t *Tracker) ApplyBonus(secondsRemaining int) {
	if secondsRemaining > 0 {
		t.score += secondsRemaining * t.rules.BonusPerSecond
	}
}

// Reset clears the round.
func (t *Tracker) Reset() {
	t.found = []int{}
	t.foundSet = map[int]struct{}{}
	t.score = 0
	t.attempts = 0
	t.wrongClick = nil
}

// FoundCount is len(FoundDifferences).
func (t *Tracker) FoundCount() int { return len(t.found) }

// Complete reports whether every difference has been found.
func (t *Tracker) Complete() bool {
	if len(t.diffs) == 0 {
		return false
	}
	for _, d := range t.diffs {
		if _, ok := t.foundSet[d.ID]; !ok {
			return false
		}
	}
	return true
}

// Accuracy is found/attempts as a rounded percentage.
func (t *Tracker) Accuracy() int {
	if t.attempts == 0 {
		return 0
	}
	return int(math.Round(float64(len(t.found)) / float64(t.attempts) * 100))
}

// Snapshot copies the current state.
func (t *Tracker) Snapshot() State {
	found := make([]int, len(t.found))
	copy(found, t.found)
	var wc *WrongClick
	if t.wrongClick != nil {
		c := *t.wrongClick
		wc = &c
	}
	return State{
		Score:            t.score,
		Attempts:         t.attempts,
		FoundDifferences: found,
		WrongClick:       wc,
	}
}
