// internal/game/types.go
//
// Type definitions for a play session.
// Defines:
//   - Status: round lifecycle (ready → playing → won | timeout).
//   - Snapshot: everything a client needs to render the round.
//   - Event: pushed to listeners on ticks, clicks and status changes.

package game

import (
	"time"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/countdown"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/scoring"
)

// Status is the coarse round state.
type Status string

const (
	StatusReady   Status = "ready"
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusTimeout Status = "timeout"
)

// Finished reports whether the round has ended.
func (s Status) Finished() bool { return s == StatusWon || s == StatusTimeout }

// Snapshot is a point-in-time copy of a round.
type Snapshot struct {
	ID               string              `json:"id"`
	LevelID          string              `json:"levelId"`
	Status           Status              `json:"status"`
	Score            int                 `json:"score"`
	Attempts         int                 `json:"attempts"`
	Accuracy         int                 `json:"accuracy"`
	FoundDifferences []int               `json:"foundDifferences"`
	Total            int                 `json:"total"`
	WrongClick       *scoring.WrongClick `json:"wrongClick"`
	Rules            scoring.Rules       `json:"rules"`
	Timer            countdown.Snapshot  `json:"timer"`
	Clock            string              `json:"clock"`
	StartedAt        *time.Time          `json:"startedAt,omitempty"`
	FinishedAt       *time.Time          `json:"finishedAt,omitempty"`
}

// Elapsed is the play time of a finished round, or zero.
func (s Snapshot) Elapsed() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}

// EventType tags an Event.
type EventType string

const (
	EventTick   EventType = "tick"
	EventClick  EventType = "click"
	EventStatus EventType = "status"
)

// Event is delivered to listeners after the session lock is released.
type Event struct {
	Type     EventType       `json:"type"`
	Snapshot Snapshot        `json:"snapshot"`
	Click    *scoring.Result `json:"click,omitempty"`
}
