// internal/store/memory.go
//
// In-memory registry of live play sessions.
//
// Characteristics:
//   - Stores *game.Game keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Delete closes the session so its timer stops ticking.
//   - Sweep evicts finished and abandoned sessions the same way.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/game"
)

// ErrNotFound is returned for unknown game ids.
var ErrNotFound = errors.New("store: game not found")

// Store defines the registry interface for play sessions.
type Store interface {
	// Save adds or replaces a session.
	Save(ctx context.Context, g *game.Game) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.Game, error)

	// Delete closes and removes a session. Unknown ids return ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Len reports the number of live sessions.
	Len() int

	// Sweep closes and removes sessions that finished at least finishedTTL
	// before now, or saw no activity for idleTTL. A zero TTL disables that
	// rule. It returns the number evicted.
	Sweep(now time.Time, finishedTTL, idleTTL time.Duration) int
}

// SweepPolicy holds the eviction windows for RunSweeper.
type SweepPolicy struct {
	Interval    time.Duration
	FinishedTTL time.Duration
	IdleTTL     time.Duration
}

type memory struct {
	mu    sync.RWMutex
	games map[string]*game.Game
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.Game)}
}

func (m *memory) Save(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	g, ok := m.games[id]
	delete(m.games, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	g.Close()
	return nil
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

func (m *memory) Sweep(now time.Time, finishedTTL, idleTTL time.Duration) int {
	m.mu.RLock()
	candidates := make([]*game.Game, 0, len(m.games))
	for _, g := range m.games {
		candidates = append(candidates, g)
	}
	m.mu.RUnlock()

	var stale []*game.Game
	for _, g := range candidates {
		last, finished := g.Activity()
		switch {
		case finishedTTL > 0 && !finished.IsZero() && now.Sub(finished) >= finishedTTL:
		case idleTTL > 0 && now.Sub(last) >= idleTTL:
		default:
			continue
		}
		stale = append(stale, g)
	}
	if len(stale) == 0 {
		return 0
	}

	evicted := stale[:0]
	m.mu.Lock()
	for _, g := range stale {
		if m.games[g.ID] == g {
			delete(m.games, g.ID)
			evicted = append(evicted, g)
		}
	}
	m.mu.Unlock()
	for _, g := range evicted {
		g.Close()
	}
	return len(evicted)
}

// RunSweeper calls s.Sweep every p.Interval until ctx is done.
func RunSweeper(ctx context.Context, s Store, now func() time.Time, p SweepPolicy) {
	if p.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(now(), p.FinishedTTL, p.IdleTTL); n > 0 {
				log.Debug().Int("evicted", n).Int("live", s.Len()).Msg("store: swept rounds")
			}
		}
	}
}
