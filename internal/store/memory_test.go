package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/clock"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/game"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/level"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/scoring"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFake(time.Now())
	g := game.New(level.Level{
		ID:          "parque",
		Differences: geometry.Collection{{ID: 1, X: 10, Y: 10, Shape: geometry.Circle{Radius: 5}}},
	}, game.Options{Clock: fc})

	s := NewMemoryStore()
	if _, err := s.Get(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get before save: %v", err)
	}
	if err := s.Save(ctx, g); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get(ctx, g.ID)
	if err != nil || got != g {
		t.Fatalf("get = %v, %v", got, err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}

	g.Start()
	if fc.Pending() == 0 {
		t.Fatalf("started game should have a pending tick")
	}
	if err := s.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if fc.Pending() != 0 {
		t.Fatalf("delete should stop the round timer")
	}
	if err := s.Delete(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSweepEvictsFinishedAndIdleRounds(t *testing.T) {
	ctx := context.Background()
	fc := clock.NewFake(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	limit := 5
	lv := level.Level{
		ID:          "parque",
		TimeLimit:   &limit,
		Differences: geometry.Collection{{ID: 1, X: 10, Y: 10, Shape: geometry.Circle{Radius: 5}}},
	}
	s := NewMemoryStore()

	won := game.New(lv, game.Options{Clock: fc})
	won.Start()
	won.Click(10, 10, scoring.ClickContext{Image: scoring.ImageModified})
	idle := game.New(lv, game.Options{Clock: fc})
	playing := game.New(lv, game.Options{Clock: fc})
	for _, g := range []*game.Game{won, idle, playing} {
		_ = s.Save(ctx, g)
	}
	closed := false
	won.OnClose(func() { closed = true })

	fc.Advance(4 * time.Second)
	playing.Start()
	if n := s.Sweep(fc.Now(), 10*time.Second, 30*time.Second); n != 0 {
		t.Fatalf("nothing is stale yet, evicted %d", n)
	}

	fc.Advance(6 * time.Second)
	if n := s.Sweep(fc.Now(), 10*time.Second, 30*time.Second); n != 1 || !closed {
		t.Fatalf("finished round: evicted %d closed %v", n, closed)
	}
	if _, err := s.Get(ctx, won.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("won round still stored: %v", err)
	}

	fc.Advance(20 * time.Second)
	if n := s.Sweep(fc.Now(), 0, 30*time.Second); n != 1 {
		t.Fatalf("idle sweep evicted %d", n)
	}
	if _, err := s.Get(ctx, idle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle round still stored: %v", err)
	}
	if _, err := s.Get(ctx, playing.ID); err != nil {
		t.Fatalf("recent round evicted: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}
}
