package game

import (
	"testing"
	"time"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/clock"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/countdown"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/level"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/scoring"
)

func testLevel(limit int) level.Level {
	return level.Level{
		ID:        "parque",
		TimeLimit: &limit,
		Differences: geometry.Collection{
			{ID: 1, X: 10, Y: 10, Shape: geometry.Circle{Radius: 5}},
			{ID: 2, X: 50, Y: 50, Shape: geometry.Rect{Width: 10, Height: 10}},
		},
	}
}

func newGame(limit int) (*Game, *clock.Fake) {
	fc := clock.NewFake(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	return New(testLevel(limit), Options{Clock: fc}), fc
}

var modified = scoring.ClickContext{Image: scoring.ImageModified}

func TestStartRequiresDifferences(t *testing.T) {
	fc := clock.NewFake(time.Now())
	g := New(level.Level{ID: "empty"}, Options{Clock: fc})
	if g.Start() {
		t.Fatalf("start should refuse an empty level")
	}
	if g.Status() != StatusReady || fc.Pending() != 0 {
		t.Fatalf("empty start changed state")
	}
}

func TestClicksIgnoredUntilStarted(t *testing.T) {
	g, _ := newGame(10)
	if _, ok := g.Click(10, 10, modified); ok {
		t.Fatalf("click accepted before start")
	}
	if s := g.Snapshot(); s.Attempts != 0 {
		t.Fatalf("attempts = %d", s.Attempts)
	}
}

func TestVictoryAppliesBonusAndPausesTimer(t *testing.T) {
	g, fc := newGame(10)
	g.Start()
	fc.Advance(3 * time.Second)

	if res, _ := g.Click(10, 10, modified); !res.Hit || res.Difference.ID != 1 {
		t.Fatalf("first click = %+v", res)
	}
	if g.Status() != StatusPlaying {
		t.Fatalf("round ended early")
	}
	g.Click(52, 48, modified)

	s := g.Snapshot()
	if s.Status != StatusWon {
		t.Fatalf("status = %s, want won", s.Status)
	}
	// 2*200 + 7s*10
	if s.Score != 470 {
		t.Fatalf("score = %d, want 470", s.Score)
	}
	if s.Timer.Running || s.Timer.TimeLeft != 7 {
		t.Fatalf("timer = %+v", s.Timer)
	}
	if s.Elapsed() != 3*time.Second {
		t.Fatalf("elapsed = %v", s.Elapsed())
	}

	fc.Advance(30 * time.Second)
	if after := g.Snapshot(); after.Status != StatusWon || after.Score != 470 {
		t.Fatalf("state changed after victory: %+v", after)
	}
	if _, ok := g.Click(10, 10, modified); ok {
		t.Fatalf("click accepted after victory")
	}
}

func TestTimeoutEndsRound(t *testing.T) {
	g, fc := newGame(5)
	var statuses []Status
	g.Subscribe(func(ev Event) {
		if ev.Type == EventStatus {
			statuses = append(statuses, ev.Snapshot.Status)
		}
	})
	g.Start()
	g.Click(90, 90, modified)
	fc.Advance(5 * time.Second)

	s := g.Snapshot()
	if s.Status != StatusTimeout || s.Timer.State != countdown.Expired {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Score != 0 || s.Attempts != 1 {
		t.Fatalf("score/attempts = %d/%d", s.Score, s.Attempts)
	}
	if len(statuses) != 2 || statuses[0] != StatusPlaying || statuses[1] != StatusTimeout {
		t.Fatalf("status events = %v", statuses)
	}
	if _, ok := g.Click(10, 10, modified); ok {
		t.Fatalf("click accepted after timeout")
	}
}

func TestZeroLimitTimesOutImmediately(t *testing.T) {
	g, fc := newGame(0)
	g.Start()
	if g.Status() != StatusTimeout {
		t.Fatalf("status = %s, want timeout", g.Status())
	}
	if fc.Pending() != 0 {
		t.Fatalf("timer still armed")
	}
}

func TestTickEvents(t *testing.T) {
	g, fc := newGame(10)
	var clocks []string
	g.Subscribe(func(ev Event) {
		if ev.Type == EventTick {
			clocks = append(clocks, ev.Snapshot.Clock)
		}
	})
	g.Start()
	if s := g.Snapshot(); s.Clock != "0:10" {
		t.Fatalf("clock = %q", s.Clock)
	}
	fc.Advance(2 * time.Second)
	if len(clocks) != 2 || clocks[0] != "0:09" || clocks[1] != "0:08" {
		t.Fatalf("ticks = %v", clocks)
	}
}

func TestResetRestoresReady(t *testing.T) {
	g, fc := newGame(10)
	g.Start()
	g.Click(10, 10, modified)
	fc.Advance(4 * time.Second)
	g.Reset()

	s := g.Snapshot()
	if s.Status != StatusReady || s.Score != 0 || len(s.FoundDifferences) != 0 {
		t.Fatalf("after reset = %+v", s)
	}
	if s.Timer.TimeLeft != 10 || s.Timer.State != countdown.Idle {
		t.Fatalf("timer after reset = %+v", s.Timer)
	}
	fc.Advance(20 * time.Second)
	if g.Status() != StatusReady {
		t.Fatalf("stale tick ended a reset round")
	}
}

func TestRestartAfterFinish(t *testing.T) {
	g, fc := newGame(3)
	g.Start()
	fc.Advance(3 * time.Second)
	if g.Status() != StatusTimeout {
		t.Fatalf("expected timeout")
	}
	g.Start()
	s := g.Snapshot()
	if s.Status != StatusPlaying || s.Timer.TimeLeft != 3 || s.Attempts != 0 {
		t.Fatalf("restart = %+v", s)
	}
}

func TestSetDifferencesCanCompleteRound(t *testing.T) {
	g, _ := newGame(10)
	g.Start()
	g.Click(10, 10, modified)
	g.SetDifferences(geometry.Collection{{ID: 1, X: 10, Y: 10, Shape: geometry.Circle{Radius: 5}}})
	if g.Status() != StatusWon {
		t.Fatalf("status = %s, want won", g.Status())
	}
}

func TestRemovedDifferenceDoesNotCountTowardVictory(t *testing.T) {
	fc := clock.NewFake(time.Now())
	lv := level.Level{ID: "tres", Differences: geometry.Collection{
		{ID: 1, X: 10, Y: 10, Shape: geometry.Circle{Radius: 3}},
		{ID: 2, X: 50, Y: 50, Shape: geometry.Circle{Radius: 3}},
		{ID: 3, X: 90, Y: 90, Shape: geometry.Circle{Radius: 3}},
	}}
	g := New(lv, Options{Clock: fc})
	g.Start()
	g.Click(10, 10, modified)
	g.Click(50, 50, modified)

	g.SetDifferences(lv.Differences[1:])
	s := g.Snapshot()
	if s.Status != StatusPlaying {
		t.Fatalf("status = %s, want playing", s.Status)
	}
	if len(s.FoundDifferences) != 1 || s.FoundDifferences[0] != 2 || s.Total != 2 {
		t.Fatalf("found = %v total = %d", s.FoundDifferences, s.Total)
	}

	g.Click(90, 90, modified)
	if g.Status() != StatusWon {
		t.Fatalf("status = %s after last hit", g.Status())
	}
}

func TestClickPixelsAndAccuracy(t *testing.T) {
	g, _ := newGame(10)
	g.Start()
	vp := geometry.Viewport{Left: 0, Top: 0, Width: 200, Height: 100}
	if res, ok := g.ClickPixels(20, 10, vp, modified); !ok || !res.Hit {
		t.Fatalf("pixel click at 10%%,10%% should hit: %+v %v", res, ok)
	}
	g.ClickPixels(190, 90, vp, modified)
	g.ClickPixels(180, 5, vp, modified)
	s := g.Snapshot()
	if s.Accuracy != 33 {
		t.Fatalf("accuracy = %d, want 33", s.Accuracy)
	}
	if s.WrongClick == nil || s.WrongClick.Context.Image != scoring.ImageModified {
		t.Fatalf("wrong click = %+v", s.WrongClick)
	}
	if _, ok := g.ClickPixels(1, 1, geometry.Viewport{}, modified); ok {
		t.Fatalf("empty viewport accepted")
	}
}

func TestLevelRulesApply(t *testing.T) {
	lv := testLevel(10)
	p := 300
	lv.PointsPerHit = &p
	g := New(lv, Options{Clock: clock.NewFake(time.Now())})
	g.Start()
	g.Click(10, 10, modified)
	if s := g.Snapshot(); s.Score != 300 || s.Rules.PenaltyPerMiss != scoring.Defaults.PenaltyPerMiss {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestFormatTime(t *testing.T) {
	cases := map[int]string{0: "0:00", 5: "0:05", 65: "1:05", 120: "2:00", 600: "10:00", -3: "0:00"}
	for in, want := range cases {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%d) = %q, want %q", in, got, want)
		}
	}
}
