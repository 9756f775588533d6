package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAdvanceFiresInOrder(t *testing.T) {
	c := NewFake(epoch)
	var got []int
	c.AfterFunc(2*time.Second, func() { got = append(got, 2) })
	c.AfterFunc(1*time.Second, func() { got = append(got, 1) })
	c.AfterFunc(5*time.Second, func() { got = append(got, 5) })

	c.Advance(3 * time.Second)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("fired %v, want [1 2]", got)
	}
	if !c.Now().Equal(epoch.Add(3 * time.Second)) {
		t.Fatalf("now = %v", c.Now())
	}
	if c.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", c.Pending())
	}
}

func TestFakeRearmDuringAdvance(t *testing.T) {
	c := NewFake(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(5 * time.Second)
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}

func TestFakeStop(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatalf("first Stop should report true")
	}
	if tm.Stop() {
		t.Fatalf("second Stop should report false")
	}
	c.Advance(time.Minute)
	if fired {
		t.Fatalf("stopped timer fired")
	}
}

func TestFrameSchedulerCoalesces(t *testing.T) {
	c := NewFake(epoch)
	s := NewFrameScheduler(c, 0)
	var got []int
	for i := 1; i <= 10; i++ {
		i := i
		s.Request(func() { got = append(got, i) })
	}
	if c.Pending() != 1 {
		t.Fatalf("expected a single armed frame, got %d", c.Pending())
	}
	c.Advance(FrameInterval)
	if len(got) != 1 || got[0] != 10 {
		t.Fatalf("got %v, want only the latest request", got)
	}

	s.Request(func() { got = append(got, 99) })
	s.Cancel()
	c.Advance(time.Second)
	if len(got) != 1 {
		t.Fatalf("cancelled frame ran: %v", got)
	}
}

func TestManualFrames(t *testing.T) {
	m := NewManualFrames()
	last := 0
	m.Request(func() { last = 1 })
	m.Request(func() { last = 2 })
	if !m.Flush() || last != 2 {
		t.Fatalf("flush ran %d, want 2", last)
	}
	if m.Flush() {
		t.Fatalf("second flush should be empty")
	}
	req, del := m.Stats()
	if req != 2 || del != 1 {
		t.Fatalf("stats = %d/%d, want 2/1", req, del)
	}
}

func TestDebouncerRestartsWindow(t *testing.T) {
	c := NewFake(epoch)
	d := NewDebouncer(c, 200*time.Millisecond)
	runs := []string{}

	d.Trigger(func() { runs = append(runs, "a") })
	c.Advance(150 * time.Millisecond)
	d.Trigger(func() { runs = append(runs, "b") })
	c.Advance(150 * time.Millisecond)
	if len(runs) != 0 {
		t.Fatalf("ran early: %v", runs)
	}
	c.Advance(50 * time.Millisecond)
	if len(runs) != 1 || runs[0] != "b" {
		t.Fatalf("runs = %v, want [b]", runs)
	}
}

func TestDebouncerCancelAndFlush(t *testing.T) {
	c := NewFake(epoch)
	d := NewDebouncer(c, time.Second)
	ran := 0

	d.Trigger(func() { ran++ })
	d.Cancel()
	c.Advance(2 * time.Second)
	if ran != 0 {
		t.Fatalf("cancelled run executed")
	}

	d.Trigger(func() { ran++ })
	if !d.Pending() {
		t.Fatalf("expected pending run")
	}
	if !d.Flush() || ran != 1 {
		t.Fatalf("flush did not run: %d", ran)
	}
	c.Advance(2 * time.Second)
	if ran != 1 {
		t.Fatalf("flushed run executed twice")
	}
}

func TestFrameFireAfterCancelLeavesNextRequest(t *testing.T) {
	c := NewFake(epoch)
	s := NewFrameScheduler(c, 0).(*clockFrames)

	ran := 0
	s.Request(func() { t.Fatalf("cancelled frame ran") })
	stale := s.gen
	s.Cancel()
	s.Request(func() { ran++ })

	// A fire that was already running when Cancel happened.
	s.fire(stale)
	if ran != 0 || s.timer == nil || s.pending == nil {
		t.Fatalf("stale fire consumed the new request: ran=%d", ran)
	}

	c.Advance(FrameInterval)
	if ran != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
}
