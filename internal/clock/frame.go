package clock

import (
	"sync"
	"time"
)

// FrameInterval approximates one display refresh at 60Hz.
const FrameInterval = 16 * time.Millisecond

// FrameScheduler coalesces work to at most one callback per frame. A new
// Request replaces any callback still waiting for the current frame.
type FrameScheduler interface {
	Request(f func())
	Cancel()
}

// clockFrames drives frames from a Clock.
type clockFrames struct {
	clock    Clock
	interval time.Duration

	mu      sync.Mutex
	pending func()
	timer   Timer
	gen     uint64
}

// NewFrameScheduler returns a scheduler that fires interval after the first
// outstanding request. interval <= 0 uses FrameInterval.
func NewFrameScheduler(c Clock, interval time.Duration) FrameScheduler {
	if interval <= 0 {
		interval = FrameInterval
	}
	return &clockFrames{clock: c, interval: interval}
}

func (s *clockFrames) Request(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = f
	if s.timer == nil {
		gen := s.gen
		s.timer = s.clock.AfterFunc(s.interval, func() { s.fire(gen) })
	}
}

func (s *clockFrames) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		// cancelled; a later Request owns pending and timer
		s.mu.Unlock()
		return
	}
	s.gen++
	f := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()
	if f != nil {
		f()
	}
}

func (s *clockFrames) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.pending = nil
}

// ManualFrames is a FrameScheduler advanced explicitly with Flush.
type ManualFrames struct {
	mu        sync.Mutex
	pending   func()
	requests  int
	delivered int
}

// NewManualFrames returns an idle manual scheduler.
func NewManualFrames() *ManualFrames { return &ManualFrames{} }

func (m *ManualFrames) Request(f func()) {
	m.mu.Lock()
	m.pending = f
	m.requests++
	m.mu.Unlock()
}

func (m *ManualFrames) Cancel() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

// Flush runs the latest pending callback, if any. It reports whether a
// callback ran.
func (m *ManualFrames) Flush() bool {
	m.mu.Lock()
	f := m.pending
	m.pending = nil
	if f != nil {
		m.delivered++
	}
	m.mu.Unlock()
	if f == nil {
		return false
	}
	f()
	return true
}

// Stats returns (requests seen, callbacks delivered).
func (m *ManualFrames) Stats() (requests, delivered int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests, m.delivered
}
