package clock

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function once the window has
// elapsed without another trigger.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu      sync.Mutex
	timer   Timer
	pending func()
	gen     uint64
}

// NewDebouncer builds a Debouncer with the given window.
func NewDebouncer(c Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: c, delay: delay}
}

// Trigger cancels any pending run and restarts the window with f.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = f
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		// superseded by a later Trigger or Cancel
		d.mu.Unlock()
		return
	}
	f := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	f()
}

// Cancel drops the pending run without executing it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = nil
}

// Flush runs the pending function immediately, if there is one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	f := d.pending
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = nil
	d.mu.Unlock()
	if f == nil {
		return false
	}
	f()
	return true
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
