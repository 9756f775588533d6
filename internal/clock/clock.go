// internal/clock/clock.go
//
// Time sources and one-shot scheduling for the engines.
// Responsibilities:
//   - Clock: Now() plus AfterFunc() so engines never call the time package directly.
//   - Real: wall clock backed by time.AfterFunc.
//   - Fake (fake.go): manually advanced clock for deterministic tests.
//
// Every scheduled callback is a single one-shot timer. Engines that need a
// repeating tick re-arm after each fire, which keeps pause/cancel trivial.

package clock

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already ran
	// or was already stopped.
	Stop() bool
}

// Clock supplies the current time and one-shot callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns the system clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
