package editor

// Arrow key names as reported by browsers (KeyboardEvent.key).
const (
	KeyUp    = "ArrowUp"
	KeyDown  = "ArrowDown"
	KeyLeft  = "ArrowLeft"
	KeyRight = "ArrowRight"
)

// HandleKey nudges the selected difference for an arrow key. fine selects
// the small step (Shift held). It reports whether the key was consumed.
func (e *Engine) HandleKey(key string, fine bool) bool {
	e.mu.Lock()
	enabled, id, ok := e.enabled, e.selected, e.hasSel
	e.mu.Unlock()
	if !enabled || !ok {
		return false
	}

	step := NudgeStepNormal
	if fine {
		step = NudgeStepFine
	}
	switch key {
	case KeyUp:
		e.Nudge(id, 0, -step)
	case KeyDown:
		e.Nudge(id, 0, step)
	case KeyLeft:
		e.Nudge(id, -step, 0)
	case KeyRight:
		e.Nudge(id, step, 0)
	default:
		return false
	}
	return true
}
