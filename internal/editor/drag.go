package editor

import "github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"

// ContainerRect is the image box a drag or add-click is measured against.
type ContainerRect = geometry.Viewport

// dragSession lives while a pointer button is held on a difference.
type dragSession struct {
	id            int
	rect          ContainerRect
	startPointerX float64
	startPointerY float64
	startX        float64
	startY        float64
}

// BeginDrag starts moving id from the given pointer position. It also
// selects id. It reports false for unknown ids or an empty container.
func (e *Engine) BeginDrag(id int, pointerX, pointerY float64, rect ContainerRect) bool {
	if !rect.Valid() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.diffs.Find(id)
	if idx < 0 {
		return false
	}
	e.cancelDragLocked()
	d := e.diffs[idx]
	e.selected, e.hasSel = id, true
	e.drag = &dragSession{
		id:            id,
		rect:          rect,
		startPointerX: pointerX,
		startPointerY: pointerY,
		startX:        d.X,
		startY:        d.Y,
	}
	return true
}

// Dragging reports the id being dragged, if any.
func (e *Engine) Dragging() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag == nil {
		return 0, false
	}
	return e.drag.id, true
}

// UpdateDrag queues a pointer move. Moves arriving within one frame are
// coalesced; only the latest is applied when the frame fires.
func (e *Engine) UpdateDrag(pointerX, pointerY float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag == nil {
		return
	}
	gen := e.dragGen
	e.frames.Request(func() { e.applyDrag(gen, pointerX, pointerY) })
}

func (e *Engine) applyDrag(gen uint64, pointerX, pointerY float64) {
	e.mu.Lock()
	s := e.drag
	if s == nil || gen != e.dragGen {
		e.mu.Unlock()
		return
	}
	dx := (pointerX - s.startPointerX) / s.rect.Width * 100
	dy := (pointerY - s.startPointerY) / s.rect.Height * 100
	x := geometry.Round2(geometry.ClampPercent(s.startX+dx, 0, 100))
	y := geometry.Round2(geometry.ClampPercent(s.startY+dy, 0, 100))
	deliver, ok := e.updateLocked(s.id, func(d *geometry.Difference) bool {
		if d.X == x && d.Y == y {
			return false
		}
		d.X, d.Y = x, y
		return true
	})
	e.mu.Unlock()
	if ok {
		deliver()
	}
}

// EndDrag discards the drag session. Selection is kept.
func (e *Engine) EndDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelDragLocked()
}

// cancelDragLocked ends the session and drops any queued frame.
func (e *Engine) cancelDragLocked() {
	e.frames.Cancel()
	e.drag = nil
	e.dragGen++
}
