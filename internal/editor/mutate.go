package editor

import (
	"math"
	"strconv"
	"strings"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
)

// Field names a numeric property editable through SetFieldAbsolute.
type Field string

const (
	FieldX         Field = "x"
	FieldY         Field = "y"
	FieldRadius    Field = "radius"
	FieldWidth     Field = "width"
	FieldHeight    Field = "height"
	FieldTolerance Field = "tolerance"
)

// Nudge moves id by (dx, dy) percent, clamped to [0,100].
func (e *Engine) Nudge(id int, dx, dy float64) bool {
	return e.update(id, func(d *geometry.Difference) bool {
		d.X = geometry.Round2(geometry.ClampPercent(d.X+dx, 0, 100))
		d.Y = geometry.Round2(geometry.ClampPercent(d.Y+dy, 0, 100))
		return true
	})
}

// AdjustRadius changes a circle's radius by delta, floored at MinRadius.
func (e *Engine) AdjustRadius(id int, delta float64) bool {
	return e.update(id, func(d *geometry.Difference) bool {
		c, ok := d.Shape.(geometry.Circle)
		if !ok {
			return false
		}
		c.Radius = geometry.Round2(math.Max(MinRadius, c.Radius+delta))
		d.Shape = c
		return true
	})
}

// AdjustDimension changes a rect's width or height by delta, floored at
// MinRectDimension.
func (e *Engine) AdjustDimension(id int, field Field, delta float64) bool {
	if field != FieldWidth && field != FieldHeight {
		return false
	}
	return e.update(id, func(d *geometry.Difference) bool {
		r, ok := d.Shape.(geometry.Rect)
		if !ok {
			return false
		}
		if field == FieldWidth {
			r.Width = geometry.Round2(math.Max(MinRectDimension, r.Width+delta))
		} else {
			r.Height = geometry.Round2(math.Max(MinRectDimension, r.Height+delta))
		}
		d.Shape = r
		return true
	})
}

// AdjustTolerance changes the hit margin by delta, floored at MinTolerance.
func (e *Engine) AdjustTolerance(id int, delta float64) bool {
	return e.update(id, func(d *geometry.Difference) bool {
		if !editable(d) {
			return false
		}
		d.Tolerance = geometry.Round2(math.Max(MinTolerance, d.Tolerance+delta))
		return true
	})
}

// SetFieldAbsolute parses raw and assigns it to field. Input that is not a
// finite number leaves the collection unchanged.
func (e *Engine) SetFieldAbsolute(id int, field Field, raw string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return e.update(id, func(d *geometry.Difference) bool {
		if !editable(d) {
			return false
		}
		switch field {
		case FieldX:
			d.X = geometry.Round2(geometry.ClampPercent(v, 0, 100))
		case FieldY:
			d.Y = geometry.Round2(geometry.ClampPercent(v, 0, 100))
		case FieldTolerance:
			d.Tolerance = geometry.Round2(math.Max(MinTolerance, v))
		case FieldRadius:
			c, ok := d.Shape.(geometry.Circle)
			if !ok {
				return false
			}
			c.Radius = geometry.Round2(math.Max(MinRadius, v))
			d.Shape = c
		case FieldWidth, FieldHeight:
			r, ok := d.Shape.(geometry.Rect)
			if !ok {
				return false
			}
			if field == FieldWidth {
				r.Width = geometry.Round2(math.Max(MinRectDimension, v))
			} else {
				r.Height = geometry.Round2(math.Max(MinRectDimension, v))
			}
			d.Shape = r
		default:
			return false
		}
		return true
	})
}

// ChangeShapeType converts between circle and rect. Polygons are neither a
// valid source nor target. Converting back restores the size the difference
// had before its last conversion.
func (e *Engine) ChangeShapeType(id int, next geometry.Kind) bool {
	return e.update(id, func(d *geometry.Difference) bool {
		var converted geometry.Shape
		switch s := d.Shape.(type) {
		case geometry.Circle:
			if next != geometry.KindRect {
				return false
			}
			side := geometry.Round2(math.Max(minConvertedRect, s.Radius*2))
			converted = geometry.Rect{Width: side, Height: side}
		case geometry.Rect:
			if next != geometry.KindCircle {
				return false
			}
			base := s.Width
			if base <= 0 {
				base = s.Height
			}
			if base <= 0 {
				base = DefaultRectWidth
			}
			converted = geometry.Circle{Radius: geometry.Round2(base / 2)}
		default:
			return false
		}
		if prior, ok := e.priorShape[d.ID]; ok && prior.Kind() == next {
			converted = prior
		}
		e.priorShape[d.ID] = d.Shape
		d.Shape = converted
		return true
	})
}

func (e *Engine) Remove(id int) bool {
	e.mu.Lock()
	idx := e.diffs.Find(id)
	if idx < 0 {
		e.mu.Unlock()
		return false
	}
	next := make(geometry.Collection, 0, len(e.diffs)-1)
	for _, d := range e.diffs {
		if d.ID != id {
			next = append(next, d.Clone())
		}
	}
	if e.hasSel && e.selected == id {
		e.selected, e.hasSel = 0, false
	}
	delete(e.priorShape, id)
	if e.drag != nil && e.drag.id == id {
		e.cancelDragLocked()
	}
	deliver := e.commitLocked(next)
	e.mu.Unlock()
	deliver()
	return true
}

// Add creates a default circle at (xPercent, yPercent) and selects it.
// Ids are max+1 and never reuse an id removed earlier in this session.
func (e *Engine) Add(xPercent, yPercent float64) geometry.Difference {
	e.mu.Lock()
	id := max(e.diffs.MaxID(), e.highWater) + 1
	e.highWater = id
	d := geometry.Difference{
		ID:        id,
		Name:      e.opts.NamePrefix + " " + strconv.Itoa(id),
		X:         geometry.Round2(geometry.ClampPercent(xPercent, 0, 100)),
		Y:         geometry.Round2(geometry.ClampPercent(yPercent, 0, 100)),
		Tolerance: DefaultTolerance,
		Shape:     geometry.Circle{Radius: DefaultRadius},
	}
	next := append(e.diffs.Clone(), d)
	e.selected, e.hasSel = id, true
	deliver := e.commitLocked(next)
	e.mu.Unlock()
	deliver()
	return d
}

// AddAt converts a click in client pixels to percent and calls Add.
func (e *Engine) AddAt(clientX, clientY float64, rect ContainerRect) (geometry.Difference, bool) {
	if !rect.Valid() {
		return geometry.Difference{}, false
	}
	x, y := rect.ToPercent(clientX, clientY)
	return e.Add(x, y), true
}

// editable reports whether numeric edits apply. Polygons are read-only.
func editable(d *geometry.Difference) bool {
	_, isPolygon := d.Shape.(geometry.Polygon)
	return !isPolygon
}
