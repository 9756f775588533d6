// internal/geometry/difference.go
//
// Data model for difference zones.
// Defines:
//   - Shape: closed sum type over Circle, Rect, Polygon (plus Unknown for
//     records whose type tag this build does not recognise).
//   - Difference: one clickable zone in 0-100 percent space.
//   - Collection: ordered list of differences with id helpers.
//
// All coordinates are percentages of the container width/height, so the
// same record works at any rendered resolution.

package geometry

import "math"

// Kind is the wire tag of a shape ("circle", "rect", "polygon").
type Kind string

const (
	KindCircle  Kind = "circle"
	KindRect    Kind = "rect"
	KindPolygon Kind = "polygon"
)

// Shape is implemented only by the variants in this package.
type Shape interface {
	Kind() Kind
	isShape()
}

// Point is a polygon vertex in percent space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Circle is centered on the owning Difference's X/Y.
type Circle struct {
	Radius float64
}

// Rect is an axis-aligned box centered on the owning Difference's X/Y.
type Rect struct {
	Width  float64
	Height float64
}

// Polygon is an ordered vertex list. Tolerance does not apply to polygons.
type Polygon struct {
	Points []Point
}

// Unknown preserves an unrecognised type tag. It never registers a hit.
type Unknown struct {
	Type string
}

func (Circle) Kind() Kind    { return KindCircle }
func (Rect) Kind() Kind      { return KindRect }
func (Polygon) Kind() Kind   { return KindPolygon }
func (u Unknown) Kind() Kind { return Kind(u.Type) }

func (Circle) isShape()  {}
func (Rect) isShape()    {}
func (Polygon) isShape() {}
func (Unknown) isShape() {}

// Difference is the unit of gameplay and authoring.
type Difference struct {
	ID        int
	Name      string
	X         float64
	Y         float64
	Tolerance float64
	Shape     Shape
}

// Kind reports the shape tag, or "" when no shape is set.
func (d Difference) Kind() Kind {
	if d.Shape == nil {
		return ""
	}
	return d.Shape.Kind()
}

// Clone returns a deep copy (polygon points are not shared).
func (d Difference) Clone() Difference {
	if p, ok := d.Shape.(Polygon); ok {
		pts := make([]Point, len(p.Points))
		copy(pts, p.Points)
		d.Shape = Polygon{Points: pts}
	}
	return d
}

// Collection is an ordered set of differences. Order matters: hit-testing
// resolves ties by position in the collection.
type Collection []Difference

// Find returns the index of id, or -1.
func (c Collection) Find(id int) int {
	for i, d := range c {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Has reports whether id is present.
func (c Collection) Has(id int) bool { return c.Find(id) >= 0 }

// IDs lists ids in collection order.
func (c Collection) IDs() []int {
	out := make([]int, len(c))
	for i, d := range c {
		out[i] = d.ID
	}
	return out
}

// MaxID returns the largest id, or 0 for an empty collection.
func (c Collection) MaxID() int {
	max := 0
	for _, d := range c {
		if d.ID > max {
			max = d.ID
		}
	}
	return max
}

// NextID returns max(ids)+1, or 1 when empty.
func (c Collection) NextID() int { return c.MaxID() + 1 }

// Clone deep-copies the collection so the result can be mutated freely.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i, d := range c {
		out[i] = d.Clone()
	}
	return out
}

// ClampPercent limits v to [min, max]; NaN maps to min.
func ClampPercent(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	return math.Min(math.Max(v, min), max)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
