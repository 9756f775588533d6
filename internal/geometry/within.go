package geometry

import "math"

// polygonEpsilon guards the ray-cast division when an edge is horizontal.
const polygonEpsilon = 0.00001

// WithinShape reports whether (x, y) falls inside d's shape, expanded by
// d.Tolerance for circles and rects. Unknown or missing shapes never match.
func WithinShape(d Difference, x, y float64) bool {
	switch s := d.Shape.(type) {
	case Circle:
		return math.Hypot(x-d.X, y-d.Y) <= s.Radius+d.Tolerance
	case Rect:
		halfW := s.Width/2 + d.Tolerance
		halfH := s.Height/2 + d.Tolerance
		return x >= d.X-halfW && x <= d.X+halfW &&
			y >= d.Y-halfH && y <= d.Y+halfH
	case Polygon:
		return pointInPolygon(s.Points, x, y)
	default:
		return false
	}
}

// pointInPolygon is the even-odd ray casting test.
func pointInPolygon(pts []Point, x, y float64) bool {
	inside := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		xi, yi := pts[i].X, pts[i].Y
		xj, yj := pts[j].X, pts[j].Y
		if (yi > y) == (yj > y) {
			continue
		}
		dy := yj - yi
		if dy == 0 {
			dy = polygonEpsilon
		}
		if x < (xj-xi)*(y-yi)/dy+xi {
			inside = !inside
		}
	}
	return inside
}
