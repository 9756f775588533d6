package geometry

import (
	"encoding/json"
	"fmt"
)

// Fallback sizes applied when a level file omits a shape's dimensions.
const (
	DefaultHitRadius = 5
	DefaultHitWidth  = 10
	DefaultHitHeight = 10
)

// wireDifference is the flat on-disk / on-wire layout shared with level files.
type wireDifference struct {
	ID        int      `json:"id"`
	Type      string   `json:"type"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Radius    *float64 `json:"radius,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Points    []Point  `json:"points,omitempty"`
	Tolerance float64  `json:"tolerance"`
	Name      string   `json:"name,omitempty"`
}

// MarshalJSON writes the flat tagged layout.
func (d Difference) MarshalJSON() ([]byte, error) {
	w := wireDifference{
		ID:        d.ID,
		Type:      string(d.Kind()),
		X:         d.X,
		Y:         d.Y,
		Tolerance: d.Tolerance,
		Name:      d.Name,
	}
	switch s := d.Shape.(type) {
	case Circle:
		w.Radius = &s.Radius
	case Rect:
		w.Width, w.Height = &s.Width, &s.Height
	case Polygon:
		w.Points = s.Points
	case Unknown, nil:
	default:
		return nil, fmt.Errorf("geometry: unsupported shape %T", d.Shape)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat tagged layout. A missing type means circle;
// unknown tags are preserved as Unknown rather than rejected.
func (d *Difference) UnmarshalJSON(b []byte) error {
	var w wireDifference
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Difference{
		ID:        w.ID,
		Name:      w.Name,
		X:         w.X,
		Y:         w.Y,
		Tolerance: w.Tolerance,
	}
	switch Kind(w.Type) {
	case KindCircle, "":
		d.Shape = Circle{Radius: orDefault(w.Radius, DefaultHitRadius)}
	case KindRect:
		d.Shape = Rect{
			Width:  orDefault(w.Width, DefaultHitWidth),
			Height: orDefault(w.Height, DefaultHitHeight),
		}
	case KindPolygon:
		d.Shape = Polygon{Points: w.Points}
	default:
		d.Shape = Unknown{Type: w.Type}
	}
	return nil
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
