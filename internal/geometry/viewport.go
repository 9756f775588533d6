package geometry

// Viewport is the on-screen bounding box of a rendered image, in pixels.
type Viewport struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the box has a positive area.
func (v Viewport) Valid() bool { return v.Width > 0 && v.Height > 0 }

// ToPercent converts client pixel coordinates to percent of the box.
func (v Viewport) ToPercent(clientX, clientY float64) (float64, float64) {
	return (clientX - v.Left) / v.Width * 100, (clientY - v.Top) / v.Height * 100
}
