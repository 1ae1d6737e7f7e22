package geometry

// Transform maps coordinates of one rendering layer into another: the
// calendar ring is laid out in its own space and scaled into the canvas.
type Transform struct {
	Offset Point   `json:"offset"`
	Scale  float64 `json:"scale"`
}

// Identity is the transform that leaves points unchanged.
var Identity = Transform{Scale: 1}

// Apply maps p from the source layer into the destination layer.
func (t Transform) Apply(p Point) Point {
	s := t.scale()
	return Point{X: t.Offset.X + p.X*s, Y: t.Offset.Y + p.Y*s}
}

// Invert maps p from the destination layer back into the source layer.
func (t Transform) Invert(p Point) Point {
	s := t.scale()
	return Point{X: (p.X - t.Offset.X) / s, Y: (p.Y - t.Offset.Y) / s}
}

// Fit returns the transform that centres a square source space of the given
// side length inside a width x height viewport, preserving aspect ratio.
func Fit(side, width, height float64) Transform {
	if side <= 0 || width <= 0 || height <= 0 {
		return Identity
	}
	s := width / side
	if h := height / side; h < s {
		s = h
	}
	return Transform{
		Offset: Point{X: (width - side*s) / 2, Y: (height - side*s) / 2},
		Scale:  s,
	}
}

func (t Transform) scale() float64 {
	if t.Scale == 0 {
		return 1
	}
	return t.Scale
}
