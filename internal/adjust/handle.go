package adjust

import (
	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/orthopath"
)

// Axis names the coordinate a handle may move along.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Handle is the draggable affordance at the midpoint of one path segment.
type Handle struct {
	Index    int                   `json:"index"`
	Position geometry.Point        `json:"position"`
	Segment  orthopath.Orientation `json:"-"`
	Axis     Axis                  `json:"axis"`
}

// dragAxis is perpendicular to the segment: horizontal segments move
// vertically and vice versa.
func dragAxis(o orthopath.Orientation) Axis {
	if o == orthopath.Horizontal {
		return AxisY
	}
	return AxisX
}

func handlesFor(p orthopath.Path) []Handle {
	segs := p.Segments()
	out := make([]Handle, 0, len(segs))
	for _, s := range segs {
		out = append(out, Handle{
			Index:    s.Index,
			Position: s.Midpoint(),
			Segment:  s.Orientation,
			Axis:     dragAxis(s.Orientation),
		})
	}
	return out
}

// constrain applies a pointer position to segment i of p, moving both of
// its endpoints along axis. The neighbouring segments share those points,
// so they follow.
func constrain(p orthopath.Path, i int, axis Axis, pos geometry.Point) orthopath.Path {
	out := p.Clone()
	switch axis {
	case AxisY:
		out[i].Y = pos.Y
		out[i+1].Y = pos.Y
	case AxisX:
		out[i].X = pos.X
		out[i+1].X = pos.X
	}
	return out
}
