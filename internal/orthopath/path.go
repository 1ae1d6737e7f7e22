// Package orthopath models orthogonal connector paths: polylines whose
// segments are purely horizontal or purely vertical.
package orthopath

import (
	"errors"
	"math"

	"github.com/starford/yearwheel/internal/geometry"
)

// SegmentTolerance absorbs floating noise from rectangle geometry when
// classifying a segment as horizontal or vertical.
const SegmentTolerance = 5.0

// ErrTooFewPoints is returned when a path would have fewer than two points.
var ErrTooFewPoints = errors.New("orthopath: at least 2 points required")

// Path is an ordered list of points. The first point is the anchor on the
// calendar ring; the last lies on the note card.
type Path []geometry.Point

// Orientation classifies a segment.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Segment is the pair (points[Index], points[Index+1]).
type Segment struct {
	Index       int
	From, To    geometry.Point
	Orientation Orientation
}

// Midpoint returns the centre of the segment.
func (s Segment) Midpoint() geometry.Point {
	return geometry.Point{X: (s.From.X + s.To.X) / 2, Y: (s.From.Y + s.To.Y) / 2}
}

// Classify returns Horizontal when the y delta is within SegmentTolerance,
// Vertical otherwise.
func Classify(a, b geometry.Point) Orientation {
	if math.Abs(a.Y-b.Y) < SegmentTolerance {
		return Horizontal
	}
	return Vertical
}

// Default returns the two-bend connector from anchor to target that turns
// at the horizontal midpoint.
func Default(anchor, target geometry.Point) Path {
	mid := anchor.X + (target.X-anchor.X)*0.5
	return Path{
		anchor,
		{X: mid, Y: anchor.Y},
		{X: mid, Y: target.Y},
		target,
	}
}

// FromPoints copies points into a new Path.
func FromPoints(points []geometry.Point) (Path, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	out := make(Path, len(points))
	copy(out, points)
	return out, nil
}

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// First returns the anchor point.
func (p Path) First() geometry.Point { return p[0] }

// Last returns the card end point.
func (p Path) Last() geometry.Point { return p[len(p)-1] }

// Segments returns one Segment per consecutive point pair.
func (p Path) Segments() []Segment {
	if len(p) < 2 {
		return nil
	}
	out := make([]Segment, 0, len(p)-1)
	for i := 0; i < len(p)-1; i++ {
		out = append(out, Segment{
			Index:       i,
			From:        p[i],
			To:          p[i+1],
			Orientation: Classify(p[i], p[i+1]),
		})
	}
	return out
}

// IsOrthogonal reports whether every consecutive pair differs in at most
// one coordinate, within eps.
func (p Path) IsOrthogonal(eps float64) bool {
	for i := 0; i < len(p)-1; i++ {
		dx := math.Abs(p[i].X - p[i+1].X)
		dy := math.Abs(p[i].Y - p[i+1].Y)
		if dx >= eps && dy >= eps {
			return false
		}
	}
	return true
}

// Normalize inserts an elbow after every diagonal segment so the result is
// orthogonal. The elbow keeps the y of the segment start.
func Normalize(p Path) Path {
	out := make(Path, 0, len(p)+2)
	for i, pt := range p {
		if i > 0 {
			prev := p[i-1]
			if prev.X != pt.X && prev.Y != pt.Y {
				out = append(out, geometry.Point{X: pt.X, Y: prev.Y})
			}
		}
		out = append(out, pt)
	}
	return out
}

// StraightTolerance is the largest drift along the minor axis that still
// leaves a segment straight.
const StraightTolerance = 0.5

// FixFirstSegment returns a copy of p with an elbow after the anchor when
// the first segment is diagonal. Later segments are kept as they are.
func FixFirstSegment(p Path) Path {
	if len(p) < 2 {
		return p.Clone()
	}
	a, b := p[0], p[1]
	if math.Abs(a.X-b.X) < StraightTolerance || math.Abs(a.Y-b.Y) < StraightTolerance {
		return p.Clone()
	}
	out := make(Path, 0, len(p)+1)
	out = append(out, a, geometry.Point{X: b.X, Y: a.Y})
	return append(out, p[1:]...)
}

// TranslateTail moves every point except the anchor by delta.
func TranslateTail(p Path, delta geometry.Point) Path {
	out := p.Clone()
	for i := 1; i < len(out); i++ {
		out[i] = out[i].Add(delta)
	}
	return out
}

// MaxDisplacement returns the largest per-point distance between a and b.
// Paths of different lengths are infinitely far apart.
func MaxDisplacement(a, b Path) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	maxD := 0.0
	for i := range a {
		if d := a[i].Dist(b[i]); d > maxD {
			maxD = d
		}
	}
	return maxD
}

// Equal reports whether a and b hold the same points.
func Equal(a, b Path) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
