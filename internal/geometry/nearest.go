package geometry

import "math"

// NearestEdgePoint returns the point on the boundary of r where a connector
// coming from target should attach.
//
// Candidates closer than MinConnectionLength are discarded; ties go to the
// first edge in left, right, top, bottom order. When target is inside r, or
// closer than MinConnectionLength to it, or no candidate survives, the point
// is projected from the centre of r onto the edge facing target. A target
// exactly MinConnectionLength away attaches normally.
func NearestEdgePoint(target Point, r Rect) Point {
	if r.Distance(target) < MinConnectionLength {
		return forcedEdgePoint(target, r)
	}

	best := Point{}
	bestDist := math.Inf(1)
	found := false
	for _, e := range r.Edges() {
		p := e.ClosestPoint(target)
		d := p.Dist(target)
		if d < MinConnectionLength {
			continue
		}
		if d < bestDist {
			best, bestDist, found = p, d, true
		}
	}
	if !found {
		return forcedEdgePoint(target, r)
	}
	return best
}

func forcedEdgePoint(target Point, r Rect) Point {
	c := r.Center()
	v := target.Sub(c)
	length := math.Hypot(v.X, v.Y)
	if length == 0 {
		return Point{X: r.Left() - MinConnectionLength, Y: c.Y}
	}
	nx, ny := v.X/length, v.Y/length

	if math.Abs(nx) >= math.Abs(ny) {
		x := r.Right()
		if nx < 0 {
			x = r.Left()
		}
		// Walk along the direction until the vertical edge is reached.
		y := c.Y + ny/math.Abs(nx)*(r.Width/2)
		return Point{X: x, Y: clamp(y, r.Top(), r.Bottom())}
	}

	y := r.Bottom()
	if ny < 0 {
		y = r.Top()
	}
	x := c.X + nx/math.Abs(ny)*(r.Height/2)
	return Point{X: clamp(x, r.Left(), r.Right()), Y: y}
}
