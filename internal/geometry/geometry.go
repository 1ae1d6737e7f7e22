// Package geometry provides the canvas primitives used to attach connectors
// to note cards: points, axis-aligned rectangles, nearest-edge search and
// translation between rendering layers.
package geometry

import "math"

// MinConnectionLength is the shortest connector segment, in pixels, that is
// considered visually acceptable.
const MinConnectionLength = 20.0

// Point is a canvas-local coordinate in pixels.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Size is the width and height of a note card.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectAt builds a Rect from a top-left position and a size.
func RectAt(pos Point, size Size) Rect {
	return Rect{X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height}
}

// Left returns the x coordinate of the left edge.
func (r Rect) Left() float64 { return r.X }

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Top returns the y coordinate of the top edge.
func (r Rect) Top() float64 { return r.Y }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the centre point of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Expand grows r by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{X: r.X - margin, Y: r.Y - margin, Width: r.Width + 2*margin, Height: r.Height + 2*margin}
}

// Distance returns how far p lies outside r. Points inside r or on its
// boundary are at distance 0.
func (r Rect) Distance(p Point) float64 {
	dx := math.Max(0, math.Max(r.Left()-p.X, p.X-r.Right()))
	dy := math.Max(0, math.Max(r.Top()-p.Y, p.Y-r.Bottom()))
	return math.Hypot(dx, dy)
}

// OnBoundary reports whether p lies on one of the four edges of r.
func (r Rect) OnBoundary(p Point) bool {
	onVertical := (p.X == r.Left() || p.X == r.Right()) && p.Y >= r.Top() && p.Y <= r.Bottom()
	onHorizontal := (p.Y == r.Top() || p.Y == r.Bottom()) && p.X >= r.Left() && p.X <= r.Right()
	return onVertical || onHorizontal
}

// Edge is one side of a rectangle, from A to B.
type Edge struct {
	A, B Point
}

// Edges returns the four edges of r in the order left, right, top, bottom.
func (r Rect) Edges() [4]Edge {
	tl := Point{X: r.Left(), Y: r.Top()}
	tr := Point{X: r.Right(), Y: r.Top()}
	bl := Point{X: r.Left(), Y: r.Bottom()}
	br := Point{X: r.Right(), Y: r.Bottom()}
	return [4]Edge{
		{A: tl, B: bl},
		{A: tr, B: br},
		{A: tl, B: tr},
		{A: bl, B: br},
	}
}

// ClosestPoint returns the point on segment e closest to p.
func (e Edge) ClosestPoint(p Point) Point {
	dx := e.B.X - e.A.X
	dy := e.B.Y - e.A.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return e.A
	}
	t := ((p.X-e.A.X)*dx + (p.Y-e.A.Y)*dy) / lenSq
	t = clamp(t, 0, 1)
	return Point{X: e.A.X + t*dx, Y: e.A.Y + t*dy}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
