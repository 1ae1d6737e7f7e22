package wheel

import (
	"math"

	"github.com/starford/yearwheel/internal/geometry"
)

// Layout places the ring of one year in ring space, a square of side
// 2*(Radius+Margin) whose centre is the ring centre.
type Layout struct {
	Year   int
	Radius float64
	Margin float64
}

// Side returns the side length of the ring space.
func (l Layout) Side() float64 {
	return 2 * (l.Radius + l.Margin)
}

// Center returns the ring centre in ring space.
func (l Layout) Center() geometry.Point {
	c := l.Radius + l.Margin
	return geometry.Point{X: c, Y: c}
}

// Angle returns the angle of a day marker in radians. January 1st sits just
// clockwise of twelve o'clock; days advance clockwise.
func (l Layout) Angle(month, day int) (float64, bool) {
	doy := DayOfYear(l.Year, month, day)
	if doy == 0 {
		return 0, false
	}
	frac := (float64(doy) - 0.5) / float64(DaysInYear(l.Year))
	return -math.Pi/2 + 2*math.Pi*frac, true
}

// DayMarker returns the ring-space position of a day marker.
func (l Layout) DayMarker(month, day int) (geometry.Point, bool) {
	a, ok := l.Angle(month, day)
	if !ok {
		return geometry.Point{}, false
	}
	c := l.Center()
	return geometry.Point{
		X: c.X + l.Radius*math.Cos(a),
		Y: c.Y + l.Radius*math.Sin(a),
	}, true
}

// MonthSector returns the start and end angles of a month sector.
func (l Layout) MonthSector(month int) (start, end float64, ok bool) {
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	start, _ = l.Angle(month, 1)
	end, _ = l.Angle(month, DaysInMonth(l.Year, month))
	half := math.Pi / float64(DaysInYear(l.Year))
	return start - half, end + half, true
}

// Locator resolves dates to canvas-local day marker positions by mapping
// the ring layout through the viewport transform.
type Locator struct {
	layout   Layout
	viewport geometry.Transform
}

// NewLocator builds a Locator for layout and viewport.
func NewLocator(layout Layout, viewport geometry.Transform) *Locator {
	return &Locator{layout: layout, viewport: viewport}
}

// Year returns the year displayed by the ring.
func (l *Locator) Year() int {
	return l.layout.Year
}

// Layout returns the ring layout.
func (l *Locator) Layout() Layout {
	return l.layout
}

// Viewport returns the ring-to-canvas transform.
func (l *Locator) Viewport() geometry.Transform {
	return l.viewport
}

// AnchorPosition returns the canvas-local position of the marker for
// (month, day). ok is false when the date does not exist in the year.
func (l *Locator) AnchorPosition(month, day int) (geometry.Point, bool) {
	p, ok := l.layout.DayMarker(month, day)
	if !ok {
		return geometry.Point{}, false
	}
	return l.viewport.Apply(p), true
}
