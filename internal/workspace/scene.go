package workspace

import (
	"math"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/render"
	"github.com/starford/yearwheel/internal/wheel"
)

// scene collects the ring and the cards of the displayed year in canvas
// coordinates.
func (w *Workspace) scene() render.Scene {
	loc := w.anchors.loc
	vp := loc.Viewport()
	center := vp.Apply(w.layout.Center())
	edge := vp.Apply(w.layout.Center().Add(geometry.Point{X: w.layout.Radius}))

	s := render.Scene{
		Width:      int(math.Ceil(w.width)),
		Height:     int(math.Ceil(w.height)),
		RingCenter: center,
		RingRadius: center.Dist(edge),
	}
	for month := 1; month <= 12; month++ {
		for day := 1; day <= wheel.DaysInMonth(w.layout.Year, month); day++ {
			if p, ok := loc.AnchorPosition(month, day); ok {
				s.Markers = append(s.Markers, p)
			}
		}
	}
	for _, n := range w.store.List(w.layout.Year) {
		s.Cards = append(s.Cards, n.Rect())
	}
	return s
}
