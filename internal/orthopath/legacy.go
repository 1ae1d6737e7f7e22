package orthopath

import "github.com/starford/yearwheel/internal/geometry"

// LegacySegment is the pre-point-list custom path format: a chain of
// offsets applied from the default mid-bend.
type LegacySegment struct {
	Type   string  `json:"type" yaml:"type"`
	Offset float64 `json:"offset" yaml:"offset"`
}

// Legacy segment types.
const (
	LegacyHorizontal = "horizontal"
	LegacyVertical   = "vertical"
)

// FromLegacySegments rebuilds a path from the offset format. A horizontal
// record moves the cursor along y, a vertical one along x.
func FromLegacySegments(anchor, target geometry.Point, segments []LegacySegment) Path {
	mid := anchor.X + (target.X-anchor.X)*0.5
	cur := geometry.Point{X: mid, Y: anchor.Y}
	out := Path{anchor, cur}

	for _, s := range segments {
		switch s.Type {
		case LegacyHorizontal:
			cur = geometry.Point{X: cur.X, Y: cur.Y + s.Offset}
		case LegacyVertical:
			cur = geometry.Point{X: cur.X + s.Offset, Y: cur.Y}
		default:
			continue
		}
		out = append(out, cur)
	}

	if cur.X != target.X {
		out = append(out, geometry.Point{X: cur.X, Y: target.Y})
	}
	return append(out, target)
}
