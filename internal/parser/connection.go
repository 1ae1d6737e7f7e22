package parser

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/orthopath"
)

// ErrInvalidConnectionLine marks stored connector data that cannot be
// replayed. Such data is discarded, never repaired.
var ErrInvalidConnectionLine = errors.New("parser: invalid connection line")

type rawConnectionLine struct {
	IsCustom     bool                      `yaml:"isCustom"`
	PathPoints   []map[string]any          `yaml:"pathPoints"`
	Segments     []orthopath.LegacySegment `yaml:"segments"`
	LastModified any                       `yaml:"lastModified"`
}

// DecodeConnectionLine validates a stored connectionLine node. A line that
// is not custom decodes to nil without error: it carries nothing that the
// default path would not recompute.
func DecodeConnectionLine(node *yaml.Node) (*models.ConnectionLine, error) {
	var raw rawConnectionLine
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnectionLine, err)
	}
	return ValidateConnectionLine(raw.IsCustom, raw.PathPoints, raw.Segments, raw.LastModified)
}

// ValidateConnectionLine builds a ConnectionLine from loosely typed values.
// Every point must carry finite numeric x and y; a custom line needs at
// least two points unless it uses legacy segments.
func ValidateConnectionLine(isCustom bool, points []map[string]any, segments []orthopath.LegacySegment, lastModified any) (*models.ConnectionLine, error) {
	if !isCustom {
		return nil, nil
	}

	pts := make([]geometry.Point, 0, len(points))
	for i, m := range points {
		x, okX := number(m["x"])
		y, okY := number(m["y"])
		if !okX || !okY {
			return nil, fmt.Errorf("%w: point %d is not numeric", ErrInvalidConnectionLine, i)
		}
		pts = append(pts, geometry.Point{X: x, Y: y})
	}

	if len(pts) < 2 && (len(pts) > 0 || len(segments) == 0) {
		return nil, fmt.Errorf("%w: %d path points", ErrInvalidConnectionLine, len(pts))
	}
	for i, s := range segments {
		if s.Type != orthopath.LegacyHorizontal && s.Type != orthopath.LegacyVertical {
			return nil, fmt.Errorf("%w: segment %d has type %q", ErrInvalidConnectionLine, i, s.Type)
		}
	}

	ts, err := models.ParseTimestamp(lastModified)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnectionLine, err)
	}

	line := &models.ConnectionLine{
		IsCustom:     true,
		PathPoints:   pts,
		LastModified: ts,
	}
	if len(pts) == 0 {
		line.Segments = segments
	}
	return line, nil
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
