package orthopath

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"github.com/starford/yearwheel/internal/geometry"
)

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func TestDefault(t *testing.T) {
	got := Default(pt(0, 0), pt(100, 50))
	want := Path{pt(0, 0), pt(50, 0), pt(50, 50), pt(100, 50)}
	if !Equal(got, want) {
		t.Fatalf("Default = %v, want %v", got, want)
	}
	if !got.IsOrthogonal(0.5) {
		t.Error("default path is not orthogonal")
	}
}

func TestFormatAndParse(t *testing.T) {
	p := Default(pt(0, 0), pt(100, 50))
	s := Format(p)
	if s != "M 0 0 L 50 0 L 50 50 L 100 50" {
		t.Fatalf("Format = %q", s)
	}
	if got := Parse(s); !Equal(got, p) {
		t.Errorf("Parse = %v, want %v", got, p)
	}
}

func TestParseTolerant(t *testing.T) {
	cases := map[string]int{
		"M10,20L30,20":          2,
		"M 1.5 -2 L 1.5 4e2":    2,
		"M 0 0 L 1 0 2 0 2 5":   4,
		"":                      0,
		"M":                     0,
		"M 0":                   0,
		"M 0 0 L":               0,
		"L 0 0 L 1 1":           0,
		"M 0 0 C 1 1 2 2 3 3":   0,
		"M 0 0 L abc 1":         0,
		"M 0 0 M 5 5":           0,
		"M 0 0 L 1 NaN":         0,
	}
	for in, n := range cases {
		if got := Parse(in); len(got) != n {
			t.Errorf("Parse(%q) = %v, want %d points", in, got, n)
		}
	}
}

func TestFromPoints(t *testing.T) {
	if _, err := FromPoints([]geometry.Point{pt(1, 1)}); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("expected ErrTooFewPoints, got %v", err)
	}
	src := []geometry.Point{pt(0, 0), pt(0, 10)}
	p, err := FromPoints(src)
	if err != nil {
		t.Fatal(err)
	}
	src[0] = pt(9, 9)
	if p[0] != pt(0, 0) {
		t.Error("FromPoints must copy its input")
	}
}

func TestFromLegacySegments(t *testing.T) {
	anchor, target := pt(0, 0), pt(100, 80)
	got := FromLegacySegments(anchor, target, []LegacySegment{
		{Type: LegacyHorizontal, Offset: 30},
		{Type: LegacyVertical, Offset: 20},
	})
	want := Path{pt(0, 0), pt(50, 0), pt(50, 30), pt(70, 30), pt(70, 80), pt(100, 80)}
	if !Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFromLegacySegments_NoStraighteningNeeded(t *testing.T) {
	anchor, target := pt(0, 0), pt(100, 80)
	got := FromLegacySegments(anchor, target, []LegacySegment{{Type: LegacyVertical, Offset: 50}})
	want := Path{pt(0, 0), pt(50, 0), pt(100, 0), pt(100, 80)}
	if !Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSegmentsClassification(t *testing.T) {
	p := Path{pt(0, 0), pt(50, 3), pt(50, 60), pt(100, 60)}
	segs := p.Segments()
	if len(segs) != 3 {
		t.Fatalf("len = %d", len(segs))
	}
	want := []Orientation{Horizontal, Vertical, Horizontal}
	for i, s := range segs {
		if s.Orientation != want[i] {
			t.Errorf("segment %d = %v, want %v", i, s.Orientation, want[i])
		}
	}
	if m := segs[1].Midpoint(); m != pt(50, 31.5) {
		t.Errorf("midpoint = %+v", m)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(Path{pt(0, 0), pt(40, 30), pt(40, 60)})
	want := Path{pt(0, 0), pt(40, 0), pt(40, 30), pt(40, 60)}
	if !Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFixFirstSegment(t *testing.T) {
	got := FixFirstSegment(Path{pt(0, 0), pt(40, 30), pt(80, 30)})
	want := Path{pt(0, 0), pt(40, 0), pt(40, 30), pt(80, 30)}
	if !Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	drift := Path{pt(0, 0), pt(40, 0.3), pt(40.4, 60), pt(90, 60)}
	if got := FixFirstSegment(drift); !Equal(got, drift) {
		t.Errorf("near-straight path changed: %v", got)
	}
}

func TestTranslateTailKeepsAnchor(t *testing.T) {
	p := Default(pt(0, 0), pt(100, 50))
	got := TranslateTail(p, pt(10, -5))
	if got[0] != p[0] {
		t.Fatalf("anchor moved: %+v", got[0])
	}
	if got.Last() != pt(110, 45) {
		t.Errorf("last = %+v", got.Last())
	}
	if p[1] != pt(50, 0) {
		t.Error("TranslateTail mutated its input")
	}
}

func genPath(t *rapid.T) Path {
	n := rapid.IntRange(2, 8).Draw(t, "n")
	p := make(Path, n)
	for i := range p {
		p[i] = pt(
			rapid.Float64Range(-1e6, 1e6).Draw(t, "x"),
			rapid.Float64Range(-1e6, 1e6).Draw(t, "y"),
		)
	}
	return p
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genPath(t)
		if got := Parse(Format(p)); !Equal(got, p) {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", p, Format(p), got)
		}
	})
}

func TestDefaultOrthogonalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := pt(rapid.Float64Range(-1e4, 1e4).Draw(t, "ax"), rapid.Float64Range(-1e4, 1e4).Draw(t, "ay"))
		b := pt(rapid.Float64Range(-1e4, 1e4).Draw(t, "bx"), rapid.Float64Range(-1e4, 1e4).Draw(t, "by"))
		if p := Default(a, b); !p.IsOrthogonal(0.5) {
			t.Fatalf("default path %v not orthogonal", p)
		}
	})
}

func TestNormalizeOrthogonalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genPath(t)
		n := Normalize(p)
		if !n.IsOrthogonal(1e-9) {
			t.Fatalf("normalised path %v not orthogonal", n)
		}
		if n.First() != p.First() || n.Last() != p.Last() {
			t.Fatal("normalise moved an endpoint")
		}
	})
}
