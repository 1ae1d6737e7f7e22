package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/orthopath"
)

type obs struct {
	drawn, updated, removed []string
}

func (o *obs) ConnectorDrawn(id string)   { o.drawn = append(o.drawn, id) }
func (o *obs) ConnectorUpdated(id string) { o.updated = append(o.updated, id) }
func (o *obs) ConnectorRemoved(id string) { o.removed = append(o.removed, id) }

var (
	anchor = geometry.Point{X: 100, Y: 100}
	card   = geometry.Rect{X: 200, Y: 80, Width: 150, Height: 100}
)

func TestDrawDefault(t *testing.T) {
	r := New(nil)
	o := &obs{}
	r.AddObserver(o)

	r.Draw("n1", anchor, card, nil)

	d, ok := r.PathData("n1")
	if !ok {
		t.Fatal("no primitive")
	}
	// Nearest edge point is (200,100): the default path is a straight
	// run through the mid-bend.
	if d != "M 100 100 L 150 100 L 150 100 L 200 100" {
		t.Errorf("d = %q", d)
	}
	if len(o.drawn) != 1 || o.drawn[0] != "n1" {
		t.Errorf("drawn = %v", o.drawn)
	}
}

func TestDrawCustomVerbatim(t *testing.T) {
	r := New(nil)
	line := &models.ConnectionLine{
		IsCustom:   true,
		PathPoints: []geometry.Point{{X: 100, Y: 100}, {X: 100, Y: 40}, {X: 260, Y: 40}, {X: 260, Y: 80}},
	}
	r.Draw("n1", anchor, card, line)
	got, ok := r.ReadRenderedPath("n1")
	if !ok {
		t.Fatal("no rendered path")
	}
	want, _ := orthopath.FromPoints(line.PathPoints)
	if !orthopath.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDrawNormalisesPlaceholder(t *testing.T) {
	r := New(nil)
	line := &models.ConnectionLine{
		IsCustom:   true,
		PathPoints: []geometry.Point{{X: 100, Y: 100}, {X: 150, Y: 60}, {X: 200, Y: 60}},
	}
	r.Draw("n1", anchor, card, line)
	got, _ := r.ReadRenderedPath("n1")
	if len(got) != 4 || !got.IsOrthogonal(0.5) {
		t.Errorf("got %v, want an orthogonal 4-point path", got)
	}
}

func TestDrawKeepsSubPixelDrift(t *testing.T) {
	r := New(nil)
	line := &models.ConnectionLine{
		IsCustom:   true,
		PathPoints: []geometry.Point{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50.2, Y: 50}, {X: 100, Y: 50}},
	}
	r.Draw("n1", anchor, card, line)
	d, _ := r.PathData("n1")
	if d != "M 0 0 L 50 0 L 50.2 50 L 100 50" {
		t.Errorf("d = %q", d)
	}
}

func TestDrawLegacySegments(t *testing.T) {
	r := New(nil)
	line := &models.ConnectionLine{
		IsCustom: true,
		Segments: []orthopath.LegacySegment{{Type: orthopath.LegacyHorizontal, Offset: -50}},
	}
	r.Draw("n1", anchor, card, line)
	got, _ := r.ReadRenderedPath("n1")
	if got.First() != anchor || got.Last() != (geometry.Point{X: 200, Y: 100}) {
		t.Errorf("got %v", got)
	}
	if !got.IsOrthogonal(0.5) {
		t.Errorf("legacy path %v not orthogonal", got)
	}
}

func TestSetPathDataAndRemove(t *testing.T) {
	r := New(nil)
	o := &obs{}
	r.AddObserver(o)

	if r.SetPathData("missing", "M 0 0 L 1 0") {
		t.Error("SetPathData on missing primitive should fail")
	}
	r.Draw("n1", anchor, card, nil)
	if !r.SetPathData("n1", "M 0 0 L 5 0") {
		t.Fatal("SetPathData failed")
	}
	if d, _ := r.PathData("n1"); d != "M 0 0 L 5 0" {
		t.Errorf("d = %q", d)
	}
	r.Remove("n1")
	r.Remove("n1")
	if _, ok := r.PathData("n1"); ok {
		t.Error("primitive still present")
	}
	if len(o.updated) != 1 || len(o.removed) != 1 {
		t.Errorf("updated = %v, removed = %v", o.updated, o.removed)
	}
}

func TestReadRenderedPathMalformed(t *testing.T) {
	r := New(nil)
	r.Draw("n1", anchor, card, nil)
	r.SetPathData("n1", "M 0 0 L")
	if _, ok := r.ReadRenderedPath("n1"); ok {
		t.Error("malformed data should not read back")
	}
	if _, ok := r.ReadRenderedPath("nope"); ok {
		t.Error("missing primitive should not read back")
	}
}

func TestHighlightSurvivesRedraw(t *testing.T) {
	r := New(nil)
	r.Draw("n1", anchor, card, nil)
	r.Highlight("n1", true)
	r.Draw("n1", anchor, card, nil)
	c, _ := r.Connector("n1")
	if !c.Highlighted {
		t.Error("highlight lost on redraw")
	}
	r.Highlight("n1", false)
	c, _ = r.Connector("n1")
	if c.Highlighted {
		t.Error("highlight not cleared")
	}
}

func TestWriteSVG(t *testing.T) {
	r := New(nil)
	r.Draw("a&b", anchor, card, nil)
	r.Highlight("a&b", true)
	var buf bytes.Buffer
	if err := r.WriteSVG(&buf, Scene{Width: 400, Height: 300, RingRadius: 50, Cards: []geometry.Rect{card}}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`data-note-id="a&amp;b"`, `class="connector highlighted"`, `d="M 100 100 L`, `<rect x="200"`} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, `class="connectors"`) > strings.Index(out, `class="cards"`) {
		t.Error("connectors must be painted below cards")
	}
}

func TestWritePNG(t *testing.T) {
	r := New(nil)
	r.Draw("n1", anchor, card, nil)
	var buf bytes.Buffer
	scene := Scene{Width: 400, Height: 300, RingCenter: geometry.Point{X: 50, Y: 50}, RingRadius: 40, Cards: []geometry.Rect{card}}
	if err := r.WritePNG(&buf, scene); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("bounds = %v", b)
	}
	if err := r.WritePNG(&buf, Scene{}); err == nil {
		t.Error("zero-size snapshot should fail")
	}
}
