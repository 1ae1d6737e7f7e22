package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/fogleman/gg"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/orthopath"
)

// Scene is what surrounds the connector layer in a snapshot: the ring in
// the background and the note cards on top.
type Scene struct {
	Width, Height int
	RingCenter    geometry.Point
	RingRadius    float64
	Markers       []geometry.Point
	Cards         []geometry.Rect
}

var (
	connectorColor   = color.RGBA{R: 0x55, G: 0x5b, B: 0x66, A: 0xff}
	highlightColor   = color.RGBA{R: 0xe0, G: 0x6c, B: 0x2a, A: 0xff}
	ringColor        = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	markerColor      = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	cardFillColor    = color.RGBA{R: 0xff, G: 0xfb, B: 0xe6, A: 0xff}
	cardStrokeColor  = color.RGBA{R: 0x99, G: 0x88, B: 0x55, A: 0xff}
	connectorWidth   = 1.5
	highlightedWidth = 3.0
)

// WriteSVG serialises the scene with the connector layer as SVG.
func (r *Renderer) WriteSVG(w io.Writer, s Scene) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		s.Width, s.Height, s.Width, s.Height)

	buf.WriteString(`  <g class="background">` + "\n")
	if s.RingRadius > 0 {
		fmt.Fprintf(&buf, `    <circle cx="%s" cy="%s" r="%s" fill="none" stroke="#cccccc"/>`+"\n",
			num(s.RingCenter.X), num(s.RingCenter.Y), num(s.RingRadius))
	}
	for _, m := range s.Markers {
		fmt.Fprintf(&buf, `    <circle class="day" cx="%s" cy="%s" r="1.5" fill="#999999"/>`+"\n", num(m.X), num(m.Y))
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="connectors">` + "\n")
	for _, c := range r.Connectors() {
		class := "connector"
		if c.Highlighted {
			class += " " + ClassHighlighted
		}
		fmt.Fprintf(&buf, `    <path data-note-id="%s" class="%s" d="%s" fill="none"/>`+"\n",
			escapeAttr(c.NoteID), class, escapeAttr(c.D))
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="cards">` + "\n")
	for _, rc := range s.Cards {
		fmt.Fprintf(&buf, `    <rect x="%s" y="%s" width="%s" height="%s" rx="4"/>`+"\n",
			num(rc.X), num(rc.Y), num(rc.Width), num(rc.Height))
	}
	buf.WriteString("  </g>\n</svg>\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// WritePNG rasterises the scene. Layers are painted bottom-up so connectors
// sit between the ring and the cards.
func (r *Renderer) WritePNG(w io.Writer, s Scene) error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("render: invalid snapshot size %dx%d", s.Width, s.Height)
	}
	dc := gg.NewContext(s.Width, s.Height)
	dc.SetColor(color.White)
	dc.Clear()

	if s.RingRadius > 0 {
		dc.SetColor(ringColor)
		dc.SetLineWidth(1)
		dc.DrawCircle(s.RingCenter.X, s.RingCenter.Y, s.RingRadius)
		dc.Stroke()
	}
	dc.SetColor(markerColor)
	for _, m := range s.Markers {
		dc.DrawCircle(m.X, m.Y, 1.5)
		dc.Fill()
	}

	for _, c := range r.Connectors() {
		p := orthopath.Parse(c.D)
		if len(p) < 2 {
			continue
		}
		if c.Highlighted {
			dc.SetColor(highlightColor)
			dc.SetLineWidth(highlightedWidth)
		} else {
			dc.SetColor(connectorColor)
			dc.SetLineWidth(connectorWidth)
		}
		dc.MoveTo(p[0].X, p[0].Y)
		for _, pt := range p[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
		dc.Stroke()
	}

	for _, rc := range s.Cards {
		dc.DrawRoundedRectangle(rc.X, rc.Y, rc.Width, rc.Height, 4)
		dc.SetColor(cardFillColor)
		dc.FillPreserve()
		dc.SetColor(cardStrokeColor)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	return dc.EncodePNG(w)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
