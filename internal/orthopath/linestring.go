package orthopath

import (
	"math"
	"strconv"
	"strings"

	"github.com/starford/yearwheel/internal/geometry"
)

// Format serialises p as path data: "M x0 y0 L x1 y1 ...". Coordinates use
// the shortest representation that parses back to the same float64.
func Format(p Path) string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, pt := range p {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		b.WriteString(formatFloat(pt.X))
		b.WriteByte(' ')
		b.WriteString(formatFloat(pt.Y))
	}
	return b.String()
}

func formatFloat(v float64) string {
	if v == 0 {
		// Avoid "-0", which is not a stable round trip for equality checks.
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Parse reads path data produced by Format. Only absolute M and L commands
// are understood; commas and whitespace both separate numbers, and repeated
// coordinate pairs after a command continue that command. Any malformed or
// missing data yields an empty path: the input comes from live render state
// that may be mid-update.
func Parse(s string) Path {
	toks, ok := tokenize(s)
	if !ok || len(toks) == 0 || toks[0] != "M" {
		return nil
	}

	var out Path
	var pending []float64
	cmd := ""
	flush := func() bool {
		if cmd == "" || len(pending) == 0 || len(pending)%2 != 0 {
			return false
		}
		for i := 0; i < len(pending); i += 2 {
			out = append(out, geometry.Point{X: pending[i], Y: pending[i+1]})
		}
		pending = pending[:0]
		return true
	}

	for _, tok := range toks {
		switch tok {
		case "M", "L":
			if cmd != "" && !flush() {
				return nil
			}
			if tok == "M" && cmd != "" {
				// A second move-to would start a disjoint subpath.
				return nil
			}
			cmd = tok
		default:
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil
			}
			pending = append(pending, v)
		}
	}
	if !flush() {
		return nil
	}
	return out
}

func tokenize(s string) ([]string, bool) {
	var toks []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == 'M' || c == 'L':
			toks = append(toks, string(c))
			i++
		case isNumberStart(c):
			j := i + 1
			for j < len(s) && isNumberPart(s[j], s[j-1]) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			return nil, false
		}
	}
	return toks, true
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func isNumberPart(c, prev byte) bool {
	if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' {
		return true
	}
	return (c == '-' || c == '+') && (prev == 'e' || prev == 'E')
}
