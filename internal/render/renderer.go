// Package render owns the connector layer of the canvas: one path primitive
// per note card, drawn below the cards and above the background.
package render

import (
	"log/slog"
	"sort"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/orthopath"
)

// Layer z-order of the canvas.
const (
	LayerBackground = iota
	LayerConnectors
	LayerCards
)

// ClassHighlighted is the emphasis class toggled by Highlight.
const ClassHighlighted = "highlighted"

// Observer is notified after the connector of a note changes.
type Observer interface {
	// ConnectorDrawn fires after a full redraw.
	ConnectorDrawn(noteID string)
	// ConnectorUpdated fires after the path data was replaced in place.
	ConnectorUpdated(noteID string)
	// ConnectorRemoved fires after the primitive was deleted.
	ConnectorRemoved(noteID string)
}

// Primitive is the rendered connector of one note.
type Primitive struct {
	NoteID  string
	Layer   int
	D       string
	classes map[string]struct{}
}

// HasClass reports whether the primitive carries class.
func (p *Primitive) HasClass(class string) bool {
	_, ok := p.classes[class]
	return ok
}

// Classes returns the primitive classes in sorted order.
func (p *Primitive) Classes() []string {
	out := make([]string, 0, len(p.classes))
	for c := range p.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Connector is a read-only view of a primitive.
type Connector struct {
	NoteID      string `json:"id"`
	D           string `json:"d"`
	Highlighted bool   `json:"highlighted"`
}

// Renderer draws, updates and removes connector primitives. It is not safe
// for concurrent use; the workspace loop serialises access.
type Renderer struct {
	logger     *slog.Logger
	primitives map[string]*Primitive
	observers  []Observer
}

// New creates an empty connector layer.
func New(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		logger:     logger,
		primitives: make(map[string]*Primitive),
	}
}

// AddObserver subscribes o to connector changes.
func (r *Renderer) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// Draw replaces the connector of noteID. Without usable custom data the path
// runs from anchor to the nearest edge point of rect; with custom points the
// stored path is replayed verbatim, with any diagonal placeholder segment
// normalised into an elbow.
func (r *Renderer) Draw(noteID string, anchor geometry.Point, rect geometry.Rect, line *models.ConnectionLine) {
	p := r.resolvePath(noteID, anchor, rect, line)

	prev, hadPrev := r.primitives[noteID]
	delete(r.primitives, noteID)

	prim := &Primitive{
		NoteID:  noteID,
		Layer:   LayerConnectors,
		D:       orthopath.Format(p),
		classes: make(map[string]struct{}),
	}
	// Emphasis survives a redraw: it belongs to the note, not the geometry.
	if hadPrev && prev.HasClass(ClassHighlighted) {
		prim.classes[ClassHighlighted] = struct{}{}
	}
	r.primitives[noteID] = prim

	for _, o := range r.observers {
		o.ConnectorDrawn(noteID)
	}
}

func (r *Renderer) resolvePath(noteID string, anchor geometry.Point, rect geometry.Rect, line *models.ConnectionLine) orthopath.Path {
	switch {
	case line.HasPoints():
		p, err := orthopath.FromPoints(line.PathPoints)
		if err == nil {
			return orthopath.FixFirstSegment(p)
		}
		r.logger.Debug("render: custom path unusable",
			slog.String("note_id", noteID), slog.String("error", err.Error()))
	case line.HasLegacySegments():
		target := geometry.NearestEdgePoint(anchor, rect)
		return orthopath.Normalize(orthopath.FromLegacySegments(anchor, target, line.Segments))
	}
	return orthopath.Default(anchor, geometry.NearestEdgePoint(anchor, rect))
}

// SetPathData replaces the path data of an existing primitive without any
// anchor or rectangle recomputation. It reports false when noteID has no
// connector.
func (r *Renderer) SetPathData(noteID, d string) bool {
	prim, ok := r.primitives[noteID]
	if !ok {
		return false
	}
	prim.D = d
	for _, o := range r.observers {
		o.ConnectorUpdated(noteID)
	}
	return true
}

// Remove deletes the connector of noteID.
func (r *Renderer) Remove(noteID string) {
	if _, ok := r.primitives[noteID]; !ok {
		return
	}
	delete(r.primitives, noteID)
	for _, o := range r.observers {
		o.ConnectorRemoved(noteID)
	}
}

// Clear deletes every connector.
func (r *Renderer) Clear() {
	ids := make([]string, 0, len(r.primitives))
	for id := range r.primitives {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r.Remove(id)
	}
}

// Highlight toggles the emphasis class of a connector.
func (r *Renderer) Highlight(noteID string, on bool) {
	prim, ok := r.primitives[noteID]
	if !ok {
		return
	}
	if on {
		prim.classes[ClassHighlighted] = struct{}{}
	} else {
		delete(prim.classes, ClassHighlighted)
	}
}

// PathData returns the raw path data currently rendered for noteID.
func (r *Renderer) PathData(noteID string) (string, bool) {
	prim, ok := r.primitives[noteID]
	if !ok {
		return "", false
	}
	return prim.D, true
}

// ReadRenderedPath parses the path currently on screen for noteID. ok is
// false when there is no primitive or its data yields fewer than 2 points.
func (r *Renderer) ReadRenderedPath(noteID string) (orthopath.Path, bool) {
	d, ok := r.PathData(noteID)
	if !ok {
		return nil, false
	}
	p := orthopath.Parse(d)
	if len(p) < 2 {
		return nil, false
	}
	return p, true
}

// Connector returns a view of the connector of noteID.
func (r *Renderer) Connector(noteID string) (Connector, bool) {
	prim, ok := r.primitives[noteID]
	if !ok {
		return Connector{}, false
	}
	return Connector{NoteID: noteID, D: prim.D, Highlighted: prim.HasClass(ClassHighlighted)}, true
}

// Connectors returns every connector ordered by note id.
func (r *Renderer) Connectors() []Connector {
	out := make([]Connector, 0, len(r.primitives))
	for id := range r.primitives {
		c, _ := r.Connector(id)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NoteID < out[j].NoteID })
	return out
}
