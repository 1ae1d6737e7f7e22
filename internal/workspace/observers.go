package workspace

import (
	"github.com/starford/yearwheel/internal/adjust"
	"github.com/starford/yearwheel/internal/events"
	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/notestore"
	"github.com/starford/yearwheel/internal/render"
	"github.com/starford/yearwheel/internal/sse"
)

var (
	_ events.NotePositionObserver  = (*Workspace)(nil)
	_ events.NoteLifecycleObserver = (*Workspace)(nil)
	_ render.Observer              = (*Workspace)(nil)
	_ adjust.HandleListener        = (*Workspace)(nil)
)

// NotePositionChanged keeps connectors attached to moving cards. The
// selected card is followed by the controller while it is dragged.
func (w *Workspace) NotePositionChanged(id string, pos geometry.Point, dragging bool) {
	if !dragging {
		w.redraw(id)
		return
	}
	if id == w.ctrl.Selected() {
		return
	}
	n, ok := w.store.GetNote(id)
	if !ok {
		return
	}
	w.drawAt(n, geometry.RectAt(pos, n.Size), adjust.FollowLine(n, pos))
}

// NoteSelected implements events.NoteLifecycleObserver.
func (w *Workspace) NoteSelected(string) {}

// NoteDeselected implements events.NoteLifecycleObserver.
func (w *Workspace) NoteDeselected(string) {}

// NoteDeleted implements events.NoteLifecycleObserver.
func (w *Workspace) NoteDeleted(id string) {
	w.renderer.Remove(id)
}

// ConnectionLineReset implements events.NoteLifecycleObserver.
func (w *Workspace) ConnectionLineReset(id string) {
	w.redraw(id)
}

type noteRef struct {
	NoteID string `json:"id"`
}

type handlesUpdated struct {
	NoteID  string          `json:"id"`
	Handles []adjust.Handle `json:"handles"`
}

// ConnectorDrawn implements render.Observer.
func (w *Workspace) ConnectorDrawn(id string) {
	if w.pub == nil {
		return
	}
	if c, ok := w.renderer.Connector(id); ok {
		w.pub.PublishKeyed(connectorKey(id), sse.Event{Type: sse.ConnectorDrawn, Data: c})
	}
}

// ConnectorUpdated implements render.Observer. Updates arrive at pointer
// rate during a handle drag and are coalesced.
func (w *Workspace) ConnectorUpdated(id string) {
	if w.pub == nil {
		return
	}
	if c, ok := w.renderer.Connector(id); ok {
		w.pub.PublishCoalesced(connectorKey(id), sse.Event{Type: sse.ConnectorUpdated, Data: c})
	}
}

// ConnectorRemoved implements render.Observer.
func (w *Workspace) ConnectorRemoved(id string) {
	if w.pub == nil {
		return
	}
	w.pub.PublishKeyed(connectorKey(id), sse.Event{Type: sse.ConnectorRemoved, Data: noteRef{NoteID: id}})
}

// HandlesChanged implements adjust.HandleListener.
func (w *Workspace) HandlesChanged(noteID string, handles []adjust.Handle) {
	if w.pub == nil {
		return
	}
	if handles == nil {
		handles = []adjust.Handle{}
	}
	w.pub.PublishCoalesced("handles", sse.Event{Type: sse.HandlesUpdated, Data: handlesUpdated{NoteID: noteID, Handles: handles}})
}

// noteChanged forwards note store changes.
func (w *Workspace) noteChanged(kind string, n *models.Note) {
	if w.pub == nil {
		return
	}
	var typ string
	switch kind {
	case notestore.NoteCreated:
		typ = sse.NoteCreated
	case notestore.NoteUpdated:
		typ = sse.NoteUpdated
	case notestore.NoteDeleted:
		w.pub.Publish(sse.Event{Type: sse.NoteDeleted, Data: noteRef{NoteID: n.ID}})
		return
	default:
		return
	}
	w.pub.PublishKeyed("note:"+n.ID, sse.Event{Type: typ, Data: n})
}

func connectorKey(id string) string {
	return "connector:" + id
}
