// Package events carries the cross-component signals of the canvas: note
// lifecycle and position notifications, and the document-level pointer
// stream used while a handle is dragged.
//
// Dispatch is synchronous and happens on the caller's goroutine; all
// callers run on the workspace loop, so observers never interleave.
package events

import "github.com/starford/yearwheel/internal/geometry"

// NotePositionObserver reacts to card drag and move notifications.
type NotePositionObserver interface {
	// NotePositionChanged is called while a card is dragged (dragging=true)
	// and once when the move completes (dragging=false).
	NotePositionChanged(id string, pos geometry.Point, dragging bool)
}

// NoteLifecycleObserver reacts to selection and lifecycle changes.
type NoteLifecycleObserver interface {
	NoteSelected(id string)
	NoteDeselected(id string)
	NoteDeleted(id string)
	// ConnectionLineReset is called after the note store discarded a custom path.
	ConnectionLineReset(id string)
}

// Bus fans notifications out to observers in subscription order.
type Bus struct {
	position  []NotePositionObserver
	lifecycle []NoteLifecycleObserver
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// OnPosition subscribes o to position notifications.
func (b *Bus) OnPosition(o NotePositionObserver) {
	b.position = append(b.position, o)
}

// OnLifecycle subscribes o to lifecycle notifications.
func (b *Bus) OnLifecycle(o NoteLifecycleObserver) {
	b.lifecycle = append(b.lifecycle, o)
}

// NotePositionChanged implements NotePositionObserver.
func (b *Bus) NotePositionChanged(id string, pos geometry.Point, dragging bool) {
	for _, o := range b.position {
		o.NotePositionChanged(id, pos, dragging)
	}
}

// NoteSelected implements NoteLifecycleObserver.
func (b *Bus) NoteSelected(id string) {
	for _, o := range b.lifecycle {
		o.NoteSelected(id)
	}
}

// NoteDeselected implements NoteLifecycleObserver.
func (b *Bus) NoteDeselected(id string) {
	for _, o := range b.lifecycle {
		o.NoteDeselected(id)
	}
}

// NoteDeleted implements NoteLifecycleObserver.
func (b *Bus) NoteDeleted(id string) {
	for _, o := range b.lifecycle {
		o.NoteDeleted(id)
	}
}

// ConnectionLineReset implements NoteLifecycleObserver.
func (b *Bus) ConnectionLineReset(id string) {
	for _, o := range b.lifecycle {
		o.ConnectionLineReset(id)
	}
}

var (
	_ NotePositionObserver  = (*Bus)(nil)
	_ NoteLifecycleObserver = (*Bus)(nil)
)
