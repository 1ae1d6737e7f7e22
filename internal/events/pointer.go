package events

import "github.com/starford/yearwheel/internal/geometry"

// PointerHandler receives document-level pointer events.
type PointerHandler interface {
	PointerMove(pos geometry.Point)
	PointerUp(pos geometry.Point)
}

// PointerCapturer hands out document-level pointer captures.
type PointerCapturer interface {
	// Capture registers h for move and up events until release is called.
	Capture(h PointerHandler) (release func())
}

// Pointer is the document-level pointer stream. Move and up events are
// delivered to every active capture regardless of which element the
// pointer is over.
type Pointer struct {
	next     int
	captures map[int]PointerHandler
	order    []int
}

// NewPointer creates a pointer stream with no captures.
func NewPointer() *Pointer {
	return &Pointer{captures: make(map[int]PointerHandler)}
}

// Capture implements PointerCapturer. Calling release more than once is a
// no-op.
func (p *Pointer) Capture(h PointerHandler) func() {
	id := p.next
	p.next++
	p.captures[id] = h
	p.order = append(p.order, id)
	return func() {
		if _, ok := p.captures[id]; !ok {
			return
		}
		delete(p.captures, id)
		for i, v := range p.order {
			if v == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// Active returns the number of live captures.
func (p *Pointer) Active() int {
	return len(p.captures)
}

// Move dispatches a pointer move. It reports whether any capture received it.
func (p *Pointer) Move(pos geometry.Point) bool {
	hs := p.snapshot()
	for _, h := range hs {
		h.PointerMove(pos)
	}
	return len(hs) > 0
}

// Up dispatches a pointer release. It reports whether any capture received it.
func (p *Pointer) Up(pos geometry.Point) bool {
	hs := p.snapshot()
	for _, h := range hs {
		h.PointerUp(pos)
	}
	return len(hs) > 0
}

// snapshot copies the handlers so a handler may release its capture while
// being dispatched.
func (p *Pointer) snapshot() []PointerHandler {
	out := make([]PointerHandler, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.captures[id])
	}
	return out
}
