// Package adjust implements interactive connector adjustment: selecting a
// note shows one handle per path segment, dragging a handle reshapes the
// path in place, and releasing it commits the on-screen path to the note.
package adjust

import (
	"log/slog"

	"github.com/starford/yearwheel/internal/events"
	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/orthopath"
)

// State of the controller.
type State int

const (
	Idle State = iota
	ShowingHandles
	DraggingHandle
)

func (s State) String() string {
	switch s {
	case ShowingHandles:
		return "showing_handles"
	case DraggingHandle:
		return "dragging_handle"
	default:
		return "idle"
	}
}

// NoteStore is the note-store collaborator.
type NoteStore interface {
	// GetNote returns a copy of the note, or false when it does not exist.
	GetNote(id string) (*models.Note, bool)
	SetConnectionLine(id string, line *models.ConnectionLine) error
	NotifyAutoSave()
}

// AnchorLocator resolves the canvas-local position of a day marker.
type AnchorLocator interface {
	AnchorPosition(month, day int) (geometry.Point, bool)
}

// Canvas is the connector layer the controller reads from and writes to.
type Canvas interface {
	Draw(noteID string, anchor geometry.Point, rect geometry.Rect, line *models.ConnectionLine)
	SetPathData(noteID, d string) bool
	ReadRenderedPath(noteID string) (orthopath.Path, bool)
	Highlight(noteID string, on bool)
}

// HandleListener is told whenever the visible handle set changes. An empty
// noteID means no note is selected.
type HandleListener interface {
	HandlesChanged(noteID string, handles []Handle)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithCommitThreshold sets the minimum displacement in pixels a handle drag
// must reach before it is committed. Zero commits every drag.
func WithCommitThreshold(px float64) Option {
	return func(c *Controller) {
		c.threshold = px
	}
}

// WithHandleListener registers l for handle updates.
func WithHandleListener(l HandleListener) Option {
	return func(c *Controller) {
		c.listener = l
	}
}

// WithEmitter sets where NoteSelected and NoteDeselected are published.
func WithEmitter(e events.NoteLifecycleObserver) Option {
	return func(c *Controller) {
		c.emitter = e
	}
}

// Controller is the adjustment state machine. It is not safe for concurrent
// use; all calls must come from the workspace loop.
type Controller struct {
	logger    *slog.Logger
	store     NoteStore
	locator   AnchorLocator
	canvas    Canvas
	pointer   events.PointerCapturer
	listener  HandleListener
	emitter   events.NoteLifecycleObserver
	threshold float64

	state    State
	selected string
	baseline orthopath.Path
	handles  []Handle
	drag     *Handle
	release  func()
}

// New creates an idle controller.
func New(store NoteStore, locator AnchorLocator, canvas Canvas, pointer events.PointerCapturer, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		locator: locator,
		canvas:  canvas,
		pointer: pointer,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Selected returns the selected note id, or "" when idle.
func (c *Controller) Selected() string { return c.selected }

// Handles returns a copy of the visible handles.
func (c *Controller) Handles() []Handle {
	return append([]Handle(nil), c.handles...)
}

// Select shows handles for the connector of noteID as it is currently
// rendered. When the connector cannot be read the call is a no-op.
func (c *Controller) Select(noteID string) bool {
	p, ok := c.canvas.ReadRenderedPath(noteID)
	if !ok {
		c.logger.Debug("adjust: select aborted, no rendered path", slog.String("note_id", noteID))
		return false
	}

	prev := c.selected
	c.cancelDrag()
	if prev != "" && prev != noteID {
		c.canvas.Highlight(prev, false)
		c.emitDeselected(prev)
	}

	c.selected = noteID
	c.state = ShowingHandles
	c.setBaseline(p)
	c.canvas.Highlight(noteID, true)

	if prev != noteID && c.emitter != nil {
		c.emitter.NoteSelected(noteID)
	}
	return true
}

// Deselect clears handles and the baseline and returns to Idle.
func (c *Controller) Deselect() {
	if c.selected == "" {
		return
	}
	prev := c.selected
	c.cancelDrag()
	c.canvas.Highlight(prev, false)
	c.clear()
	c.emitDeselected(prev)
}

// BeginDrag starts dragging the handle of segment index and acquires the
// document-level pointer capture. It reports false when no such handle is
// shown.
func (c *Controller) BeginDrag(index int) bool {
	if c.state != ShowingHandles || index < 0 || index >= len(c.handles) {
		return false
	}
	h := c.handles[index]
	c.drag = &h
	c.state = DraggingHandle
	c.release = c.pointer.Capture(c)
	return true
}

// PointerMove implements events.PointerHandler.
func (c *Controller) PointerMove(pos geometry.Point) {
	if c.state != DraggingHandle {
		return
	}
	i := c.drag.Index
	if i+1 >= len(c.baseline) {
		return
	}
	working := constrain(c.baseline, i, c.drag.Axis, pos)
	if !c.canvas.SetPathData(c.selected, orthopath.Format(working)) {
		c.logger.Debug("adjust: drag move dropped, connector missing", slog.String("note_id", c.selected))
		return
	}
	for j, s := range working.Segments() {
		if j < len(c.handles) {
			c.handles[j].Position = s.Midpoint()
		}
	}
	c.notifyHandles()
}

// PointerUp implements events.PointerHandler.
func (c *Controller) PointerUp(geometry.Point) {
	if c.state != DraggingHandle {
		return
	}
	c.endDrag()
}

// endDrag releases the capture and commits the path on screen.
func (c *Controller) endDrag() {
	c.releaseCapture()
	c.drag = nil
	c.state = ShowingHandles

	p, ok := c.canvas.ReadRenderedPath(c.selected)
	if !ok {
		c.logger.Debug("adjust: commit aborted, no rendered path", slog.String("note_id", c.selected))
		return
	}

	if c.threshold > 0 && orthopath.MaxDisplacement(p, c.baseline) < c.threshold {
		c.canvas.SetPathData(c.selected, orthopath.Format(c.baseline))
		c.logger.Debug("adjust: drag below commit threshold", slog.String("note_id", c.selected))
		c.setBaseline(c.baseline)
		return
	}

	line := &models.ConnectionLine{
		IsCustom:     true,
		PathPoints:   p.Clone(),
		LastModified: models.Now(),
	}
	if err := c.store.SetConnectionLine(c.selected, line); err != nil {
		c.logger.Warn("adjust: commit connection line",
			slog.String("note_id", c.selected), slog.String("error", err.Error()))
		return
	}
	c.store.NotifyAutoSave()
	c.setBaseline(p)
}

// NotePositionChanged implements events.NotePositionObserver. While the
// selected card is dragged its connector follows: custom points other than
// the anchor are translated by the drag delta without touching the stored
// path.
func (c *Controller) NotePositionChanged(id string, pos geometry.Point, dragging bool) {
	if id != c.selected || !dragging {
		return
	}
	note, ok := c.store.GetNote(id)
	if !ok {
		c.logger.Debug("adjust: follow aborted, note missing", slog.String("note_id", id))
		return
	}
	anchor, ok := c.locator.AnchorPosition(note.Date.Month, note.Date.Day)
	if !ok {
		c.logger.Debug("adjust: follow aborted, anchor missing", slog.String("note_id", id))
		return
	}
	c.canvas.Draw(id, anchor, geometry.RectAt(pos, note.Size), FollowLine(note, pos))
}

// FollowLine returns the connection line of note as it should be drawn
// with the card at pos. Custom points are translated by the offset from
// the stored position, except the anchor. Other lines are returned as is.
func FollowLine(note *models.Note, pos geometry.Point) *models.ConnectionLine {
	line := note.ConnectionLine
	if !line.HasPoints() {
		return line
	}
	p, err := orthopath.FromPoints(line.PathPoints)
	if err != nil {
		return line
	}
	moved := orthopath.TranslateTail(p, pos.Sub(note.Position))
	return &models.ConnectionLine{
		IsCustom:     true,
		PathPoints:   moved,
		LastModified: line.LastModified,
	}
}

// NoteSelected implements events.NoteLifecycleObserver.
func (c *Controller) NoteSelected(string) {}

// NoteDeselected implements events.NoteLifecycleObserver.
func (c *Controller) NoteDeselected(string) {}

// NoteDeleted implements events.NoteLifecycleObserver.
func (c *Controller) NoteDeleted(id string) {
	if id == c.selected {
		c.Deselect()
	}
}

// ConnectionLineReset implements events.NoteLifecycleObserver.
func (c *Controller) ConnectionLineReset(id string) {
	if id == c.selected {
		c.Deselect()
	}
}

// ConnectorDrawn implements render.Observer: handles of the selected note
// are rebuilt from the freshly drawn path.
func (c *Controller) ConnectorDrawn(id string) {
	if id != c.selected {
		return
	}
	p, ok := c.canvas.ReadRenderedPath(id)
	if !ok {
		c.logger.Debug("adjust: refresh aborted, no rendered path", slog.String("note_id", id))
		return
	}
	c.setBaseline(p)
}

// ConnectorUpdated implements render.Observer.
func (c *Controller) ConnectorUpdated(string) {}

// ConnectorRemoved implements render.Observer.
func (c *Controller) ConnectorRemoved(id string) {
	if id == c.selected {
		c.Deselect()
	}
}

func (c *Controller) setBaseline(p orthopath.Path) {
	c.baseline = p.Clone()
	c.handles = handlesFor(c.baseline)
	if c.drag != nil && c.drag.Index >= len(c.handles) {
		c.cancelDrag()
	}
	c.notifyHandles()
}

func (c *Controller) clear() {
	c.selected = ""
	c.baseline = nil
	c.handles = nil
	c.state = Idle
	c.notifyHandles()
}

// cancelDrag ends a drag without committing.
func (c *Controller) cancelDrag() {
	if c.state != DraggingHandle {
		return
	}
	c.releaseCapture()
	c.drag = nil
	c.state = ShowingHandles
}

func (c *Controller) releaseCapture() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

func (c *Controller) notifyHandles() {
	if c.listener != nil {
		c.listener.HandlesChanged(c.selected, c.Handles())
	}
}

func (c *Controller) emitDeselected(id string) {
	if c.emitter != nil {
		c.emitter.NoteDeselected(id)
	}
}
