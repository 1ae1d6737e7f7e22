package workspace

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/yearwheel/internal/adjust"
	"github.com/starford/yearwheel/internal/apperr"
	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/notestore"
	"github.com/starford/yearwheel/internal/render"
	"github.com/starford/yearwheel/internal/wheel"
)

// View describes what the canvas currently displays.
type View struct {
	Year     int                `json:"year"`
	Width    float64            `json:"width"`
	Height   float64            `json:"height"`
	Viewport geometry.Transform `json:"viewport"`
}

// Selection is the state of the adjustment controller.
type Selection struct {
	NoteID  string          `json:"id"`
	State   string          `json:"state"`
	Handles []adjust.Handle `json:"handles"`
}

// Load reads the vault and draws the connectors of the displayed year.
func (w *Workspace) Load(ctx context.Context) (int, error) {
	return call(ctx, w, func() (int, error) {
		n, err := w.store.Load()
		if err != nil {
			return 0, err
		}
		w.redrawAll()
		return n, nil
	})
}

// View returns the displayed year and viewport.
func (w *Workspace) View(ctx context.Context) (View, error) {
	return call(ctx, w, func() (View, error) {
		return w.view(), nil
	})
}

// SetYear switches the ring to year. Every connector is redrawn against the
// new layout and notes of other years lose theirs.
func (w *Workspace) SetYear(ctx context.Context, year int) (View, error) {
	return call(ctx, w, func() (View, error) {
		if !wheel.ValidDate(year, 1, 1) {
			return View{}, fmt.Errorf("workspace: set year %d: %w", year, apperr.ErrInvalid)
		}
		if year == w.layout.Year {
			return w.view(), nil
		}
		w.ctrl.Deselect()
		w.layout.Year = year
		w.relayout()
		w.renderer.Clear()
		w.redrawAll()
		w.logger.Info("workspace: year changed", slog.Int("year", year))
		return w.view(), nil
	})
}

// SetViewport resizes the canvas. Anchors move with the ring, so every
// connector is redrawn.
func (w *Workspace) SetViewport(ctx context.Context, width, height float64) (View, error) {
	return call(ctx, w, func() (View, error) {
		if width <= 0 || height <= 0 {
			return View{}, fmt.Errorf("workspace: set viewport %gx%g: %w", width, height, apperr.ErrInvalid)
		}
		w.width, w.height = width, height
		w.relayout()
		w.redrawAll()
		return w.view(), nil
	})
}

// CreateNote adds a note and draws its connector.
func (w *Workspace) CreateNote(ctx context.Context, in notestore.NewNote) (*models.Note, error) {
	return call(ctx, w, func() (*models.Note, error) {
		n, err := w.store.Create(in)
		if err != nil {
			return nil, err
		}
		w.redraw(n.ID)
		return n, nil
	})
}

// UpdateNote changes note content. A new date re-anchors the connector.
func (w *Workspace) UpdateNote(ctx context.Context, id string, u notestore.Update, ifMatch string) (*models.Note, error) {
	return call(ctx, w, func() (*models.Note, error) {
		n, err := w.store.Update(id, u, ifMatch)
		if err != nil {
			return nil, err
		}
		w.redraw(id)
		return n, nil
	})
}

// MoveNote reports a card drag (dragging=true) or a completed move.
func (w *Workspace) MoveNote(ctx context.Context, id string, pos geometry.Point, dragging bool) error {
	_, err := call(ctx, w, func() (struct{}, error) {
		return struct{}{}, w.store.Move(id, pos, dragging)
	})
	return err
}

// ResizeNote reports a card resize. While resizing the connector is drawn
// against the temporary card size.
func (w *Workspace) ResizeNote(ctx context.Context, id string, size geometry.Size, dragging bool) error {
	_, err := call(ctx, w, func() (struct{}, error) {
		if err := w.store.Resize(id, size, dragging); err != nil {
			return struct{}{}, err
		}
		if !dragging {
			w.redraw(id)
			return struct{}{}, nil
		}
		n, ok := w.store.GetNote(id)
		if !ok {
			return struct{}{}, nil
		}
		w.drawAt(n, geometry.RectAt(n.Position, size), n.ConnectionLine)
		return struct{}{}, nil
	})
	return err
}

// DeleteNote removes a note and its connector.
func (w *Workspace) DeleteNote(ctx context.Context, id string) error {
	_, err := call(ctx, w, func() (struct{}, error) {
		return struct{}{}, w.store.Delete(id)
	})
	return err
}

// ResetConnection discards the custom connector of a note. It reports
// whether there was one.
func (w *Workspace) ResetConnection(ctx context.Context, id string) (bool, error) {
	return call(ctx, w, func() (bool, error) {
		return w.store.ResetConnectionLine(id)
	})
}

// Select shows the handles of the connector of id.
func (w *Workspace) Select(ctx context.Context, id string) (Selection, error) {
	return call(ctx, w, func() (Selection, error) {
		if !w.ctrl.Select(id) {
			return Selection{}, fmt.Errorf("workspace: select %q: connector: %w", id, apperr.ErrNotFound)
		}
		return w.selection(), nil
	})
}

// Deselect hides the handles.
func (w *Workspace) Deselect(ctx context.Context) error {
	return w.Do(ctx, w.ctrl.Deselect)
}

// Selection returns the controller state.
func (w *Workspace) Selection(ctx context.Context) (Selection, error) {
	return call(ctx, w, func() (Selection, error) {
		return w.selection(), nil
	})
}

// GrabHandle starts dragging the handle of segment index.
func (w *Workspace) GrabHandle(ctx context.Context, index int) (Selection, error) {
	return call(ctx, w, func() (Selection, error) {
		if !w.ctrl.BeginDrag(index) {
			return Selection{}, fmt.Errorf("workspace: grab handle %d: %w", index, apperr.ErrInvalid)
		}
		return w.selection(), nil
	})
}

// PointerMove delivers a document-level pointer move. It reports whether a
// capture received it.
func (w *Workspace) PointerMove(ctx context.Context, pos geometry.Point) (bool, error) {
	return call(ctx, w, func() (bool, error) {
		return w.pointer.Move(pos), nil
	})
}

// PointerUp delivers a document-level pointer release.
func (w *Workspace) PointerUp(ctx context.Context, pos geometry.Point) (bool, error) {
	return call(ctx, w, func() (bool, error) {
		return w.pointer.Up(pos), nil
	})
}

// Connectors returns every rendered connector.
func (w *Workspace) Connectors(ctx context.Context) ([]render.Connector, error) {
	return call(ctx, w, func() ([]render.Connector, error) {
		return w.renderer.Connectors(), nil
	})
}

// Connector returns the rendered connector of id.
func (w *Workspace) Connector(ctx context.Context, id string) (render.Connector, error) {
	return call(ctx, w, func() (render.Connector, error) {
		c, ok := w.renderer.Connector(id)
		if !ok {
			return render.Connector{}, fmt.Errorf("workspace: connector %q: %w", id, apperr.ErrNotFound)
		}
		return c, nil
	})
}

// RenderSVG serialises the canvas.
func (w *Workspace) RenderSVG(ctx context.Context) ([]byte, error) {
	return call(ctx, w, func() ([]byte, error) {
		var buf bytes.Buffer
		if err := w.renderer.WriteSVG(&buf, w.scene()); err != nil {
			return nil, fmt.Errorf("workspace: render svg: %w", err)
		}
		return buf.Bytes(), nil
	})
}

// RenderPNG rasterises the canvas.
func (w *Workspace) RenderPNG(ctx context.Context) ([]byte, error) {
	return call(ctx, w, func() ([]byte, error) {
		var buf bytes.Buffer
		if err := w.renderer.WritePNG(&buf, w.scene()); err != nil {
			return nil, fmt.Errorf("workspace: render png: %w", err)
		}
		return buf.Bytes(), nil
	})
}

// ReloadFile picks up an external edit of a note file.
func (w *Workspace) ReloadFile(ctx context.Context, path string) error {
	_, err := call(ctx, w, func() (struct{}, error) {
		n, err := w.store.ReloadFile(path)
		if err != nil || n == nil {
			return struct{}{}, err
		}
		w.redraw(n.ID)
		return struct{}{}, nil
	})
	return err
}

// Forget drops the note of a file removed outside the workspace.
func (w *Workspace) Forget(ctx context.Context, path string) error {
	return w.Do(ctx, func() {
		if id, ok := w.store.Forget(path); ok {
			w.logger.Info("workspace: note file removed", slog.String("path", path), slog.String("id", id))
		}
	})
}

func (w *Workspace) view() View {
	return View{
		Year:     w.layout.Year,
		Width:    w.width,
		Height:   w.height,
		Viewport: w.anchors.loc.Viewport(),
	}
}

func (w *Workspace) selection() Selection {
	return Selection{
		NoteID:  w.ctrl.Selected(),
		State:   w.ctrl.State().String(),
		Handles: w.ctrl.Handles(),
	}
}

func (w *Workspace) relayout() {
	w.anchors.loc = wheel.NewLocator(w.layout, w.viewport())
}

// redrawAll draws the connector of every note of the displayed year.
func (w *Workspace) redrawAll() {
	for _, n := range w.store.List(w.layout.Year) {
		w.drawAt(n, n.Rect(), n.ConnectionLine)
	}
}

// redraw draws the connector of id from the stored note, or removes it when
// the note is gone or not on the displayed ring.
func (w *Workspace) redraw(id string) {
	n, ok := w.store.GetNote(id)
	if !ok {
		w.renderer.Remove(id)
		return
	}
	w.drawAt(n, n.Rect(), n.ConnectionLine)
}

func (w *Workspace) drawAt(n *models.Note, rect geometry.Rect, line *models.ConnectionLine) {
	if n.Date.Year != w.layout.Year {
		w.renderer.Remove(n.ID)
		return
	}
	anchor, ok := w.anchors.AnchorPosition(n.Date.Month, n.Date.Day)
	if !ok {
		w.logger.Debug("workspace: no anchor", slog.String("note_id", n.ID))
		w.renderer.Remove(n.ID)
		return
	}
	w.renderer.Draw(n.ID, anchor, rect, line)
}
