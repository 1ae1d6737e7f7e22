package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/yearwheel/internal/checksum"
	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/index"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/notestore"
	"github.com/starford/yearwheel/internal/render"
	"github.com/starford/yearwheel/internal/workspace"
)

// Canvas is the part of the workspace the API drives.
type Canvas interface {
	View(ctx context.Context) (workspace.View, error)
	SetYear(ctx context.Context, year int) (workspace.View, error)
	SetViewport(ctx context.Context, width, height float64) (workspace.View, error)
	CreateNote(ctx context.Context, in notestore.NewNote) (*models.Note, error)
	UpdateNote(ctx context.Context, id string, u notestore.Update, ifMatch string) (*models.Note, error)
	MoveNote(ctx context.Context, id string, pos geometry.Point, dragging bool) error
	ResizeNote(ctx context.Context, id string, size geometry.Size, dragging bool) error
	DeleteNote(ctx context.Context, id string) error
	ResetConnection(ctx context.Context, id string) (bool, error)
	Select(ctx context.Context, id string) (workspace.Selection, error)
	Deselect(ctx context.Context) error
	Selection(ctx context.Context) (workspace.Selection, error)
	GrabHandle(ctx context.Context, index int) (workspace.Selection, error)
	PointerMove(ctx context.Context, pos geometry.Point) (bool, error)
	PointerUp(ctx context.Context, pos geometry.Point) (bool, error)
	Connectors(ctx context.Context) ([]render.Connector, error)
	Connector(ctx context.Context, id string) (render.Connector, error)
	RenderSVG(ctx context.Context) ([]byte, error)
	RenderPNG(ctx context.Context) ([]byte, error)
}

// NoteReader reads notes without going through the canvas loop.
type NoteReader interface {
	Get(id string) (*models.Note, error)
	List(year int) []*models.Note
	Checksum(id string) string
}

// Searcher runs full-text queries.
type Searcher interface {
	Search(query string, limit int) ([]index.SearchResult, error)
}

var _ Canvas = (*workspace.Workspace)(nil)

// Handler holds API route handlers.
type Handler struct {
	canvas Canvas
	notes  NoteReader
	search Searcher
}

// NewHandler creates a new Handler.
func NewHandler(canvas Canvas, notes NoteReader, search Searcher) *Handler {
	return &Handler{canvas: canvas, notes: notes, search: search}
}

func (h *Handler) detail(n *models.Note) NoteDetail {
	return NoteDetail{Note: n, Checksum: h.notes.Checksum(n.ID)}
}

func (h *Handler) writeNote(w http.ResponseWriter, status int, n *models.Note) {
	d := h.detail(n)
	if d.Checksum != "" {
		w.Header().Set("ETag", checksum.ETag(d.Checksum))
	}
	writeJSON(w, status, d)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, optionally of one year
//	@Tags			notes
//	@Produce		json
//	@Param			year	query		int	false	"Wheel year"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("year must be a positive integer"))
			return
		}
		year = y
	}
	notes := h.notes.List(year)
	items := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, NoteListItem{
			ID:         n.ID,
			Title:      n.Title,
			Date:       n.Date,
			Checksum:   h.notes.Checksum(n.ID),
			CustomLine: n.ConnectionLine != nil,
			UpdatedAt:  n.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note attached to a day of the wheel
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.canvas.CreateNote(r.Context(), notestore.NewNote{
		Date:     req.Date,
		Title:    req.Title,
		Body:     req.Body,
		Image:    req.Image,
		Position: req.Position,
		Size:     req.Size,
	})
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	h.writeNote(w, http.StatusCreated, n)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Note id"
//	@Param			If-Match	header		string				false	"Checksum of the note file"
//	@Param			body		body		UpdateNoteRequest	true	"Changed fields"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ifMatch := checksum.FromETag(r.Header.Get("If-Match"))
	n, err := h.canvas.UpdateNote(r.Context(), chi.URLParam(r, "id"), notestore.Update{
		Date:  req.Date,
		Title: req.Title,
		Body:  req.Body,
		Image: req.Image,
	}, ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.canvas.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveNote handles POST /api/notes/{id}/move.
//
//	@Summary		Report a card drag or a completed move
//	@Tags			notes
//	@Accept			json
//	@Param			id		path	string		true	"Note id"
//	@Param			body	body	MoveRequest	true	"Card position"
//	@Success		204		"Accepted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/move [post]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pos := geometry.Point{X: req.X, Y: req.Y}
	if err := h.canvas.MoveNote(r.Context(), chi.URLParam(r, "id"), pos, req.Dragging); err != nil {
		writeError(w, "move note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResizeNote handles POST /api/notes/{id}/resize.
//
//	@Summary		Report a card resize
//	@Tags			notes
//	@Accept			json
//	@Param			id		path	string			true	"Note id"
//	@Param			body	body	ResizeRequest	true	"Card size"
//	@Success		204		"Accepted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/resize [post]
func (h *Handler) ResizeNote(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	size := geometry.Size{Width: req.Width, Height: req.Height}
	if err := h.canvas.ResizeNote(r.Context(), chi.URLParam(r, "id"), size, req.Dragging); err != nil {
		writeError(w, "resize note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetConnection handles DELETE /api/notes/{id}/connection.
//
//	@Summary		Discard the custom connector path of a note
//	@Tags			connectors
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	ResetResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/connection [delete]
func (h *Handler) ResetConnection(w http.ResponseWriter, r *http.Request) {
	reset, err := h.canvas.ResetConnection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "reset connection", err)
		return
	}
	writeJSON(w, http.StatusOK, ResetResponse{Reset: reset})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.search.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
