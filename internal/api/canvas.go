package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/yearwheel/internal/geometry"
)

// GetSelection handles GET /api/selection.
//
//	@Summary		Get the selected connector and its handles
//	@Tags			adjust
//	@Produce		json
//	@Success		200	{object}	workspace.Selection
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := h.canvas.Selection(r.Context())
	if err != nil {
		writeError(w, "selection", err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// Select handles POST /api/selection.
//
//	@Summary		Select a connector and show its handles
//	@Tags			adjust
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectRequest	true	"Note id"
//	@Success		200		{object}	workspace.Selection
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sel, err := h.canvas.Select(r.Context(), req.ID)
	if err != nil {
		writeError(w, "select", err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// Deselect handles DELETE /api/selection.
//
//	@Summary		Hide the handles
//	@Tags			adjust
//	@Success		204	"Deselected"
//	@Security		BearerAuth
//	@Router			/selection [delete]
func (h *Handler) Deselect(w http.ResponseWriter, r *http.Request) {
	if err := h.canvas.Deselect(r.Context()); err != nil {
		writeError(w, "deselect", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GrabHandle handles POST /api/handles/{index}/grab.
//
//	@Summary		Start dragging a segment handle
//	@Tags			adjust
//	@Produce		json
//	@Param			index	path		int	true	"Segment index"
//	@Success		200		{object}	workspace.Selection
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/handles/{index}/grab [post]
func (h *Handler) GrabHandle(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("index must be an integer"))
		return
	}
	sel, err := h.canvas.GrabHandle(r.Context(), idx)
	if err != nil {
		writeError(w, "grab handle", err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// PointerMove handles POST /api/pointer/move.
//
//	@Summary		Deliver a document-level pointer move
//	@Tags			adjust
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PointerRequest	true	"Pointer position"
//	@Success		200		{object}	PointerResponse
//	@Security		BearerAuth
//	@Router			/pointer/move [post]
func (h *Handler) PointerMove(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ok, err := h.canvas.PointerMove(r.Context(), geometry.Point{X: req.X, Y: req.Y})
	if err != nil {
		writeError(w, "pointer move", err)
		return
	}
	writeJSON(w, http.StatusOK, PointerResponse{Captured: ok})
}

// PointerUp handles POST /api/pointer/up.
//
//	@Summary		Deliver a document-level pointer release
//	@Tags			adjust
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PointerRequest	true	"Pointer position"
//	@Success		200		{object}	PointerResponse
//	@Security		BearerAuth
//	@Router			/pointer/up [post]
func (h *Handler) PointerUp(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ok, err := h.canvas.PointerUp(r.Context(), geometry.Point{X: req.X, Y: req.Y})
	if err != nil {
		writeError(w, "pointer up", err)
		return
	}
	writeJSON(w, http.StatusOK, PointerResponse{Captured: ok})
}

// ListConnectors handles GET /api/connectors.
//
//	@Summary		List the rendered connectors
//	@Tags			connectors
//	@Produce		json
//	@Success		200	{object}	ConnectorListResponse
//	@Security		BearerAuth
//	@Router			/connectors [get]
func (h *Handler) ListConnectors(w http.ResponseWriter, r *http.Request) {
	cs, err := h.canvas.Connectors(r.Context())
	if err != nil {
		writeError(w, "list connectors", err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectorListResponse{Connectors: cs})
}

// GetConnector handles GET /api/connectors/{id}.
//
//	@Summary		Get the rendered connector of a note
//	@Tags			connectors
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	render.Connector
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/connectors/{id} [get]
func (h *Handler) GetConnector(w http.ResponseWriter, r *http.Request) {
	c, err := h.canvas.Connector(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get connector", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CanvasSVG handles GET /api/canvas.svg.
//
//	@Summary		Snapshot of the canvas as SVG
//	@Tags			canvas
//	@Produce		image/svg+xml
//	@Success		200
//	@Security		BearerAuth
//	@Router			/canvas.svg [get]
func (h *Handler) CanvasSVG(w http.ResponseWriter, r *http.Request) {
	data, err := h.canvas.RenderSVG(r.Context())
	if err != nil {
		writeError(w, "render svg", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(data)
}

// CanvasPNG handles GET /api/canvas.png.
//
//	@Summary		Snapshot of the canvas as PNG
//	@Tags			canvas
//	@Produce		image/png
//	@Success		200
//	@Security		BearerAuth
//	@Router			/canvas.png [get]
func (h *Handler) CanvasPNG(w http.ResponseWriter, r *http.Request) {
	data, err := h.canvas.RenderPNG(r.Context())
	if err != nil {
		writeError(w, "render png", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

// GetWheel handles GET /api/wheel.
//
//	@Summary		Get the displayed year and viewport
//	@Tags			canvas
//	@Produce		json
//	@Success		200	{object}	workspace.View
//	@Security		BearerAuth
//	@Router			/wheel [get]
func (h *Handler) GetWheel(w http.ResponseWriter, r *http.Request) {
	v, err := h.canvas.View(r.Context())
	if err != nil {
		writeError(w, "view", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetWheel handles PUT /api/wheel.
//
//	@Summary		Switch the displayed year
//	@Tags			canvas
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WheelRequest	true	"Year"
//	@Success		200		{object}	workspace.View
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/wheel [put]
func (h *Handler) SetWheel(w http.ResponseWriter, r *http.Request) {
	var req WheelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.canvas.SetYear(r.Context(), req.Year)
	if err != nil {
		writeError(w, "set year", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetViewport handles PUT /api/viewport.
//
//	@Summary		Resize the canvas
//	@Tags			canvas
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ViewportRequest	true	"Canvas size"
//	@Success		200		{object}	workspace.View
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewport [put]
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.canvas.SetViewport(r.Context(), req.Width, req.Height)
	if err != nil {
		writeError(w, "set viewport", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
