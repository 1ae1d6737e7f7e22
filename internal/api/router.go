package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vaultRoot is used to resolve the image directory.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	ih := NewImageHandler(vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Put("/", h.UpdateNote)
		r.Delete("/", h.DeleteNote)
		r.Post("/move", h.MoveNote)
		r.Post("/resize", h.ResizeNote)
		r.Delete("/connection", h.ResetConnection)
	})

	// Connector adjustment.
	r.Get("/selection", h.GetSelection)
	r.Post("/selection", h.Select)
	r.Delete("/selection", h.Deselect)
	r.Post("/handles/{index}/grab", h.GrabHandle)
	r.Post("/pointer/move", h.PointerMove)
	r.Post("/pointer/up", h.PointerUp)

	// Canvas.
	r.Get("/connectors", h.ListConnectors)
	r.Get("/connectors/{id}", h.GetConnector)
	r.Get("/canvas.svg", h.CanvasSVG)
	r.Get("/canvas.png", h.CanvasPNG)
	r.Get("/wheel", h.GetWheel)
	r.Put("/wheel", h.SetWheel)
	r.Put("/viewport", h.SetViewport)

	// Search.
	r.Get("/search", h.Search)

	// Card images.
	r.Post("/images", ih.Upload)
	r.Get("/images/{filename}", ih.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
