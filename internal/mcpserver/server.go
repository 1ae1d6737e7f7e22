// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes year wheel tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/yearwheel/internal/apperr"
	"github.com/starford/yearwheel/internal/index"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/notestore"
	"github.com/starford/yearwheel/internal/render"
)

const formatURI = "yearwheel://note-format"

// Canvas is the part of the workspace the tools mutate.
type Canvas interface {
	CreateNote(ctx context.Context, in notestore.NewNote) (*models.Note, error)
	Connector(ctx context.Context, id string) (render.Connector, error)
	ResetConnection(ctx context.Context, id string) (bool, error)
}

// Notes reads notes directly from the store.
type Notes interface {
	Get(id string) (*models.Note, error)
	List(year int) []*models.Note
}

// Searcher runs full-text queries.
type Searcher interface {
	Search(query string, limit int) ([]index.SearchResult, error)
}

// Server wraps the MCP server with year wheel tools.
type Server struct {
	mcp    *server.MCPServer
	canvas Canvas
	notes  Notes
	search Searcher
}

// New creates a new MCP server with all tools registered.
func New(canvas Canvas, notes Notes, search Searcher) *Server {
	s := &Server{canvas: canvas, notes: notes, search: search}

	s.mcp = server.NewMCPServer(
		"Year Wheel",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the notes of one year of the wheel, or all notes."),
		mcp.WithNumber("year", mcp.Description("Wheel year (omit for all years)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read a note including its card geometry and connector customisation."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Attach a new note to a day of the wheel. The card is placed at the "+
			"given canvas position, or at the origin when omitted."),
		mcp.WithNumber("year", mcp.Required()),
		mcp.WithNumber("month", mcp.Required(), mcp.Description("1-12")),
		mcp.WithNumber("day", mcp.Required(), mcp.Description("Day of month")),
		mcp.WithString("title", mcp.Description("Card title")),
		mcp.WithString("body", mcp.Description("Markdown body")),
		mcp.WithNumber("x", mcp.Description("Card left edge")),
		mcp.WithNumber("y", mcp.Description("Card top edge")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_connector",
		mcp.WithDescription("Return the SVG path data of the connector drawn for a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.getConnector)

	s.mcp.AddTool(mcp.NewTool("reset_connector",
		mcp.WithDescription("Discard the custom connector path of a note and restore the automatic route."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.resetConnector)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note File Format",
			mcp.WithResourceDescription("Layout of the Markdown files the year wheel stores notes in."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.search.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year := req.GetInt("year", 0)
	notes := s.notes.List(year)
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	lines := make([]string, 0, len(notes))
	for _, n := range notes {
		lines = append(lines, fmt.Sprintf("%s %04d-%02d-%02d %s",
			n.ID, n.Date.Year, n.Date.Month, n.Date.Day, n.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.Get(id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in notestore.NewNote
	var err error
	if in.Date.Year, err = req.RequireInt("year"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Date.Month, err = req.RequireInt("month"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Date.Day, err = req.RequireInt("day"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in.Title = req.GetString("title", "")
	in.Body = req.GetString("body", "")
	in.Position.X = req.GetFloat("x", 0)
	in.Position.Y = req.GetFloat("y", 0)

	n, err := s.canvas.CreateNote(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", n.ID)), nil
}

func (s *Server) getConnector(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.canvas.Connector(ctx, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return mcp.NewToolResultText(c.D), nil
}

func (s *Server) resetConnector(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reset, err := s.canvas.ResetConnection(ctx, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	if !reset {
		return mcp.NewToolResultText("connector already automatic"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("reset: %s", id)), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}
