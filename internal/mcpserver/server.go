// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes inkpad drawing tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/drawing"
	"github.com/starford/inkpad/internal/noteservice"
)

const contractURI = "inkpad://embed-format"

// Server wraps the MCP server with inkpad tools.
type Server struct {
	mcp     *server.MCPServer
	drawing *drawing.Service
	notes   *noteservice.Service
}

// New creates a new MCP server with all inkpad tools registered.
func New(svc *drawing.Service, notes *noteservice.Service) *Server {
	s := &Server{drawing: svc, notes: notes}

	s.mcp = server.NewMCPServer(
		"inkpad",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("insert_drawing",
		mcp.WithDescription("Open the drawing editor for the user and embed the finished drawing "+
			"into a note. Blocks until the editor is closed. See the embed contract via "+
			"the get_embed_contract tool or the "+contractURI+" resource."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Relative path to an existing note (e.g. folder/note.md)")),
		mcp.WithNumber("line", mcp.Description("1-based line to insert before; 0 or omitted appends")),
	), s.insertDrawing)

	s.mcp.AddTool(mcp.NewTool("list_drawings",
		mcp.WithDescription("List delivered drawings, newest first."),
		mcp.WithString("note", mcp.Description("Optional note path to filter by")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 50)")),
	), s.listDrawings)

	s.mcp.AddTool(mcp.NewTool("note_drawings",
		mcp.WithDescription("List the attachment images embedded in a note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.noteDrawings)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_embed_contract",
		mcp.WithDescription("Returns how drawings are stored and referenced in notes."),
	), s.getEmbedContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Drawing Embed Contract",
			mcp.WithResourceDescription("How inserted drawings are stored and referenced."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) insertDrawing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line := req.GetInt("line", 0)
	if line < 0 {
		return mcp.NewToolResultError("line must be >= 0"), nil
	}

	d, err := s.drawing.Insert(context.WithoutCancel(ctx), note, line)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("note not found: %s", note)), nil
		case errors.Is(err, apperr.ErrNoArtifact):
			return mcp.NewToolResultError("nothing was drawn: " + err.Error()), nil
		default:
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	out, _ := json.MarshalIndent(map[string]any{
		"note":          d.Note,
		"path":          d.Path,
		"markdownImage": d.Markdown,
		"checksum":      d.Checksum,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDrawings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.drawing.History(ctx, req.GetString("note", ""), req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no drawings found"), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) noteDrawings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	embeds, err := s.notes.Embeds(ctx, note)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", note)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(embeds) == 0 {
		return mcp.NewToolResultText("no drawings embedded"), nil
	}
	lines := make([]string, len(embeds))
	for i, e := range embeds {
		lines[i] = fmt.Sprintf("%d: %s", e.Line, e.URL)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.notes.ListNotes(ctx, req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getEmbedContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EmbedContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     EmbedContract,
		},
	}, nil
}
