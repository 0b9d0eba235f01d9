package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/inkpad/internal/convert"
	"github.com/starford/inkpad/internal/drawing"
	"github.com/starford/inkpad/internal/editor"
	"github.com/starford/inkpad/internal/noteservice"
	"github.com/starford/inkpad/internal/pipeline"
	"github.com/starford/inkpad/internal/process"
	"github.com/starford/inkpad/internal/storage"
	"github.com/starford/inkpad/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider, *testutil.Runner) {
	t.Helper()

	_, store := testutil.TestVault(t)
	workDir := t.TempDir()
	runner := testutil.NewRunner()
	runner.On(editor.Stage, testutil.EditorCreates(workDir, "sketch.xopp", "strokes"))

	logger := testutil.Logger()
	p := pipeline.New(pipeline.Options{
		WorkDir:   workDir,
		Clean:     true,
		DraftExt:  ".xopp",
		RasterExt: ".png",
	},
		editor.NewInvoker(runner, "xournalpp", 0),
		convert.NewChain(runner, convert.Options{
			Editor:     "xournalpp",
			RasterTool: "convert",
			DraftExt:   ".xopp",
			RasterExt:  ".png",
			Background: "white",
			Fuzz:       "1%",
		}, logger),
		logger, nil)

	notes := noteservice.NewService(store)
	srv := New(drawing.NewService(p, notes, testutil.TestLedger(t), logger), notes)
	return srv, store, runner
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we test
	// through the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "insert_drawing":
		result, err = srv.insertDrawing(ctx, req)
	case "list_drawings":
		result, err = srv.listDrawings(ctx, req)
	case "note_drawings":
		result, err = srv.noteDrawings(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "get_embed_contract":
		result, err = srv.getEmbedContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestInsertDrawingAndList(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("ideas.md", []byte("# Ideas\nfirst\n"))

	r := callTool(t, srv, "insert_drawing", map[string]any{"note": "ideas.md", "line": float64(2)})
	if r.IsError {
		t.Fatalf("insert_drawing error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"markdownImage": "![sketch.png](/attachments/sketch.png)"`) {
		t.Errorf("insert result = %s", resultText(r))
	}

	note, _ := store.Read("ideas.md")
	if string(note) != "# Ideas\n![sketch.png](/attachments/sketch.png)\nfirst\n" {
		t.Errorf("note = %q", note)
	}

	r = callTool(t, srv, "list_drawings", map[string]any{"note": "ideas.md"})
	if !strings.Contains(resultText(r), "attachments/sketch.png") {
		t.Errorf("list_drawings = %s", resultText(r))
	}

	r = callTool(t, srv, "note_drawings", map[string]any{"note": "ideas.md"})
	if resultText(r) != "2: /attachments/sketch.png" {
		t.Errorf("note_drawings = %q", resultText(r))
	}
}

func TestInsertDrawing_MissingNote(t *testing.T) {
	srv, _, runner := testServer(t)
	r := callTool(t, srv, "insert_drawing", map[string]any{"note": "ghost.md"})
	if !r.IsError {
		t.Fatal("expected error for missing note")
	}
	if !strings.Contains(resultText(r), "not found") {
		t.Errorf("error = %q", resultText(r))
	}
	if len(runner.Calls()) != 0 {
		t.Error("no session should start for a missing note")
	}
}

func TestInsertDrawing_RequiresNote(t *testing.T) {
	srv, _, _ := testServer(t)
	if r := callTool(t, srv, "insert_drawing", map[string]any{}); !r.IsError {
		t.Error("expected error without note")
	}
}

func TestInsertDrawing_NothingDrawn(t *testing.T) {
	srv, store, runner := testServer(t)
	_ = store.Write("ideas.md", []byte("x\n"))
	runner.On(editor.Stage, func(process.Command) error { return nil })

	r := callTool(t, srv, "insert_drawing", map[string]any{"note": "ideas.md"})
	if !r.IsError || !strings.Contains(resultText(r), "nothing was drawn") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestListDrawings_Empty(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "list_drawings", map[string]any{})
	if resultText(r) != "no drawings found" {
		t.Errorf("got %q", resultText(r))
	}
}

func TestNoteDrawings_NoneAndMissing(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("plain.md", []byte("text only\n"))

	if r := callTool(t, srv, "note_drawings", map[string]any{"note": "plain.md"}); resultText(r) != "no drawings embedded" {
		t.Errorf("plain note = %q", resultText(r))
	}
	if r := callTool(t, srv, "note_drawings", map[string]any{"note": "ghost.md"}); !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestListNotes(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("a.md", []byte("a\n"))
	_ = store.Write("sub/b.md", []byte("b\n"))

	r := callTool(t, srv, "list_notes", map[string]any{})
	text := resultText(r)
	if !strings.Contains(text, "a.md") || !strings.Contains(text, "sub/b.md") {
		t.Errorf("list_notes = %q", text)
	}

	r = callTool(t, srv, "list_notes", map[string]any{"folder": "sub"})
	if resultText(r) != "sub/b.md" {
		t.Errorf("list_notes folder = %q", resultText(r))
	}
}

func TestGetEmbedContract(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_embed_contract", nil)
	if !strings.Contains(resultText(r), "/attachments/") {
		t.Errorf("contract missing attachment path rule")
	}
}
