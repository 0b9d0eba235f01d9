package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/starford/inkpad/internal/drawing"
	"github.com/starford/inkpad/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *drawing.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *drawing.Service) *Handler {
	return &Handler{svc: svc}
}

// InsertDrawing handles POST /api/drawings. The request blocks for the whole
// editor session.
//
//	@Summary		Draw a new image and embed it into a note
//	@Tags			drawings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InsertDrawingRequest	true	"Destination note"
//	@Success		201		{object}	DrawingResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/drawings [post]
func (h *Handler) InsertDrawing(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req InsertDrawingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Note == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("note is required"))
		return
	}
	if req.Line < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("line must be >= 0"))
		return
	}

	// The editor stays open for the user even if the client goes away.
	d, err := h.svc.Insert(context.WithoutCancel(r.Context()), req.Note, req.Line)
	if err != nil {
		writeError(w, err, slog.String("note", req.Note))
		return
	}
	writeJSON(w, http.StatusCreated, DrawingResponse{
		ID:       d.ID,
		Note:     d.Note,
		Path:     d.Path,
		URL:      noteservice.AttachmentURL(path.Base(d.Path)),
		Markdown: d.Markdown,
		Checksum: d.Checksum,
		Removed:  len(d.Result.Removed),
	})
}

// ListDrawings handles GET /api/drawings.
//
//	@Summary		List delivered drawings, newest first
//	@Tags			drawings
//	@Produce		json
//	@Param			note	query		string	false	"Only drawings inserted into this note"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	DrawingListResponse
//	@Security		BearerAuth
//	@Router			/drawings [get]
func (h *Handler) ListDrawings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, err := h.svc.History(r.Context(), q.Get("note"), limit)
	if err != nil {
		slog.Error("list drawings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DrawingListResponse{Drawings: items})
}
