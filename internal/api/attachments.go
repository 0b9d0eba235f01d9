package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// AttachmentHandler serves delivered drawings from a single attachment
// directory. Only files carrying the raster extension are exposed.
type AttachmentHandler struct {
	dir string
	ext string
}

// NewAttachmentHandler creates a handler for dir serving rasterExt files.
func NewAttachmentHandler(dir, rasterExt string) *AttachmentHandler {
	return &AttachmentHandler{dir: dir, ext: rasterExt}
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	if !strings.EqualFold(filepath.Ext(name), h.ext) {
		http.NotFound(w, r)
		return
	}

	root, err := os.OpenRoot(h.dir)
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "attachments unavailable", http.StatusInternalServerError)
		return
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	// Redrawn attachments keep their name.
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
