// Package noteservice exposes vault notes as drawing destinations.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/delivery"
	"github.com/starford/inkpad/internal/models"
	"github.com/starford/inkpad/internal/parser"
	"github.com/starford/inkpad/internal/storage"
)

// AttachDir is the flat vault directory holding every attachment.
const AttachDir = "attachments"

// AttachURLPrefix is how notes reference attachments.
const AttachURLPrefix = "/attachments/"

// Service reads and edits notes in the vault.
type Service struct {
	store storage.Provider
}

// NewService creates a new note service.
func NewService(store storage.Provider) *Service {
	return &Service{store: store}
}

// Target returns the destination for a drawing inserted into note at the
// 1-based line. Line 0 (or a line past the end) appends. It fails with
// apperr.ErrNotFound when the note does not exist.
func (s *Service) Target(_ context.Context, note string, line int) (*Target, error) {
	if line < 0 {
		return nil, fmt.Errorf("line must be >= 0, got %d", line)
	}
	if _, err := s.read(note); err != nil {
		return nil, err
	}
	return &Target{svc: s, note: note, line: line}, nil
}

// Embeds lists the attachment images referenced by note.
func (s *Service) Embeds(_ context.Context, note string) ([]models.Embed, error) {
	data, err := s.read(note)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res.Attachments(AttachURLPrefix)), nil
}

// ListNotes returns metadata for every note under folder (empty for the
// whole vault).
func (s *Service) ListNotes(_ context.Context, folder string) ([]models.NoteMetadata, error) {
	return s.store.List(folder)
}

func (s *Service) read(note string) ([]byte, error) {
	if !strings.HasSuffix(note, ".md") {
		return nil, fmt.Errorf("%w: %s is not a note", apperr.ErrNotFound, note)
	}
	data, err := s.store.Read(note)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, note)
		}
		return nil, err
	}
	return data, nil
}

// Target is a note at an insertion position.
type Target struct {
	svc  *Service
	note string
	line int
}

var _ delivery.Target = (*Target)(nil)

// Note returns the note path.
func (t *Target) Note() string { return t.note }

// AttachmentDir returns <vault>/attachments.
func (t *Target) AttachmentDir(_ context.Context) (string, error) {
	return t.svc.store.Abs(AttachDir)
}

// InsertImage adds a Markdown image referencing the attachment at path.
func (t *Target) InsertImage(_ context.Context, path string) error {
	data, err := t.svc.read(t.note)
	if err != nil {
		return err
	}
	embed := MarkdownImage(filepath.Base(path))
	return t.svc.store.Write(t.note, insertLine(data, t.line, embed))
}

// altEscaper backslash-escapes the characters that would end the alt text.
var altEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

// AttachmentURL returns the vault URL of an attachment file name. The name is
// percent-encoded so spaces and parentheses keep the link target intact.
func AttachmentURL(name string) string {
	return AttachURLPrefix + url.PathEscape(name)
}

// MarkdownImage formats the embed for an attachment file name.
func MarkdownImage(name string) string {
	return fmt.Sprintf("![%s](%s)", altEscaper.Replace(name), AttachmentURL(name))
}

// insertLine places text as a new line before the 1-based line. Zero or a
// line past the end appends. The result always ends with a newline.
func insertLine(data []byte, line int, text string) []byte {
	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}
	if line <= 0 || line > len(lines) {
		lines = append(lines, text)
	} else {
		lines = append(lines[:line-1], append([]string{text}, lines[line-1:]...)...)
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
