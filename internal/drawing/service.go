// Package drawing inserts freshly drawn images into vault notes and keeps the
// delivery history.
package drawing

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/starford/inkpad/internal/checksum"
	"github.com/starford/inkpad/internal/ledger"
	"github.com/starford/inkpad/internal/models"
	"github.com/starford/inkpad/internal/noteservice"
	"github.com/starford/inkpad/internal/pipeline"
)

// Delivery is the outcome of one inserted drawing.
type Delivery struct {
	ID       int64  `json:"id"`
	Note     string `json:"note"`
	Path     string `json:"path"`
	Markdown string `json:"markdown"`
	Checksum string `json:"checksum"`

	Result *pipeline.Result `json:"result"`
}

// Service runs the pipeline against vault notes.
type Service struct {
	pipeline *pipeline.Pipeline
	notes    *noteservice.Service
	ledger   ledger.Store
	logger   *slog.Logger
}

// NewService creates a drawing service.
func NewService(p *pipeline.Pipeline, notes *noteservice.Service, store ledger.Store, logger *slog.Logger) *Service {
	return &Service{pipeline: p, notes: notes, ledger: store, logger: logger}
}

// Insert runs one drawing session and embeds the result into note at the
// 1-based line (0 appends).
func (s *Service) Insert(ctx context.Context, note string, line int) (*Delivery, error) {
	target, err := s.notes.Target(ctx, note, line)
	if err != nil {
		return nil, err
	}

	res, err := s.pipeline.Run(ctx, target)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(res.Attachment)
	d := &Delivery{
		Note:     note,
		Path:     path.Join(noteservice.AttachDir, name),
		Markdown: noteservice.MarkdownImage(name),
		Result:   res,
	}

	sum, err := checksum.File(res.Attachment)
	if err != nil {
		s.logger.Warn("checksum of delivered drawing failed",
			slog.String("attachment", res.Attachment),
			slog.String("error", err.Error()))
	}
	d.Checksum = sum

	id, err := s.ledger.Record(models.Drawing{
		Note:       note,
		Attachment: d.Path,
		Draft:      res.Draft,
		Checksum:   sum,
	})
	if err != nil {
		// The drawing is already in the note; history is best effort.
		s.logger.Warn("recording drawing failed",
			slog.String("note", note),
			slog.String("error", err.Error()))
	}
	d.ID = id
	return d, nil
}

// History lists delivered drawings newest first. An empty note lists all.
func (s *Service) History(_ context.Context, note string, limit int) ([]models.Drawing, error) {
	out, err := s.ledger.List(note, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Drawing{}
	}
	return out, nil
}
