package api

import (
	"github.com/starford/inkpad/internal/models"
)

// InsertDrawingRequest is the request body for starting a drawing session.
type InsertDrawingRequest struct {
	Note string `json:"note" example:"daily/2024-05-01.md" validate:"required"`
	Line int    `json:"line" example:"0"`
}

// DrawingResponse is returned after a drawing has been inserted.
type DrawingResponse struct {
	ID       int64  `json:"id" example:"7" validate:"required"`
	Note     string `json:"note" example:"daily/2024-05-01.md" validate:"required"`
	Path     string `json:"path" example:"attachments/1f0c.png" validate:"required"`
	URL      string `json:"url" example:"/attachments/1f0c.png" validate:"required"`
	Markdown string `json:"markdown" example:"![1f0c.png](/attachments/1f0c.png)" validate:"required"`
	Checksum string `json:"checksum" example:"abc123..."`
	Removed  int    `json:"removed" example:"2"`
}

// DrawingListResponse wraps the delivery history.
type DrawingListResponse struct {
	Drawings []models.Drawing `json:"drawings" validate:"required"`
}
