// Package models defines the domain types shared by the vault and the ledger.
package models

import "time"

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Drawing records one delivered drawing.
type Drawing struct {
	ID         int64     `json:"id"`
	Note       string    `json:"note"`
	Attachment string    `json:"attachment"`
	Draft      string    `json:"draft"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
}

// Embed is an image reference found in a note body.
type Embed struct {
	Alt  string `json:"alt"`
	URL  string `json:"url"`
	Line int    `json:"line"`
}
