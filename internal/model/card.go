package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Card kinds. The content payload is a tagged union keyed by kind rather than
// a flat bag of optional columns.
const (
	CardKindText  = "text"
	CardKindImage = "image"
	CardKindFile  = "file"
	CardKindLink  = "link"
)

// Card is a single item placed on a board.
type Card struct {
	ID        string      `db:"id" json:"id"`
	BoardID   string      `db:"board_id" json:"board_id"`
	AccountID string      `db:"account_id" json:"account_id"`
	Kind      string      `db:"kind" json:"kind"`
	Content   CardContent `db:"content" json:"content"`
	DeletedAt *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// CardContent holds exactly one variant, selected by Kind. It marshals to a
// single JSONB column.
type CardContent struct {
	Kind  string        `json:"kind"`
	Text  *TextContent  `json:"text,omitempty"`
	Image *ImageContent `json:"image,omitempty"`
	File  *FileContent  `json:"file,omitempty"`
	Link  *LinkContent  `json:"link,omitempty"`
}

// TextContent is a plain note.
type TextContent struct {
	Body string `json:"body"`
}

// ImageContent is an uploaded image backed by the blob store.
type ImageContent struct {
	StorageKey string `json:"storage_key"`
	SizeBytes  int64  `json:"size_bytes"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

// FileContent is an arbitrary uploaded file backed by the blob store.
type FileContent struct {
	StorageKey string `json:"storage_key"`
	SizeBytes  int64  `json:"size_bytes"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type,omitempty"`
}

// LinkContent is a bookmarked URL.
type LinkContent struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Validate checks that the variant matching Kind is present and no other is.
func (c CardContent) Validate() error {
	var set int
	if c.Text != nil {
		set++
	}
	if c.Image != nil {
		set++
	}
	if c.File != nil {
		set++
	}
	if c.Link != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("card content must carry exactly one variant, got %d", set)
	}
	switch c.Kind {
	case CardKindText:
		if c.Text == nil {
			return fmt.Errorf("kind %q requires a text payload", c.Kind)
		}
	case CardKindImage:
		if c.Image == nil {
			return fmt.Errorf("kind %q requires an image payload", c.Kind)
		}
	case CardKindFile:
		if c.File == nil {
			return fmt.Errorf("kind %q requires a file payload", c.Kind)
		}
	case CardKindLink:
		if c.Link == nil {
			return fmt.Errorf("kind %q requires a link payload", c.Kind)
		}
	default:
		return fmt.Errorf("unknown card kind: %q", c.Kind)
	}
	return nil
}

// StorageBytes returns the blob-store footprint of the card. Only image and
// file variants occupy storage.
func (c CardContent) StorageBytes() int64 {
	switch {
	case c.Image != nil:
		return c.Image.SizeBytes
	case c.File != nil:
		return c.File.SizeBytes
	}
	return 0
}

// StorageKey returns the blob key for storage-backed variants, empty otherwise.
func (c CardContent) StorageKey() string {
	switch {
	case c.Image != nil:
		return c.Image.StorageKey
	case c.File != nil:
		return c.File.StorageKey
	}
	return ""
}

// MarshalContent serializes the content union for the JSONB column.
func MarshalContent(c CardContent) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal card content: %w", err)
	}
	return data, nil
}

// UnmarshalContent deserializes the JSONB column back into the union.
func UnmarshalContent(data []byte) (CardContent, error) {
	var c CardContent
	if err := json.Unmarshal(data, &c); err != nil {
		return CardContent{}, fmt.Errorf("unmarshal card content: %w", err)
	}
	return c, nil
}
