package api

import (
	"errors"
	"math"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/index"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/render"
	"github.com/starford/yearwheel/internal/wheel"
)

var errBadDate = errors.New("must be a valid calendar day")

func validDate(value any) error {
	var d models.Date
	switch v := value.(type) {
	case models.Date:
		d = v
	case *models.Date:
		if v == nil {
			return nil
		}
		d = *v
	}
	if !wheel.ValidDate(d.Year, d.Month, d.Day) {
		return errBadDate
	}
	return nil
}

func finite(value any) error {
	if v, ok := value.(float64); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return errors.New("must be a finite number")
	}
	return nil
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Date     models.Date    `json:"date" validate:"required"`
	Title    string         `json:"title" example:"Spring trip"`
	Body     string         `json:"body" example:"# Spring trip\nPacked the car."`
	Image    string         `json:"image,omitempty" example:"/api/images/3f2a-cover.png"`
	Position geometry.Point `json:"position"`
	Size     geometry.Size  `json:"size"`
}

// Validate implements validation.Validatable.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.By(validDate)),
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Size, validation.By(func(any) error {
			if r.Size.Width < 0 || r.Size.Height < 0 {
				return errors.New("must not be negative")
			}
			return nil
		})),
	)
}

// UpdateNoteRequest is the request body for updating a note. Omitted fields
// are kept.
type UpdateNoteRequest struct {
	Date  *models.Date `json:"date,omitempty"`
	Title *string      `json:"title,omitempty" example:"Spring trip"`
	Body  *string      `json:"body,omitempty"`
	Image *string      `json:"image,omitempty"`
}

// Validate implements validation.Validatable.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.By(validDate)),
		validation.Field(&r.Title, validation.Length(0, 200)),
	)
}

// MoveRequest reports a card position.
type MoveRequest struct {
	X        float64 `json:"x" example:"420"`
	Y        float64 `json:"y" example:"180"`
	Dragging bool    `json:"dragging"`
}

// Validate implements validation.Validatable.
func (r MoveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.X, validation.By(finite)),
		validation.Field(&r.Y, validation.By(finite)),
	)
}

// ResizeRequest reports a card size.
type ResizeRequest struct {
	Width    float64 `json:"width" example:"200"`
	Height   float64 `json:"height" example:"120"`
	Dragging bool    `json:"dragging"`
}

// Validate implements validation.Validatable.
func (r ResizeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Width, validation.Required, validation.Min(1.0), validation.By(finite)),
		validation.Field(&r.Height, validation.Required, validation.Min(1.0), validation.By(finite)),
	)
}

// SelectRequest selects the connector of a note.
type SelectRequest struct {
	ID string `json:"id" validate:"required"`
}

// Validate implements validation.Validatable.
func (r SelectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
	)
}

// PointerRequest is a document-level pointer position.
type PointerRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Validate implements validation.Validatable.
func (r PointerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.X, validation.By(finite)),
		validation.Field(&r.Y, validation.By(finite)),
	)
}

// WheelRequest switches the displayed year.
type WheelRequest struct {
	Year int `json:"year" example:"2024" validate:"required"`
}

// Validate implements validation.Validatable.
func (r WheelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Year, validation.Required, validation.Min(1), validation.Max(9999)),
	)
}

// ViewportRequest resizes the canvas.
type ViewportRequest struct {
	Width  float64 `json:"width" example:"1280"`
	Height float64 `json:"height" example:"800"`
}

// Validate implements validation.Validatable.
func (r ViewportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Width, validation.Required, validation.Min(1.0), validation.By(finite)),
		validation.Field(&r.Height, validation.Required, validation.Min(1.0), validation.By(finite)),
	)
}

// NoteDetail is a note with the checksum of its file.
type NoteDetail struct {
	*models.Note
	Checksum string `json:"checksum"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Date       models.Date `json:"date"`
	Checksum   string      `json:"checksum"`
	CustomLine bool        `json:"custom_line"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ConnectorListResponse wraps the rendered connectors.
type ConnectorListResponse struct {
	Connectors []render.Connector `json:"connectors" validate:"required"`
}

// ResetResponse reports whether a custom connector was discarded.
type ResetResponse struct {
	Reset bool `json:"reset"`
}

// PointerResponse reports whether a pointer capture received the event.
type PointerResponse struct {
	Captured bool `json:"captured"`
}

// ImageUploadResponse is returned after a successful image upload.
type ImageUploadResponse struct {
	Filename string `json:"filename" example:"3f2a-cover.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/api/images/3f2a-cover.png" validate:"required"`
}
