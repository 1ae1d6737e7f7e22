// Package models defines the domain types for the year wheel.
package models

import (
	"time"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/orthopath"
)

// Date is the calendar day a note is anchored to.
type Date struct {
	Year  int `json:"year" yaml:"year"`
	Month int `json:"month" yaml:"month"`
	Day   int `json:"day" yaml:"day"`
}

// Note is a card on the canvas connected to a day on the wheel.
type Note struct {
	ID       string         `json:"id"`
	Date     Date           `json:"date"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Image    string         `json:"image,omitempty"`
	Position geometry.Point `json:"position"`
	Size     geometry.Size  `json:"size"`
	// ConnectionLine is owned by the adjustment controller once created.
	ConnectionLine *ConnectionLine `json:"connectionLine,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Rect returns the card rectangle in canvas-local coordinates.
func (n *Note) Rect() geometry.Rect {
	return geometry.RectAt(n.Position, n.Size)
}

// Clone returns a deep copy of n.
func (n *Note) Clone() *Note {
	c := *n
	if n.ConnectionLine != nil {
		c.ConnectionLine = n.ConnectionLine.Clone()
	}
	return &c
}

// ConnectionLine is the persisted connector customisation of a note.
type ConnectionLine struct {
	IsCustom     bool                      `json:"isCustom" yaml:"isCustom"`
	PathPoints   []geometry.Point          `json:"pathPoints" yaml:"pathPoints"`
	Segments     []orthopath.LegacySegment `json:"segments,omitempty" yaml:"segments,omitempty"`
	LastModified Timestamp                 `json:"lastModified" yaml:"lastModified"`
}

// Clone returns a deep copy of l.
func (l *ConnectionLine) Clone() *ConnectionLine {
	c := *l
	c.PathPoints = append([]geometry.Point(nil), l.PathPoints...)
	c.Segments = append([]orthopath.LegacySegment(nil), l.Segments...)
	return &c
}

// HasPoints reports whether the line carries a usable point list.
func (l *ConnectionLine) HasPoints() bool {
	return l != nil && l.IsCustom && len(l.PathPoints) >= 2
}

// HasLegacySegments reports whether the line uses the offset format.
func (l *ConnectionLine) HasLegacySegments() bool {
	return l != nil && l.IsCustom && len(l.PathPoints) == 0 && len(l.Segments) > 0
}

// NoteMetadata is a lightweight representation returned by storage listings.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
