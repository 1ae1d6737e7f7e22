// Package notestore owns the notes of the vault: it keeps them in memory,
// persists them as Markdown files with a debounced autosave, mirrors them
// into the search index and publishes lifecycle notifications.
package notestore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/yearwheel/internal/apperr"
	"github.com/starford/yearwheel/internal/checksum"
	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/index"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/orthopath"
	"github.com/starford/yearwheel/internal/parser"
	"github.com/starford/yearwheel/internal/storage"
	"github.com/starford/yearwheel/internal/wheel"
)

// Policy decides what happens to a custom connector when a card move or
// resize completes.
type Policy string

const (
	// PolicyReset discards the custom path and announces ConnectionLineReset.
	PolicyReset Policy = "reset"
	// PolicyTranslate shifts every point except the anchor by the move delta.
	PolicyTranslate Policy = "translate"
)

// Change kinds passed to a ChangeFunc.
const (
	NoteCreated = "note.created"
	NoteUpdated = "note.updated"
	NoteDeleted = "note.deleted"
)

// DefaultSize is the card size of notes created without one.
var DefaultSize = geometry.Size{Width: 200, Height: 120}

const defaultDebounce = 500 * time.Millisecond

// Emitter receives the notifications the store publishes.
type Emitter interface {
	NotePositionChanged(id string, pos geometry.Point, dragging bool)
	NoteDeleted(id string)
	ConnectionLineReset(id string)
}

// ChangeFunc is called after a note was created, updated or deleted. n is a
// copy; for deletions only the id is set.
type ChangeFunc func(kind string, n *models.Note)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIndex mirrors every persisted note into idx.
func WithIndex(idx index.NoteIndex) Option {
	return func(s *Store) { s.index = idx }
}

// WithEmitter sets where lifecycle notifications are published.
func WithEmitter(e Emitter) Option {
	return func(s *Store) { s.emitter = e }
}

// WithPolicy sets the move-complete policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithDebounce sets the autosave delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// WithChangeHook registers fn for note changes.
func WithChangeHook(fn ChangeFunc) Option {
	return func(s *Store) { s.onChange = fn }
}

// Store is safe for concurrent use. Notifications and change hooks run on
// the caller's goroutine after the store lock is released.
type Store struct {
	files    storage.Provider
	index    index.NoteIndex
	emitter  Emitter
	onChange ChangeFunc
	logger   *slog.Logger
	policy   Policy
	debounce time.Duration

	mu        sync.RWMutex
	notes     map[string]*models.Note
	paths     map[string]string // id -> vault path
	sums      map[string]string // vault path -> checksum of last read or write
	dirty     map[string]struct{}
	timer     *time.Timer
	requested int
}

// New creates an empty store over files.
func New(files storage.Provider, opts ...Option) *Store {
	s := &Store{
		files:    files,
		policy:   PolicyReset,
		debounce: defaultDebounce,
		notes:    make(map[string]*models.Note),
		paths:    make(map[string]string),
		sums:     make(map[string]string),
		dirty:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Load reads every note file of the vault. Files that cannot be parsed are
// skipped. Notes whose connection line failed validation lose it, and a
// single autosave is scheduled to persist the cleanup.
func (s *Store) Load() (int, error) {
	metas, err := s.files.List("")
	if err != nil {
		return 0, fmt.Errorf("notestore: load: %w", err)
	}

	s.mu.Lock()
	cleaned := 0
	for _, m := range metas {
		data, err := s.files.Read(m.Path)
		if err != nil {
			s.logger.Warn("notestore: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		res, err := parser.Parse(data)
		if err != nil {
			s.logger.Warn("notestore: parse failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		n := res.Note
		if prev, ok := s.paths[n.ID]; ok && prev != m.Path {
			s.logger.Warn("notestore: duplicate note id",
				slog.String("id", n.ID), slog.String("path", m.Path), slog.String("kept", prev))
			continue
		}
		s.notes[n.ID] = n
		s.paths[n.ID] = m.Path
		s.sums[m.Path] = checksum.Sum(data)
		if res.LineErr != nil {
			s.logger.Warn("notestore: dropped invalid connection line",
				slog.String("id", n.ID), slog.String("error", res.LineErr.Error()))
			s.dirty[n.ID] = struct{}{}
			cleaned++
		}
	}
	loaded := len(s.notes)
	s.mu.Unlock()

	if cleaned > 0 {
		s.NotifyAutoSave()
	}
	s.logger.Info("notestore: loaded", slog.Int("notes", loaded), slog.Int("cleaned", cleaned))
	return loaded, nil
}

// GetNote returns a copy of the note with id.
func (s *Store) GetNote(id string) (*models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Get is GetNote with an apperr.ErrNotFound error.
func (s *Store) Get(id string) (*models.Note, error) {
	n, ok := s.GetNote(id)
	if !ok {
		return nil, fmt.Errorf("notestore: note %q: %w", id, apperr.ErrNotFound)
	}
	return n, nil
}

// Checksum returns the checksum of the note file as last read or written.
func (s *Store) Checksum(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sums[s.paths[id]]
}

// List returns copies of the notes of year in calendar order. Year 0 lists
// every note.
func (s *Store) List(year int) []*models.Note {
	s.mu.RLock()
	out := make([]*models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		if year == 0 || n.Date.Year == year {
			out = append(out, n.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a != b {
			if a.Year != b.Year {
				return a.Year < b.Year
			}
			if a.Month != b.Month {
				return a.Month < b.Month
			}
			return a.Day < b.Day
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// NewNote holds the fields of a note to create.
type NewNote struct {
	Date     models.Date
	Title    string
	Body     string
	Image    string
	Position geometry.Point
	Size     geometry.Size
}

// Create adds a note and writes it immediately.
func (s *Store) Create(in NewNote) (*models.Note, error) {
	if !wheel.ValidDate(in.Date.Year, in.Date.Month, in.Date.Day) {
		return nil, fmt.Errorf("notestore: create: date %+v: %w", in.Date, apperr.ErrInvalid)
	}
	size := in.Size
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	now := time.Now().UTC().Truncate(time.Second)
	n := &models.Note{
		ID:        uuid.NewString(),
		Date:      in.Date,
		Title:     in.Title,
		Body:      in.Body,
		Image:     in.Image,
		Position:  in.Position,
		Size:      size,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	path := storage.NotePath(n.Date.Year, n.ID)
	s.notes[n.ID] = n
	s.paths[n.ID] = path
	err := s.persistLocked(n.ID)
	if err != nil {
		delete(s.notes, n.ID)
		delete(s.paths, n.ID)
	}
	out := n.Clone()
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	s.changed(NoteCreated, out)
	return out, nil
}

// Update holds the content fields of a note to change. Nil fields are kept.
type Update struct {
	Date  *models.Date
	Title *string
	Body  *string
	Image *string
}

// Update changes note content and writes it immediately. When ifMatch is
// set it must equal the checksum of the current file. Moving a note to
// another day re-anchors its connector, so any custom path is discarded.
func (s *Store) Update(id string, u Update, ifMatch string) (*models.Note, error) {
	if u.Date != nil && !wheel.ValidDate(u.Date.Year, u.Date.Month, u.Date.Day) {
		return nil, fmt.Errorf("notestore: update: date %+v: %w", *u.Date, apperr.ErrInvalid)
	}

	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("notestore: update %q: %w", id, apperr.ErrNotFound)
	}
	if ifMatch != "" && ifMatch != s.sums[s.paths[id]] {
		s.mu.Unlock()
		return nil, fmt.Errorf("notestore: update %q: %w", id, apperr.ErrConflict)
	}

	prev := n.Clone()
	reset := false
	if u.Date != nil && *u.Date != n.Date {
		n.Date = *u.Date
		reset = n.ConnectionLine != nil
		n.ConnectionLine = nil
	}
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Body != nil {
		n.Body = *u.Body
	}
	if u.Image != nil {
		n.Image = *u.Image
	}
	n.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	oldPath, err := s.relocateLocked(id, prev.Date.Year)
	if err != nil {
		s.notes[id] = prev
		s.mu.Unlock()
		return nil, err
	}
	if err := s.persistLocked(id); err != nil {
		if oldPath != "" {
			s.unrelocateLocked(id, oldPath)
		}
		s.notes[id] = prev
		s.mu.Unlock()
		return nil, err
	}
	if oldPath != "" {
		delete(s.sums, oldPath)
		if s.index != nil {
			if err := s.index.DeleteNote(oldPath); err != nil {
				s.logger.Warn("notestore: unindex failed", slog.String("path", oldPath), slog.String("error", err.Error()))
			}
		}
	}
	out := n.Clone()
	s.mu.Unlock()

	if reset {
		s.emitReset(id)
	}
	s.changed(NoteUpdated, out)
	return out, nil
}

// Move reports a card position. While dragging the stored note is left
// alone and only the notification is published; on completion the position
// is stored, the move-complete policy is applied and an autosave is
// scheduled.
func (s *Store) Move(id string, pos geometry.Point, dragging bool) error {
	if !pos.Finite() {
		return fmt.Errorf("notestore: move %q: position: %w", id, apperr.ErrInvalid)
	}
	if dragging {
		if _, ok := s.GetNote(id); !ok {
			return fmt.Errorf("notestore: move %q: %w", id, apperr.ErrNotFound)
		}
		s.emitPosition(id, pos, true)
		return nil
	}

	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("notestore: move %q: %w", id, apperr.ErrNotFound)
	}
	reset := s.applyPolicyLocked(n, pos.Sub(n.Position))
	n.Position = pos
	n.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	s.dirty[id] = struct{}{}
	out := n.Clone()
	s.mu.Unlock()

	s.NotifyAutoSave()
	s.emitPosition(id, pos, false)
	if reset {
		s.emitReset(id)
	}
	s.changed(NoteUpdated, out)
	return nil
}

// Resize reports a card size. Like Move it only touches the store on
// completion, where the move-complete policy also applies.
func (s *Store) Resize(id string, size geometry.Size, dragging bool) error {
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("notestore: resize %q: size: %w", id, apperr.ErrInvalid)
	}

	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("notestore: resize %q: %w", id, apperr.ErrNotFound)
	}
	if dragging {
		s.mu.Unlock()
		return nil
	}
	reset := s.applyPolicyLocked(n, geometry.Point{})
	n.Size = size
	n.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	s.dirty[id] = struct{}{}
	out := n.Clone()
	s.mu.Unlock()

	s.NotifyAutoSave()
	if reset {
		s.emitReset(id)
	}
	s.changed(NoteUpdated, out)
	return nil
}

// applyPolicyLocked adjusts the connection line of n for a completed card
// move by delta. It reports whether the line was discarded.
func (s *Store) applyPolicyLocked(n *models.Note, delta geometry.Point) bool {
	if n.ConnectionLine == nil {
		return false
	}
	if s.policy == PolicyTranslate {
		if n.ConnectionLine.HasPoints() && delta != (geometry.Point{}) {
			moved := orthopath.TranslateTail(n.ConnectionLine.PathPoints, delta)
			n.ConnectionLine = &models.ConnectionLine{
				IsCustom:     true,
				PathPoints:   moved,
				LastModified: models.Now(),
			}
		}
		return false
	}
	n.ConnectionLine = nil
	return true
}

// Delete removes a note and its file.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	path, ok := s.paths[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("notestore: delete %q: %w", id, apperr.ErrNotFound)
	}
	if err := s.files.Delete(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.mu.Unlock()
		return fmt.Errorf("notestore: delete %q: %w", id, err)
	}
	s.forgetLocked(id)
	s.mu.Unlock()

	s.emitDeleted(id)
	return nil
}

// SetConnectionLine stores the connector customisation of a note. The
// caller schedules the save with NotifyAutoSave.
func (s *Store) SetConnectionLine(id string, line *models.ConnectionLine) error {
	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("notestore: set connection line %q: %w", id, apperr.ErrNotFound)
	}
	if line != nil {
		line = line.Clone()
	}
	n.ConnectionLine = line
	n.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	s.dirty[id] = struct{}{}
	out := n.Clone()
	s.mu.Unlock()

	s.changed(NoteUpdated, out)
	return nil
}

// ResetConnectionLine discards the custom connector of a note. It reports
// whether there was one.
func (s *Store) ResetConnectionLine(id string) (bool, error) {
	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("notestore: reset connection line %q: %w", id, apperr.ErrNotFound)
	}
	if n.ConnectionLine == nil {
		s.mu.Unlock()
		return false, nil
	}
	n.ConnectionLine = nil
	n.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	s.dirty[id] = struct{}{}
	out := n.Clone()
	s.mu.Unlock()

	s.NotifyAutoSave()
	s.emitReset(id)
	s.changed(NoteUpdated, out)
	return true, nil
}

func (s *Store) forgetLocked(id string) {
	path := s.paths[id]
	delete(s.notes, id)
	delete(s.paths, id)
	delete(s.sums, path)
	delete(s.dirty, id)
	if s.index != nil {
		if err := s.index.DeleteNote(path); err != nil {
			s.logger.Warn("notestore: unindex failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
}

// relocateLocked moves the file of a note whose year changed and returns
// the path it had before, or "" when the year is unchanged.
func (s *Store) relocateLocked(id string, oldYear int) (string, error) {
	n := s.notes[id]
	if n.Date.Year == oldYear {
		return "", nil
	}
	oldPath := s.paths[id]
	newPath := storage.NotePath(n.Date.Year, id)
	if err := s.files.Move(oldPath, newPath); err != nil {
		return "", fmt.Errorf("notestore: relocate %q: %w", id, err)
	}
	s.paths[id] = newPath
	return oldPath, nil
}

// unrelocateLocked puts a relocated file back under oldPath.
func (s *Store) unrelocateLocked(id, oldPath string) {
	newPath := s.paths[id]
	if err := s.files.Move(newPath, oldPath); err != nil {
		s.logger.Error("notestore: restore relocated note failed",
			slog.String("id", id),
			slog.String("path", newPath),
			slog.String("error", err.Error()))
		return
	}
	s.paths[id] = oldPath
	delete(s.sums, newPath)
}

func (s *Store) changed(kind string, n *models.Note) {
	if s.onChange != nil {
		s.onChange(kind, n)
	}
}

func (s *Store) emitPosition(id string, pos geometry.Point, dragging bool) {
	if s.emitter != nil {
		s.emitter.NotePositionChanged(id, pos, dragging)
	}
}

func (s *Store) emitReset(id string) {
	if s.emitter != nil {
		s.emitter.ConnectionLineReset(id)
	}
}

func (s *Store) emitDeleted(id string) {
	if s.emitter != nil {
		s.emitter.NoteDeleted(id)
	}
	s.changed(NoteDeleted, &models.Note{ID: id})
}
