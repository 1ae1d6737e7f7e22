package notestore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/yearwheel/internal/checksum"
	"github.com/starford/yearwheel/internal/index"
	"github.com/starford/yearwheel/internal/models"
	"github.com/starford/yearwheel/internal/parser"
)

// NotifyAutoSave schedules a save of every changed note. Calls within the
// debounce window collapse into one save.
func (s *Store) NotifyAutoSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested++
	if s.timer != nil {
		s.timer.Reset(s.debounce)
		return
	}
	s.timer = time.AfterFunc(s.debounce, s.autosave)
}

func (s *Store) autosave() {
	if err := s.Flush(); err != nil {
		s.logger.Error("notestore: autosave failed", slog.String("error", err.Error()))
	}
}

// Flush writes every changed note now.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id := range s.dirty {
		if err := s.persistLocked(id); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		s.logger.Debug("notestore: flushed")
	}
	return errors.Join(errs...)
}

// Close stops the autosave timer and writes pending changes.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.Flush()
}

// Pending returns the number of notes waiting for a save.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dirty)
}

// persistLocked encodes and writes one note, then updates the index.
func (s *Store) persistLocked(id string) error {
	n, ok := s.notes[id]
	if !ok {
		delete(s.dirty, id)
		return nil
	}
	path := s.paths[id]
	data, err := parser.Encode(n)
	if err != nil {
		return fmt.Errorf("notestore: persist %q: %w", id, err)
	}
	if err := s.files.Write(path, data); err != nil {
		return fmt.Errorf("notestore: persist %q: %w", id, err)
	}
	sum := checksum.Sum(data)
	s.sums[path] = sum
	delete(s.dirty, id)

	if s.index != nil {
		if err := s.index.UpsertNote(index.RowFromNote(path, n, sum), n.Body); err != nil {
			s.logger.Warn("notestore: index failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	return nil
}

// ReloadFile picks up an external edit of the note file at path. It returns
// nil when the file is unchanged since the store last read or wrote it.
func (s *Store) ReloadFile(path string) (*models.Note, error) {
	data, err := s.files.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("notestore: reload %s: %w", path, err)
	}
	sum := checksum.Sum(data)

	s.mu.RLock()
	known := s.sums[path] == sum
	s.mu.RUnlock()
	if known {
		return nil, nil
	}

	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("notestore: reload %s: %w", path, err)
	}
	n := res.Note

	s.mu.Lock()
	if prev, ok := s.paths[n.ID]; ok && prev != path {
		// The file was renamed under us; the old path is gone.
		delete(s.sums, prev)
	}
	_, existed := s.notes[n.ID]
	s.notes[n.ID] = n
	s.paths[n.ID] = path
	s.sums[path] = sum
	delete(s.dirty, n.ID)
	if res.LineErr != nil {
		s.logger.Warn("notestore: dropped invalid connection line",
			slog.String("id", n.ID), slog.String("error", res.LineErr.Error()))
		s.dirty[n.ID] = struct{}{}
	}
	out := n.Clone()
	s.mu.Unlock()

	if res.LineErr != nil {
		s.NotifyAutoSave()
	}
	kind := NoteUpdated
	if !existed {
		kind = NoteCreated
	}
	s.logger.Info("notestore: reloaded", slog.String("path", path), slog.String("id", n.ID))
	s.changed(kind, out)
	return out, nil
}

// Forget drops the note stored at path after its file was removed outside
// the store. It returns the id of the dropped note.
func (s *Store) Forget(path string) (string, bool) {
	s.mu.Lock()
	id := ""
	for nid, p := range s.paths {
		if p == path {
			id = nid
			break
		}
	}
	if id == "" {
		s.mu.Unlock()
		return "", false
	}
	if _, err := s.files.Read(path); !errors.Is(err, os.ErrNotExist) {
		s.mu.Unlock()
		return "", false
	}
	s.forgetLocked(id)
	s.mu.Unlock()

	s.emitDeleted(id)
	return id, true
}
