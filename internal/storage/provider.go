// Package storage defines the vault file-system abstraction that holds one
// Markdown file per note.
package storage

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/starford/yearwheel/internal/models"
)

// NoteExt is the extension of note files.
const NoteExt = ".md"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every note file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root). An
	// existing newPath is never overwritten.
	Move(oldPath, newPath string) error
}

// NotePath returns the vault-relative file of a note: notes are grouped by
// the year of the wheel they are attached to.
func NotePath(year int, id string) string {
	return path.Join(fmt.Sprintf("%04d", year), id+NoteExt)
}

// YearOf reports the year directory of a vault-relative note path. Only
// visible ".md" files directly inside a four-digit year directory count as
// notes; card images and temp files live elsewhere in the vault.
func YearOf(rel string) (int, bool) {
	dir, file, ok := strings.Cut(rel, "/")
	if !ok || len(dir) != 4 || strings.Contains(file, "/") {
		return 0, false
	}
	if strings.HasPrefix(file, ".") || !strings.HasSuffix(file, NoteExt) || file == NoteExt {
		return 0, false
	}
	year, err := strconv.Atoi(dir)
	if err != nil || year < 1 {
		return 0, false
	}
	return year, true
}
