package index

import (
	"fmt"
	"log/slog"

	"github.com/starford/yearwheel/internal/checksum"
	"github.com/starford/yearwheel/internal/parser"
	"github.com/starford/yearwheel/internal/storage"
)

// SyncStats counts what a Sync pass changed.
type SyncStats struct {
	Indexed int
	Removed int
	Failed  int
}

// Sync brings the index in line with the vault: note files whose checksum
// differs from the index are parsed and upserted, index rows without a
// file are dropped. Unreadable or unparsable files are logged and counted.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var st SyncStats
	err := diff(db, store,
		func(path string) {
			data, err := store.Read(path)
			if err == nil {
				err = IndexFile(db, path, data)
			}
			if err != nil {
				st.Failed++
				logger.Warn("sync: index failed", slog.String("path", path), slog.String("error", err.Error()))
				return
			}
			st.Indexed++
		},
		func(path string) {
			if err := db.DeleteNote(path); err != nil {
				st.Failed++
				logger.Warn("sync: delete failed", slog.String("path", path), slog.String("error", err.Error()))
				return
			}
			st.Removed++
		})
	if err != nil {
		return st, err
	}
	logger.Info("sync: done",
		slog.Int("indexed", st.Indexed), slog.Int("removed", st.Removed), slog.Int("failed", st.Failed))
	return st, nil
}

// diff compares the vault listing with the indexed checksums and reports
// stale paths to changed and orphaned rows to gone.
func diff(db NoteIndex, store storage.Provider, changed, gone func(path string)) error {
	indexed, err := db.AllChecksums()
	if err != nil {
		return fmt.Errorf("index: diff: %w", err)
	}
	metas, err := store.List("")
	if err != nil {
		return fmt.Errorf("index: diff: %w", err)
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if indexed[m.Path] != m.Checksum {
			changed(m.Path)
		}
	}
	for p := range indexed {
		if _, ok := disk[p]; !ok {
			gone(p)
		}
	}
	return nil
}

// IndexFile parses a note file and upserts it into the index.
func IndexFile(db NoteIndex, path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("index: parse %s: %w", path, err)
	}
	return db.UpsertNote(RowFromNote(path, res.Note, checksum.Sum(data)), res.Note.Body)
}
