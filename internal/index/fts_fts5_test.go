//go:build sqlite_fts5

package index

import (
	"testing"
	"time"

	"github.com/starford/yearwheel/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count); err != nil {
		t.Fatalf("notes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "2024/fts.md",
		ID:        "fts",
		Title:     "Harvest",
		Date:      models.Date{Year: 2024, Month: 9, Day: 21},
		Checksum:  "f1",
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "Picked the last of the apples before the frost."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	results, err := db.Search("apples", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "fts" {
		t.Errorf("id = %q", results[0].ID)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "2024/gone.md", ID: "gone", Checksum: "g", UpdatedAt: time.Now()}, "vanishing content")
	_ = db.DeleteNote("2024/gone.md")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Path == "2024/gone.md" {
			t.Error("deleted note still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "2024/evo.md", ID: "evo", Title: "Old", Checksum: "1", UpdatedAt: now}, "original text")
	_ = db.UpsertNote(NoteRow{Path: "2024/evo.md", ID: "evo", Title: "New", Checksum: "2", UpdatedAt: now}, "replacement text")

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_YearMoveKeepsOneHit(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{Path: "2024/mv.md", ID: "mv", Date: models.Date{Year: 2024, Month: 12, Day: 31}, UpdatedAt: now}, "solstice walk")
	_ = db.UpsertNote(NoteRow{Path: "2025/mv.md", ID: "mv", Date: models.Date{Year: 2025, Month: 1, Day: 1}, UpdatedAt: now}, "solstice walk")

	results, err := db.Search("solstice", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "2025/mv.md" || results[0].Date.Year != 2025 {
		t.Errorf("results = %+v, want one hit at 2025/mv.md", results)
	}
}
