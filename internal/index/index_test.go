package index

import (
	"os"
	"testing"
	"time"

	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "yearwheel-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func row(path, id string, year, month, day int, cs string) NoteRow {
	return NoteRow{
		Path:      path,
		ID:        id,
		Date:      models.Date{Year: year, Month: month, Day: day},
		Checksum:  cs,
		UpdatedAt: time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertNote(row("2024/a.md", "a", 2024, 3, 1, "abc123"), "Spring starts."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("2024/a.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("2024/nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(row("2024/del.md", "del", 2024, 1, 1, "x"), "body")

	if err := db.DeleteNote("2024/del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("2024/del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
}

func TestUpsertMovesPathForSameID(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(row("2024/n.md", "n", 2024, 12, 31, "1"), "body")
	_ = db.UpsertNote(row("2025/n.md", "n", 2025, 1, 1, "2"), "body")

	all, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["2025/n.md"] != "2" {
		t.Errorf("checksums = %v", all)
	}
}

func TestListNotesByYear(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(row("2024/b.md", "b", 2024, 6, 2, "1"), "")
	_ = db.UpsertNote(row("2024/a.md", "a", 2024, 2, 9, "2"), "")
	_ = db.UpsertNote(row("2023/c.md", "c", 2023, 1, 1, "3"), "")

	rows, err := db.ListNotes(2024)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "b" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Date != (models.Date{Year: 2024, Month: 2, Day: 9}) {
		t.Errorf("date = %+v", rows[0].Date)
	}

	all, _ := db.ListNotes(0)
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}
}

func TestRowFromNote(t *testing.T) {
	n := &models.Note{
		ID:    "x",
		Title: "Title",
		Date:  models.Date{Year: 2024, Month: 5, Day: 5},
		ConnectionLine: &models.ConnectionLine{
			IsCustom:   true,
			PathPoints: []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
		},
	}
	r := RowFromNote("2024/x.md", n, "cs")
	if !r.CustomLine || r.ID != "x" || r.Checksum != "cs" || r.UpdatedAt.IsZero() {
		t.Errorf("row = %+v", r)
	}
	n.ConnectionLine = nil
	if RowFromNote("2024/x.md", n, "cs").CustomLine {
		t.Error("default connector flagged as custom")
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	r := row("2024/s.md", "s", 2024, 4, 4, "1")
	r.Title = "Search Me"
	_ = db.UpsertNote(r, "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Fatalf("search results = %+v, want 1 hit for s", results)
	}
	if d := results[0].Date; d.Year != 2024 || d.Month != 4 || d.Day != 4 {
		t.Errorf("date = %+v, want 2024-04-04", d)
	}
}
