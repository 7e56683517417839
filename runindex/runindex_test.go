package runindex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tsawler/attachcore/model"
)

func rec(kind model.AttachmentKind, id model.Identifier, page int, file string) model.AttachmentRecord {
	return model.AttachmentRecord{Kind: kind, Ident: id, Page: page, File: file}
}

func TestSortOrdersByPageThenKindThenIdent(t *testing.T) {
	records := []model.AttachmentRecord{
		rec(model.KindTable, model.NewNumeric(1), 2, "Table_1.png"),
		rec(model.KindFigure, model.NewNumeric(2), 1, "Figure_2.png"),
		rec(model.KindFigure, model.NewNumeric(1), 1, "Figure_1.png"),
		rec(model.KindFigure, model.NewNumeric(1), 2, "Figure_1_p2.png"),
	}
	Sort(records)

	want := []string{"Figure_1.png", "Figure_2.png", "Figure_1_p2.png", "Table_1.png"}
	for i, w := range want {
		if records[i].File != w {
			t.Errorf("position %d: File = %q, want %q", i, records[i].File, w)
		}
	}
}

func TestWriteProducesValidJSONAtomically(t *testing.T) {
	dir := t.TempDir()
	records := []model.AttachmentRecord{
		rec(model.KindFigure, model.NewNumeric(1), 1, "Figure_1.png"),
	}
	if err := Write(dir, records); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	final := filepath.Join(dir, "index.json")
	if _, err := os.Stat(final + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not survive a successful Write")
	}

	data, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("index.json not written: %v", err)
	}
	var out []model.AttachmentRecord
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("index.json is not valid JSON: %v", err)
	}
	if len(out) != 1 || out[0].File != "Figure_1.png" {
		t.Errorf("unexpected decoded records: %+v", out)
	}
}

func TestWriteCSVHasHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	records := []model.AttachmentRecord{
		rec(model.KindFigure, model.NewNumeric(1), 1, "Figure_1.png"),
	}
	if err := WriteCSV(dir, records); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "manifest.csv"))
	if err != nil {
		t.Fatalf("manifest.csv not written: %v", err)
	}
	want := "kind,ident,page,caption,file,continued\nfigure,1,1,,Figure_1.png,false\n"
	if string(data) != want {
		t.Errorf("manifest.csv = %q, want %q", string(data), want)
	}
}

func TestPruneRemovesUnreferencedFiguresAndTables(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Figure_1.png", "Figure_2.png", "Table_1.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	records := []model.AttachmentRecord{
		rec(model.KindFigure, model.NewNumeric(1), 1, "Figure_1.png"),
	}
	removed, err := Prune(dir, records)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed = %v, want 2 entries", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "Figure_1.png")); err != nil {
		t.Error("Figure_1.png should survive, it's referenced")
	}
	if _, err := os.Stat(filepath.Join(dir, "Figure_2.png")); !os.IsNotExist(err) {
		t.Error("Figure_2.png should have been pruned")
	}
	if _, err := os.Stat(filepath.Join(dir, "Table_1.png")); !os.IsNotExist(err) {
		t.Error("Table_1.png should have been pruned")
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("notes.txt is not a Figure_/Table_ file and should survive untouched")
	}
}
