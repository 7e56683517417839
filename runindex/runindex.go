// Package runindex writes the run's index.json atomically, emits the
// optional CSV manifest, and prunes stale Figure_*/Table_* files left over
// from a previous run, per spec.md §4.9 and §5's shared-resource policy.
package runindex

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tsawler/attachcore/errs"
	"github.com/tsawler/attachcore/model"
)

// Sort orders records by (page, kind_rank(figure<table), ident), the
// document order spec.md §4.9 requires of index.json.
func Sort(records []model.AttachmentRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Kind.KindRank() != b.Kind.KindRank() {
			return a.Kind.KindRank() < b.Kind.KindRank()
		}
		return a.Ident.Less(b.Ident)
	})
}

// Write serialises records to <outDir>/index.json via a write-then-rename,
// so a crash mid-write never corrupts a previously committed index.
func Write(outDir string, records []model.AttachmentRecord) error {
	Sort(records)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	final := filepath.Join(outDir, "index.json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &errs.IndexWriteError{Path: final, Err: err}
	}
	if err := os.Rename(tmp, final); err != nil {
		return &errs.IndexWriteError{Path: final, Err: err}
	}
	return nil
}

// WriteCSV emits the optional manifest mirroring (kind, ident, page,
// caption, file, continued).
func WriteCSV(outDir string, records []model.AttachmentRecord) error {
	path := filepath.Join(outDir, "manifest.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"kind", "ident", "page", "caption", "file", "continued"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write([]string{
			r.Kind.String(),
			r.Ident.String(),
			strconv.Itoa(r.Page),
			r.CaptionText,
			r.File,
			strconv.FormatBool(r.Continued),
		}); err != nil {
			return err
		}
	}
	return nil
}

// Prune deletes every Figure_*/Table_* file in outDir not referenced by
// any record. It must only be called after [Write] has succeeded, per
// spec.md §4.9 and §5: a crashed run leaves the previous index, and every
// file it named, intact.
func Prune(outDir string, records []model.AttachmentRecord) ([]string, error) {
	keep := make(map[string]bool, len(records))
	for _, r := range records {
		keep[r.File] = true
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if !strings.HasPrefix(name, "Figure_") && !strings.HasPrefix(name, "Table_") {
			continue
		}
		if keep[name] {
			continue
		}
		if err := os.Remove(filepath.Join(outDir, name)); err != nil {
			return removed, fmt.Errorf("prune %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}
