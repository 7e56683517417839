// Package render writes a refined crop rect to a PNG file, and derives the
// filename spec.md §4.9 requires: kind, identifier, a sanitised slug of the
// caption text, deterministic collision suffixes, and an optional
// "_continued_pN" marker.
package render

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/model"
)

// MaxCaptionWords bounds how many words of the caption text feed the
// filename slug, per spec.md §6's max_caption_words default.
const MaxCaptionWords = 12

// PNG renders rect at dpi and writes it to path.
func PNG(page *backend.Page, dpi int, rect model.Rect, path string) error {
	img, err := page.Pixmap(dpi, rect)
	if err != nil {
		return &renderErr{page: page.Number(), err: err}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

type renderErr struct {
	page int
	err  error
}

func (e *renderErr) Error() string { return fmt.Sprintf("render page %d: %v", e.page, e.err) }
func (e *renderErr) Unwrap() error { return e.err }

// Slug reduces caption text to an ASCII-safe, whitespace-to-underscore
// filename fragment of at most maxWords words.
func Slug(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	joined := strings.Join(words, " ")
	var b strings.Builder
	lastUnderscore := false
	for _, r := range joined {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case r == ' ' || r == '\t' || r == '\n':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		default:
			// drop anything else: punctuation, non-ASCII, etc.
		}
	}
	return strings.Trim(b.String(), "_")
}

// FileName builds the base filename (without directory) for one record,
// per spec.md §4.9's {Figure,Table}_<ident>_<slug>[_continued_p<page>]
// pattern, not yet accounting for collisions.
func FileName(kind model.AttachmentKind, id model.Identifier, captionText string, continued bool, page int) string {
	prefix := "Figure"
	if kind == model.KindTable {
		prefix = "Table"
	}
	slug := Slug(captionText, MaxCaptionWords)
	name := fmt.Sprintf("%s_%s", prefix, id.SlugSafe())
	if slug != "" {
		name += "_" + slug
	}
	if continued {
		name += fmt.Sprintf("_continued_p%d", page)
	}
	return name + ".png"
}

// ResolveCollision appends a deterministic _1, _2, ... suffix to base
// until it names a path not already in used, returning the final
// filename and whether a suffix was needed.
func ResolveCollision(base string, used map[string]bool) (string, bool) {
	if !used[base] {
		return base, false
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !used[candidate] {
			return candidate, true
		}
	}
}
