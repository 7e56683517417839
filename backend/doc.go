// Package backend provides the narrow, read-only view of a PDF document
// that the rest of the attachment-extraction core is built against, per
// spec.md §4.1. It wraps tabula's reader.Reader, pages.Page,
// text.Extractor and graphicsstate.GraphicsExtractor, and is the one place
// that converts between tabula's bottom-left-origin model.BBox and this
// module's top-left-origin model.Rect.
//
// The adapter is re-entrant per page (each Page call builds its own
// extractor state) but, like the teacher's reader.Reader, does not guard a
// single *Page against concurrent use from more than one goroutine.
package backend

import (
	"errors"
	"os"
	"strconv"

	"github.com/tsawler/attachcore/errs"
	"github.com/tsawler/attachcore/reader"
)

var errZeroPages = errors.New("document has zero pages")

// Document is an open PDF, read-only for the lifetime of the run.
type Document struct {
	path      string
	file      *os.File
	reader    *reader.Reader
	pageCount int
}

// Open opens path for reading. It fails-with an [*errs.InputError] when the
// file is missing, zero-page, or otherwise unreadable; tabula's core has no
// encryption support, so an encrypted PDF surfaces as a parse failure here
// too, which still satisfies spec.md §7's "refuse to proceed" contract.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.InputError{Path: path, Err: err}
	}
	r, err := reader.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &errs.InputError{Path: path, Err: err}
	}
	n, err := r.PageCount()
	if err != nil {
		f.Close()
		return nil, &errs.InputError{Path: path, Err: err}
	}
	if n == 0 {
		f.Close()
		return nil, &errs.InputError{Path: path, Err: errZeroPages}
	}
	return &Document{path: path, file: f, reader: r, pageCount: n}, nil
}

// Close releases the underlying file handle.
func (d *Document) Close() error {
	return d.file.Close()
}

// Path returns the path the document was opened from.
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int { return d.pageCount }

// Page returns the 1-indexed page i. Pages are cheap to open repeatedly;
// callers that need the same page's text/drawings/images more than once
// should keep the returned *Page around rather than reopening it, since
// each call re-parses that page's content streams.
func (d *Document) Page(i int) (*Page, error) {
	if i < 1 || i > d.pageCount {
		return nil, &errs.InputError{Path: d.path, Err: errPageOutOfRange(i, d.pageCount)}
	}
	pg, err := d.reader.GetPage(i - 1)
	if err != nil {
		return nil, &errs.InputError{Path: d.path, Err: err}
	}
	w, err := pg.Width()
	if err != nil {
		return nil, &errs.InputError{Path: d.path, Err: err}
	}
	h, err := pg.Height()
	if err != nil {
		return nil, &errs.InputError{Path: d.path, Err: err}
	}
	return &Page{doc: d, num: i, page: pg, width: w, height: h}, nil
}

type pageOutOfRangeErr struct {
	i, n int
}

func (e pageOutOfRangeErr) Error() string {
	return "page index out of range: " + strconv.Itoa(e.i) + " of " + strconv.Itoa(e.n)
}

func errPageOutOfRange(i, n int) error { return pageOutOfRangeErr{i, n} }
