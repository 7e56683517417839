// Package layoutmodel wraps tabula's layout.Analyzer to build the optional
// guidance inputs spec.md §4.10 names: paragraph/title blocks that
// downweight anchor windows overlapping them, and a chapter-title mask A3
// uses to veto pulling a section heading into a crop. It is never
// authoritative -- every caller degrades gracefully when a page's model
// is nil or absent, per §4.10's "never authoritative" note.
package layoutmodel

import (
	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/errs"
	"github.com/tsawler/attachcore/layout"
	"github.com/tsawler/attachcore/model"
	"github.com/tsawler/attachcore/text"
)

// Page is one page's layout guidance.
type Page struct {
	ParagraphBlocks []model.Rect
	TitleBlocks     []model.Rect
}

// OverlapsTitle reports whether rect overlaps any chapter-title block on
// the page, the veto A3's multi-line caption protection and far-side
// heading guard consult.
func (p *Page) OverlapsTitle(rect model.Rect) bool {
	if p == nil {
		return false
	}
	for _, t := range p.TitleBlocks {
		if t.Intersects(rect) {
			return true
		}
	}
	return false
}

// ParagraphOverlap returns the total area of rect covered by paragraph
// blocks, used by anchor V2 to downweight a candidate window that lands
// on running body text rather than a figure/table.
func (p *Page) ParagraphOverlap(rect model.Rect) float64 {
	if p == nil {
		return 0
	}
	var covered float64
	for _, b := range p.ParagraphBlocks {
		covered += b.Intersection(rect).Area()
	}
	return covered
}

// Build runs layout.Analyzer over page and classifies its elements into
// paragraph and title (heading) blocks. It returns
// *errs.LayoutModelUnavailable, never fatal, when the page's fragments or
// analysis cannot be produced; callers treat a nil *Page exactly like an
// unbuilt one.
func Build(doc *backend.Document, pageNum int) (*Page, error) {
	pg, err := doc.Page(pageNum)
	if err != nil {
		return nil, &errs.LayoutModelUnavailable{Err: err}
	}
	fragments, err := pageFragments(pg)
	if err != nil {
		return nil, &errs.LayoutModelUnavailable{Err: err}
	}
	rect := pg.Rect()
	result := layout.NewAnalyzer().Analyze(fragments, rect.Width(), rect.Height())
	if result == nil {
		return nil, &errs.LayoutModelUnavailable{Err: nil}
	}

	out := &Page{}
	for _, el := range result.GetElements() {
		r := model.BBoxToRect(el.BoundingBox(), rect.Height())
		switch el.Type() {
		case model.ElementTypeParagraph:
			out.ParagraphBlocks = append(out.ParagraphBlocks, r)
		case model.ElementTypeHeading:
			out.TitleBlocks = append(out.TitleBlocks, r)
		}
	}
	return out, nil
}

// pageFragments returns the page's raw text fragments via
// backend.Page.ExportedTextFragments for the layout analyzer, which (unlike anchor/refine) needs fragments
// rather than already-grouped lines.
func pageFragments(pg *backend.Page) ([]text.TextFragment, error) {
	return pg.ExportedTextFragments()
}
