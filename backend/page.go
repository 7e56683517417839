package backend

import (
	"fmt"

	"github.com/tsawler/attachcore/core"
	"github.com/tsawler/attachcore/errs"
	"github.com/tsawler/attachcore/graphicsstate"
	"github.com/tsawler/attachcore/model"
	"github.com/tsawler/attachcore/pages"
	"github.com/tsawler/attachcore/text"
)

// Page is a read-only view of one page, scoped to the lifetime of one
// page-level iteration. It is re-entrant across pages but its cached
// slices are not safe for concurrent use against the same *Page.
type Page struct {
	doc    *Document
	num    int
	page   *pages.Page
	width  float64
	height float64

	fragmentsLoaded bool
	fragments       []text.TextFragment

	drawingsLoaded bool
	drawingObjs    []model.DrawingObject

	imagesLoaded bool
	imageRects   []model.ImageRect
}

// Number returns the 1-indexed page number.
func (p *Page) Number() int { return p.num }

// Rect returns the page's bounds in top-left-origin points.
func (p *Page) Rect() model.Rect {
	return model.NewRect(0, 0, p.width, p.height)
}

func (p *Page) contentBytes() ([]byte, error) {
	contents, err := p.page.Contents()
	if err != nil {
		return nil, err
	}
	var all []byte
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := stream.Decode()
		if err != nil {
			return nil, err
		}
		all = append(all, data...)
	}
	return all, nil
}

// textFragments lazily extracts and caches this page's text fragments in
// tabula's native (bottom-left-origin) coordinates.
func (p *Page) textFragments() ([]text.TextFragment, error) {
	if p.fragmentsLoaded {
		return p.fragments, nil
	}
	frags, err := p.doc.reader.ExtractTextFragments(p.page)
	if err != nil {
		return nil, fmt.Errorf("extract text fragments: %w", err)
	}
	p.fragments = frags
	p.fragmentsLoaded = true
	return p.fragments, nil
}

// ExportedTextFragments exposes this page's raw text fragments to callers
// outside backend that need ungrouped fragments, such as layoutmodel's
// layout.Analyzer wiring.
func (p *Page) ExportedTextFragments() ([]text.TextFragment, error) {
	return p.textFragments()
}

// TextLines groups this page's text fragments into [model.TextLine]s sorted
// top to bottom, converting to top-left-origin [model.Rect] space.
func (p *Page) TextLines() ([]model.TextLine, error) {
	frags, err := p.textFragments()
	if err != nil {
		return nil, err
	}
	return groupFragmentsIntoLines(frags, p.height), nil
}

// graphicsExtractor parses this page's content stream for vector paths and
// returns a fresh extractor on every call; Drawings caches the converted
// DrawingObjects, not the extractor.
func (p *Page) graphicsExtractor() (*graphicsstate.GraphicsExtractor, error) {
	data, err := p.contentBytes()
	if err != nil {
		return nil, fmt.Errorf("read content stream: %w", err)
	}
	ge := graphicsstate.NewGraphicsExtractor()
	if len(data) > 0 {
		if err := ge.ExtractFromBytes(data); err != nil {
			return nil, fmt.Errorf("extract graphics: %w", err)
		}
	}
	return ge, nil
}

// Drawings returns the page's line segments and rectangles, classified
// per spec.md §3 (column-aligned, horizontal, vertical). Raster images are
// not included; ImageRects returns those.
func (p *Page) Drawings() ([]model.DrawingObject, error) {
	if p.drawingsLoaded {
		return p.drawingObjs, nil
	}
	ge, err := p.graphicsExtractor()
	if err != nil {
		return nil, &errs.RenderError{Page: p.num, Clip: "drawings", Err: err}
	}
	var out []model.DrawingObject
	for _, ln := range ge.GetLines() {
		r := model.BBoxToRect(ln.BBox, p.height)
		out = append(out, model.DrawingObject{
			Rect:       r,
			Kind:       model.DrawingLineSegment,
			Horizontal: ln.IsHorizontal,
			Vertical:   ln.IsVertical,
		})
	}
	for _, rect := range ge.GetRectangles() {
		r := model.BBoxToRect(rect.BBox, p.height)
		out = append(out, model.DrawingObject{
			Rect:    r,
			Kind:    model.DrawingVectorPath,
			Filled:  rect.IsFilled,
			Vertical: rect.BBox.Height > rect.BBox.Width,
		})
	}
	markColumnAlignment(out)
	p.drawingObjs = out
	p.drawingsLoaded = true
	return out, nil
}

// ImageRects returns the page's raster images placed at their Do-operator
// position, decoded to RGBA pixel data.
func (p *Page) ImageRects() ([]model.ImageRect, error) {
	if p.imagesLoaded {
		return p.imageRects, nil
	}
	imgs, err := p.doc.reader.ExtractPageImages(p.page)
	if err != nil {
		return nil, &errs.RenderError{Page: p.num, Clip: "images", Err: err}
	}
	if len(imgs) == 0 {
		p.imagesLoaded = true
		return nil, nil
	}
	placements, err := p.imagePlacements()
	if err != nil {
		return nil, &errs.RenderError{Page: p.num, Clip: "images", Err: err}
	}
	var out []model.ImageRect
	for _, img := range imgs {
		rect, ok := placements[img.Name]
		if !ok {
			// No Do-operator placement found (e.g. image referenced by a
			// form XObject we don't descend into): skip it rather than
			// guess a rect, matching backend's "narrow, read-only view"
			// contract -- it must not invent geometry.
			continue
		}
		gi, err := img.Image()
		if err != nil {
			continue
		}
		out = append(out, model.ImageRect{
			Rect:       rect,
			Width:      img.Width,
			Height:     img.Height,
			ColorSpace: img.ColorSpace,
			Pix:        imageToRGBA(gi),
		})
	}
	p.imageRects = out
	p.imagesLoaded = true
	return out, nil
}
