// Package metrics holds the small geometric measurements that anchor
// scoring (spec.md §4.4), refinement (§4.5-§4.7), and the acceptance gate
// (§4.8) all share: ink density, object coverage, paragraph coverage, and
// connected-component grouping of drawing/image objects. Keeping these
// here (rather than duplicating them in both anchor and refine) is what
// lets the acceptance gate stay the pure function spec.md §9 asks for.
package metrics

import (
	"image"

	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/model"
)

// whiteThreshold is the default "is this pixel ink" cutoff used by
// [InkDensity]; Phase D's autocrop uses its own configurable threshold
// (spec.md §6's autocrop_white_th) over the same luma computation.
const whiteThreshold = 250

// InkDensity renders rect at a low preview DPI and returns the fraction of
// pixels darker than whiteThreshold, per spec.md's glossary definition.
// previewDPI is kept low (72); its caller is the acceptance-gate
// measurement in refine, and anchor scanning uses [InkProxy] instead.
func InkDensity(page *backend.Page, rect model.Rect) (float64, error) {
	const previewDPI = 72
	img, err := page.Pixmap(previewDPI, rect)
	if err != nil {
		return 0, err
	}
	return inkDensityOf(img), nil
}

// inkDensityOf computes ink density directly from an already-rendered
// pixmap, letting Phase D reuse one render across multiple measurements
// instead of re-rendering per candidate.
func inkDensityOf(img *image.RGBA) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	dark := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			luma := (299*int(r>>8) + 587*int(g>>8) + 114*int(bl>>8)) / 1000
			if luma < whiteThreshold {
				dark++
			}
		}
	}
	return float64(dark) / float64(total)
}

// InkDensityOf exposes inkDensityOf for callers (Phase D) that already
// hold a rendered pixmap.
func InkDensityOf(img *image.RGBA) float64 { return inkDensityOf(img) }

// ObjectCoverage returns the fraction of rect's area covered by drawings
// and images intersecting it. Overlapping objects are not de-duplicated
// into a union -- it sums per-object intersection ratios capped at 1.0,
// a conservative approximation that only matters when objects overlap,
// which is rare for the figure/table bboxes this runs against.
func ObjectCoverage(drawings []model.DrawingObject, images []model.ImageRect, rect model.Rect) float64 {
	if rect.IsEmpty() {
		return 0
	}
	area := rect.Area()
	var covered float64
	for _, d := range drawings {
		if d.Kind == model.DrawingLineSegment {
			continue
		}
		covered += d.Rect.Intersection(rect).Area()
	}
	for _, im := range images {
		covered += im.Rect.Intersection(rect).Area()
	}
	if area <= 0 {
		return 0
	}
	ratio := covered / area
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// InkProxy approximates ink density from geometry alone: object coverage
// plus the fraction of rect covered by any text span's own bbox (text
// glyphs are "ink" too, just sparser than their line bbox suggests, hence
// the 0.35 weight). Anchor scanning (spec.md §4.4) scores dozens of
// candidate windows per caption; rendering a real pixmap for each would
// be prohibitively expensive, and spec.md §9's design note already asks
// every phase before D to stay in coordinate space, not pixel space. This
// is the documented trade: anchor's "ink" term is this proxy, not a
// render; real pixmaps are rendered only by the acceptance-gate
// measurement ([InkDensity]) and by Phase D.
func InkProxy(drawings []model.DrawingObject, images []model.ImageRect, lines []model.TextLine, rect model.Rect) float64 {
	if rect.IsEmpty() {
		return 0
	}
	area := rect.Area()
	objCovered := ObjectCoverage(drawings, images, rect) * area
	var textCovered float64
	for _, ln := range lines {
		for _, sp := range ln.Spans {
			textCovered += sp.Rect.Intersection(rect).Area()
		}
	}
	ratio := (objCovered + 0.35*textCovered) / area
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// IsParagraphShaped classifies a text line as body text rather than a
// caption/heading, per spec.md §4.5's A1 criterion: width at least half
// the window's width, font size in [7,16] pt. §9's open question (should
// far-side trim ever look outside [7,16], e.g. pull-quotes) is resolved in
// DESIGN.md: no, the font window is fixed.
func IsParagraphShaped(line model.TextLine, windowWidth float64) bool {
	if line.Rect.Width() < 0.5*windowWidth {
		return false
	}
	for _, sp := range line.Spans {
		if sp.FontSize < 7 || sp.FontSize > 16 {
			return false
		}
	}
	return true
}

// ParagraphCoverage returns the fraction of rect's height occupied by
// paragraph-shaped lines intersecting it, per the glossary's definition.
func ParagraphCoverage(lines []model.TextLine, rect model.Rect) float64 {
	if rect.IsEmpty() {
		return 0
	}
	h := rect.Height()
	var covered float64
	for _, ln := range lines {
		inter := ln.Rect.Intersection(rect)
		if inter.IsEmpty() {
			continue
		}
		if !IsParagraphShaped(ln, rect.Width()) {
			continue
		}
		covered += inter.Height()
	}
	ratio := covered / h
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// Component is one connected group of drawing/image objects, merged by
// [ConnectedComponents].
type Component struct {
	Rect  model.Rect
	Count int
}

// ConnectedComponents merges drawings/images whose rects lie within
// mergeGap points of each other (by expanding each by mergeGap/2 and
// testing intersection, a standard union-find-over-rects approach) into
// connected components, per spec.md §4.6.
func ConnectedComponents(drawings []model.DrawingObject, images []model.ImageRect, mergeGap float64) []Component {
	var rects []model.Rect
	for _, d := range drawings {
		if d.Kind == model.DrawingLineSegment {
			continue
		}
		rects = append(rects, d.Rect)
	}
	for _, im := range images {
		rects = append(rects, im.Rect)
	}
	if len(rects) == 0 {
		return nil
	}
	n := len(rects)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	pad := mergeGap / 2
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rects[i].Pad(pad).Intersects(rects[j].Pad(pad)) {
				union(i, j)
			}
		}
	}
	groups := make(map[int]*Component)
	for i, r := range rects {
		root := find(i)
		c, ok := groups[root]
		if !ok {
			c = &Component{Rect: r, Count: 0}
			groups[root] = c
		} else {
			c.Rect = c.Rect.Union(r)
		}
		c.Count++
	}
	out := make([]Component, 0, len(groups))
	for _, c := range groups {
		out = append(out, *c)
	}
	return out
}
