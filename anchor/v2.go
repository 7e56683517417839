package anchor

import (
	"sort"

	"github.com/tsawler/attachcore/graphicsstate"
	"github.com/tsawler/attachcore/layoutmodel"
	"github.com/tsawler/attachcore/metrics"
	"github.com/tsawler/attachcore/model"
	"github.com/tsawler/attachcore/tables"
)

// SelectV2 implements spec.md §4.4's multi-scale scan. It tries every
// height named in scan_heights, plus the scan_step-spaced heights between
// them (the spec's "for each h... and each y stepping by scan_step" reads
// as height and fine offset varying together; DESIGN.md records this as
// the resolved reading), on whichever side(s) are in play, respects the
// mid-line guard and page bounds, and snaps the winning window's edges to
// the nearest horizontal rule within 14pt. ok is false when every
// candidate scores zero or less (a degenerate page), signalling the
// caller to fall back to V1.
func SelectV2(cfg Config, cap model.Caption, pc PageContext, forced model.Side, isForced bool, vote Vote) (model.AnchorChoice, bool) {
	sides := []model.Side{model.SideAbove, model.SideBelow}
	switch {
	case isForced:
		sides = []model.Side{forced}
	case vote.Decided:
		sides = []model.Side{vote.Side}
	}

	heights := scanHeightsFor(cfg)
	prevBot, nextTop := pc.neighbours(cap)

	var best model.AnchorChoice
	bestScore := negInf
	var trace []model.ScanTrace

	for _, side := range sides {
		for _, h := range heights {
			win, ok := candidateWindow(cfg, cap, pc, side, h, prevBot, nextTop)
			if !ok {
				continue
			}
			sc := windowScoreV2(cap, pc, win)
			trace = append(trace, model.ScanTrace{Rect: win, Score: sc})
			if sc > bestScore {
				bestScore = sc
				best = model.AnchorChoice{Caption: cap, Side: side, BaselineRect: win}
			}
		}
	}

	if bestScore <= 0 {
		return model.AnchorChoice{}, false
	}

	best.BaselineRect = snapToHorizontalRule(best.BaselineRect, best.Side, pc.Drawings)
	best.ScanTrace = trace
	best.ForcedSide = isForced
	best.GlobalVoted = vote.Decided && !isForced
	return best, true
}

const negInf = -1e18

// scanHeightsFor returns cfg.ScanHeights unioned with the scan_step-spaced
// heights spanning its min to max, deduplicated and sorted.
func scanHeightsFor(cfg Config) []float64 {
	if len(cfg.ScanHeights) == 0 {
		return []float64{cfg.ClipHeight}
	}
	lo, hi := cfg.ScanHeights[0], cfg.ScanHeights[0]
	for _, h := range cfg.ScanHeights {
		if h < lo {
			lo = h
		}
		if h > hi {
			hi = h
		}
	}
	set := make(map[float64]bool)
	for _, h := range cfg.ScanHeights {
		set[h] = true
	}
	step := cfg.ScanStep
	if step > 0 {
		for h := lo; h <= hi; h += step {
			set[h] = true
		}
	}
	out := make([]float64, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Float64s(out)
	return out
}

// candidateWindow builds one candidate window flush to cap's near edge on
// side, height h, respecting the mid-line guard (never crossing the
// midpoint to the neighbouring caption minus caption_mid_guard) and the
// page bounds.
func candidateWindow(cfg Config, cap model.Caption, pc PageContext, side model.Side, h float64, prevBot, nextTop float64) (model.Rect, bool) {
	r := cap.Rect()
	x0, x1 := r.X0+cfg.MarginX, r.X1-cfg.MarginX
	if x1 <= x0 {
		return model.Rect{}, false
	}

	var y0, y1 float64
	if side == model.SideBelow {
		y0 = r.Y1 + cfg.CaptionGap
		y1 = y0 + h
		midGuard := (r.Y1 + nextTop) / 2
		if nextTop < pc.Rect.Y1 {
			y1 = minF(y1, midGuard-cfg.MidGuard)
		}
		y1 = minF(y1, pc.Rect.Y1)
	} else {
		y1 = r.Y0 - cfg.CaptionGap
		y0 = y1 - h
		midGuard := (r.Y0 + prevBot) / 2
		if prevBot > pc.Rect.Y0 {
			y0 = maxF(y0, midGuard+cfg.MidGuard)
		}
		y0 = maxF(y0, pc.Rect.Y0)
	}

	win := model.NewRect(x0, y0, x1, y1).ClampTo(pc.Rect)
	if win.IsEmpty() || win.Height() < 1 {
		return model.Rect{}, false
	}
	return win, true
}

// windowScoreV2 scores win per spec.md §4.4's figure/table formulas.
func windowScoreV2(cap model.Caption, pc PageContext, win model.Rect) float64 {
	ink := metrics.InkProxy(pc.Drawings, pc.Images, pc.Lines, win)
	objCov := metrics.ObjectCoverage(pc.Drawings, pc.Images, win)
	paraCov := metrics.ParagraphCoverage(pc.Lines, win)
	pageH := pc.Rect.Height()
	if pageH <= 0 {
		pageH = 1
	}
	dist := win.Height() / pageH
	const lambda = 0.12
	layoutPenalty := layoutOverlapRatio(pc.Layout, win)

	if cap.Kind() == model.KindFigure {
		components := metrics.ConnectedComponents(pc.Drawings, pc.Images, 6)
		compTerm := minF(1, float64(countIntersecting(components, win))/3)
		return 0.55*ink + 0.25*objCov - 0.20*paraCov + 0.08*compTerm - lambda*dist - 0.10*layoutPenalty
	}

	colAlign := columnAlignPeak(pc.Drawings, win)
	hLineDensity := horizontalLineDensity(pc.Drawings, win)
	gridConf := tableGridConfidence(pc, win)
	return 0.35*ink + 0.20*colAlign + 0.15*hLineDensity + 0.15*gridConf + 0.15*objCov - 0.25*paraCov - lambda*dist - 0.10*layoutPenalty
}

// tableGridConfidence runs the teacher's grid detector over win's
// horizontal/vertical rule segments and returns the confidence of the
// best hypothesis whose bounding box overlaps win, zero when no grid is
// found. This is the real table-structure signal columnAlignPeak and
// horizontalLineDensity only approximate from raw drawing geometry.
func tableGridConfidence(pc PageContext, win model.Rect) float64 {
	var horiz, vert []graphicsstate.ExtractedLine
	for _, d := range pc.Drawings {
		if d.Kind != model.DrawingLineSegment || !d.Rect.Intersects(win) {
			continue
		}
		bbox := model.RectToBBox(d.Rect, pc.Rect.Height())
		switch {
		case d.Horizontal:
			midY := bbox.Y + bbox.Height/2
			horiz = append(horiz, graphicsstate.ExtractedLine{
				Start:        model.Point{X: bbox.X, Y: midY},
				End:          model.Point{X: bbox.X + bbox.Width, Y: midY},
				IsHorizontal: true,
				BBox:         bbox,
			})
		case d.Vertical:
			midX := bbox.X + bbox.Width/2
			vert = append(vert, graphicsstate.ExtractedLine{
				Start:      model.Point{X: midX, Y: bbox.Y},
				End:        model.Point{X: midX, Y: bbox.Y + bbox.Height},
				IsVertical: true,
				BBox:       bbox,
			})
		}
	}
	hyps := tables.NewGridDetector().DetectFromLines(horiz, vert)
	best := 0.0
	for _, h := range hyps {
		gridRect := model.BBoxToRect(h.BBox, pc.Rect.Height())
		if !gridRect.Intersects(win) {
			continue
		}
		if h.Confidence > best {
			best = h.Confidence
		}
	}
	return best
}

// layoutOverlapRatio returns the fraction of win's area covered by
// paragraph/title blocks from the optional layout model, zero when layout
// is nil -- spec.md §4.10's "downweight windows overlapping them".
func layoutOverlapRatio(layout *layoutmodel.Page, win model.Rect) float64 {
	if layout == nil {
		return 0
	}
	area := win.Area()
	if area <= 0 {
		return 0
	}
	covered := layout.ParagraphOverlap(win)
	if layout.OverlapsTitle(win) {
		covered += area * 0.5
	}
	r := covered / area
	if r > 1 {
		r = 1
	}
	return r
}

func countIntersecting(components []metrics.Component, win model.Rect) int {
	n := 0
	for _, c := range components {
		if c.Rect.Intersects(win) {
			n++
		}
	}
	return n
}

// columnAlignPeak scores the fraction of column-aligned vector paths
// intersecting win, resolving spec.md §9's open question ("should a
// column-aligned peak count raster lines or only vector paths") in favour
// of vector paths only -- DESIGN.md records this decision.
func columnAlignPeak(drawings []model.DrawingObject, win model.Rect) float64 {
	var aligned, total int
	for _, d := range drawings {
		if d.Kind != model.DrawingVectorPath || !d.Vertical {
			continue
		}
		if !d.Rect.Intersects(win) {
			continue
		}
		total++
		if d.ColumnAligned {
			aligned++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(aligned) / float64(total)
}

// horizontalLineDensity counts horizontal line segments per 100pt of win's
// height, capped at 1.
func horizontalLineDensity(drawings []model.DrawingObject, win model.Rect) float64 {
	n := 0
	for _, d := range drawings {
		if d.Kind == model.DrawingLineSegment && d.Horizontal && d.Rect.Intersects(win) {
			n++
		}
	}
	h := win.Height()
	if h <= 0 {
		return 0
	}
	density := float64(n) / (h / 100)
	if density > 1 {
		density = 1
	}
	return density
}

// snapToHorizontalRule moves win's top and bottom edges, each on its own,
// to the nearest horizontal line segment within 14pt, per spec.md §4.4,
// and keeps win unchanged if snapping would invert it.
func snapToHorizontalRule(win model.Rect, side model.Side, drawings []model.DrawingObject) model.Rect {
	const tol = 14.0
	snapEdge := func(y float64) float64 {
		best, bestDist := y, tol
		for _, d := range drawings {
			if d.Kind != model.DrawingLineSegment || !d.Horizontal {
				continue
			}
			if d.Rect.X1 < win.X0 || d.Rect.X0 > win.X1 {
				continue
			}
			ly := d.Rect.CenterY()
			dist := absF(ly - y)
			if dist < bestDist {
				bestDist = dist
				best = ly
			}
		}
		return best
	}
	out := win
	out.Y0 = snapEdge(win.Y0)
	out.Y1 = snapEdge(win.Y1)
	if out.Y1 <= out.Y0 {
		return win
	}
	return out
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
