package refine

import (
	"github.com/tsawler/attachcore/graphicsstate"
	"github.com/tsawler/attachcore/metrics"
	"github.com/tsawler/attachcore/model"
	"github.com/tsawler/attachcore/tables"
)

// PhaseB implements spec.md §4.6's object alignment: collect drawings and
// images above object_min_area_ratio intersecting the A-window, merge them
// into connected components, keep the component nearest the caption
// (unioning any that stack along the cross-axis so sub-figures survive),
// pad it, and move the window's near edge to hug it. The far edge is only
// touched to recover a flush-cropped object by expanding outward. For
// tables, a detected rule grid that overlaps the window is unioned in too,
// since a borderless-fill table can have its structure carried entirely by
// rules rather than by any fillable drawing or image object.
func PhaseB(cfg Config, kind model.AttachmentKind, side model.Side, win model.Rect, drawings []model.DrawingObject, images []model.ImageRect, pageHeight float64) (model.Rect, model.PhaseTrace) {
	before := win
	minRatio := cfg.ObjectMinAreaRatioFigure
	if kind == model.KindTable {
		minRatio = cfg.ObjectMinAreaRatioTable
	}
	winArea := win.Area()
	if winArea <= 0 {
		return win, model.PhaseTrace{Phase: "B", Before: before, After: win, Applied: false, RejectedWhy: "empty window"}
	}

	var relevantDrawings []model.DrawingObject
	for _, d := range drawings {
		if d.Kind == model.DrawingLineSegment {
			continue
		}
		inter := d.Rect.Intersection(win)
		if inter.IsEmpty() {
			continue
		}
		if d.Rect.Area()/winArea < minRatio {
			continue
		}
		relevantDrawings = append(relevantDrawings, d)
	}
	var relevantImages []model.ImageRect
	for _, im := range images {
		inter := im.Rect.Intersection(win)
		if inter.IsEmpty() {
			continue
		}
		if im.Rect.Area()/winArea < minRatio {
			continue
		}
		relevantImages = append(relevantImages, im)
	}
	var gridRect model.Rect
	hasGrid := false
	if kind == model.KindTable {
		gridRect, hasGrid = ruleGridRect(drawings, win, pageHeight)
	}

	if len(relevantDrawings) == 0 && len(relevantImages) == 0 && !hasGrid {
		return win, model.PhaseTrace{Phase: "B", Before: before, After: win, Applied: false, RejectedWhy: "no qualifying objects"}
	}

	components := metrics.ConnectedComponents(relevantDrawings, relevantImages, cfg.ObjectMergeGap)
	if len(components) == 0 && !hasGrid {
		return win, model.PhaseTrace{Phase: "B", Before: before, After: win, Applied: false, RejectedWhy: "no components"}
	}

	near, far := nearFarEdges(side, win)

	var union model.Rect
	if len(components) > 0 {
		nearest := components[0]
		nearestDist := componentNearDist(side, near, nearest.Rect)
		stacked := []model.Component{nearest}
		for _, c := range components[1:] {
			d := componentNearDist(side, near, c.Rect)
			if d < nearestDist {
				nearest, nearestDist = c, d
				stacked = []model.Component{c}
			} else if overlapsCrossAxis(nearest.Rect, c.Rect) {
				stacked = append(stacked, c)
			}
		}
		union = stacked[0].Rect
		for _, c := range stacked[1:] {
			union = union.Union(c.Rect)
		}
	} else {
		union = gridRect
	}
	if hasGrid {
		union = union.Union(gridRect)
	}
	union = union.Pad(cfg.ObjectPad)

	newWin := win
	if cfg.RefineNearEdgeOnly {
		newNear := nearEdgeOf(side, union)
		newWin = withNearEdge(side, win, newNear)
	} else {
		newWin = union.ClampTo(win)
	}

	// Far-edge expansion: if an object sits flush (within 2pt) of the far
	// edge, the crop likely clipped it; grow outward in 60pt steps, up to
	// 200pt, while an object keeps touching the new edge.
	const flushTol, step, maxExpand = 2.0, 60.0, 200.0
	if objectFlushAt(side, far, relevantDrawings, relevantImages, flushTol) {
		expanded := 0.0
		cur := newWin
		for expanded < maxExpand {
			candidate := expandFar(side, cur, step)
			if !objectNearFarEdge(side, candidateFarEdge(side, candidate), relevantDrawings, relevantImages, step+flushTol) {
				break
			}
			cur = candidate
			expanded += step
		}
		newWin = cur
	}

	if newWin == before {
		return win, model.PhaseTrace{Phase: "B", Before: before, After: win, Applied: false, RejectedWhy: "no movement"}
	}
	return newWin, model.PhaseTrace{Phase: "B", Before: before, After: newWin, Applied: true}
}

// ruleGridRect runs the teacher's grid detector over win's horizontal and
// vertical rule segments and returns the bounding box of the highest
// confidence hypothesis overlapping win, converted back to win's top-left
// coordinate space.
func ruleGridRect(drawings []model.DrawingObject, win model.Rect, pageHeight float64) (model.Rect, bool) {
	var horiz, vert []graphicsstate.ExtractedLine
	for _, d := range drawings {
		if d.Kind != model.DrawingLineSegment || !d.Rect.Intersects(win) {
			continue
		}
		bbox := model.RectToBBox(d.Rect, pageHeight)
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
	var best *tables.GridHypothesis
	for _, h := range hyps {
		r := model.BBoxToRect(h.BBox, pageHeight)
		if !r.Intersects(win) {
			continue
		}
		if best == nil || h.Confidence > best.Confidence {
			best = h
		}
	}
	if best == nil {
		return model.Rect{}, false
	}
	return model.BBoxToRect(best.BBox, pageHeight), true
}

func componentNearDist(side model.Side, near float64, r model.Rect) float64 {
	if side == model.SideBelow {
		return absF(r.Y0 - near)
	}
	return absF(near - r.Y1)
}

func overlapsCrossAxis(a, b model.Rect) bool {
	return a.X0 < b.X1 && b.X0 < a.X1
}

func nearEdgeOf(side model.Side, r model.Rect) float64 {
	if side == model.SideBelow {
		return r.Y0
	}
	return r.Y1
}

func candidateFarEdge(side model.Side, r model.Rect) float64 {
	if side == model.SideBelow {
		return r.Y1
	}
	return r.Y0
}

func expandFar(side model.Side, r model.Rect, by float64) model.Rect {
	if side == model.SideBelow {
		return withFarEdge(side, r, r.Y1+by)
	}
	return withFarEdge(side, r, r.Y0-by)
}

func objectFlushAt(side model.Side, edge float64, drawings []model.DrawingObject, images []model.ImageRect, tol float64) bool {
	for _, d := range drawings {
		if objectTouches(side, edge, d.Rect, tol) {
			return true
		}
	}
	for _, im := range images {
		if objectTouches(side, edge, im.Rect, tol) {
			return true
		}
	}
	return false
}

func objectNearFarEdge(side model.Side, edge float64, drawings []model.DrawingObject, images []model.ImageRect, tol float64) bool {
	return objectFlushAt(side, edge, drawings, images, tol)
}

func objectTouches(side model.Side, edge float64, r model.Rect, tol float64) bool {
	if side == model.SideBelow {
		return absF(r.Y1-edge) <= tol
	}
	return absF(r.Y0-edge) <= tol
}
