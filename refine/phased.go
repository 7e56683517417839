package refine

import (
	"image"

	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/metrics"
	"github.com/tsawler/attachcore/model"
)

// PhaseD implements spec.md §4.7: render the current window at the output
// DPI, mask out paragraph-shaped text on the near 60% of the window (for
// figures only -- tables keep their text, since a table's cell labels are
// the content), find the tight non-white bbox, and pad it. The far-edge
// guard and shrink-limit protections run afterward; on rejection the near
// edge is grown back toward its pre-D position, never crossing the
// caption's own rect.
func PhaseD(cfg Config, page *backend.Page, kind model.AttachmentKind, side model.Side, cap model.Caption, preD model.Rect, lines []model.TextLine) (model.Rect, model.PhaseTrace, error) {
	before := preD
	if !cfg.Autocrop || preD.IsEmpty() {
		return preD, model.PhaseTrace{Phase: "D", Before: before, After: preD, Applied: false, RejectedWhy: "autocrop disabled"}, nil
	}

	img, err := page.Pixmap(cfg.DPI, preD)
	if err != nil {
		return preD, model.PhaseTrace{Phase: "D", Before: before, After: preD, Applied: false, RejectedWhy: "render failed"}, err
	}

	scale := float64(cfg.DPI) / 72.0
	var mask []model.Rect
	if kind == model.KindFigure {
		near60 := nearPortionRect(side, preD, 0.60)
		for _, ln := range lines {
			if !ln.Rect.Intersects(near60) {
				continue
			}
			if !metrics.IsParagraphShaped(ln, preD.Width()) {
				continue
			}
			mask = append(mask, ln.Rect)
		}
	}

	bboxPx, found := tightNonWhiteBBox(img, preD, scale, mask, cfg.AutocropWhiteTh)
	if !found {
		return preD, model.PhaseTrace{Phase: "D", Before: before, After: preD, Applied: false, RejectedWhy: "no ink found"}, nil
	}

	padPt := float64(cfg.AutocropPadPx) / scale
	cropped := model.NewRect(bboxPx.X0-padPt, bboxPx.Y0-padPt, bboxPx.X1+padPt, bboxPx.Y1+padPt).ClampTo(preD)

	// Far-edge guard: never shrink the far edge by more than
	// protect_far_edge_px, converted to points.
	guardPt := cfg.ProtectFarEdgePx / scale
	_, farBefore := nearFarEdges(side, preD)
	cropped = clampFarEdgeGuard(side, cropped, farBefore, guardPt)

	preArea := preD.Area()
	minHeightPt := float64(cfg.AutocropMinHeightPx) / scale
	shrinkOK := cropped.Area() >= (1-cfg.AutocropShrinkLimit)*preArea
	heightOK := cropped.Height() >= minHeightPt

	if !shrinkOK || !heightOK {
		padBackPt := cfg.NearEdgePadPx / scale
		grown := growNearEdgeBack(side, cropped, preD, padBackPt, cap.Rect())
		return grown, model.PhaseTrace{Phase: "D", Before: before, After: grown, Applied: false, RejectedWhy: "shrink limit"}, nil
	}

	return cropped, model.PhaseTrace{Phase: "D", Before: before, After: cropped, Applied: true}, nil
}

func nearPortionRect(side model.Side, win model.Rect, frac float64) model.Rect {
	near, _ := nearFarEdges(side, win)
	h := win.Height() * frac
	if side == model.SideBelow {
		return model.NewRect(win.X0, near, win.X1, near+h)
	}
	return model.NewRect(win.X0, near-h, win.X1, near)
}

// tightNonWhiteBBox scans img (rendered for clipRect at scale) for pixels
// darker than whiteTh, skipping any pixel that falls within a masked
// rect, and returns the tight bbox in point space.
func tightNonWhiteBBox(img *image.RGBA, clipRect model.Rect, scale float64, mask []model.Rect, whiteTh int) (model.Rect, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		ptY := clipRect.Y0 + float64(y)/scale
		for x := b.Min.X; x < b.Max.X; x++ {
			ptX := clipRect.X0 + float64(x)/scale
			if pointIn(mask, ptX, ptY) {
				continue
			}
			r, g, bl, _ := img.At(x, y).RGBA()
			luma := (299*int(r>>8) + 587*int(g>>8) + 114*int(bl>>8)) / 1000
			if luma >= whiteTh {
				continue
			}
			found = true
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if !found {
		return model.Rect{}, false
	}
	return model.Rect{
		X0: clipRect.X0 + float64(minX)/scale,
		Y0: clipRect.Y0 + float64(minY)/scale,
		X1: clipRect.X0 + float64(maxX+1)/scale,
		Y1: clipRect.Y0 + float64(maxY+1)/scale,
	}, true
}

func pointIn(rects []model.Rect, x, y float64) bool {
	for _, r := range rects {
		if x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1 {
			return true
		}
	}
	return false
}

func clampFarEdgeGuard(side model.Side, cropped model.Rect, farBefore, guardPt float64) model.Rect {
	if side == model.SideBelow {
		limit := farBefore - guardPt
		if cropped.Y1 < limit {
			cropped.Y1 = limit
		}
	} else {
		limit := farBefore + guardPt
		if cropped.Y0 > limit {
			cropped.Y0 = limit
		}
	}
	return cropped
}

func growNearEdgeBack(side model.Side, cropped, preD model.Rect, padPt float64, capRect model.Rect) model.Rect {
	out := cropped
	if side == model.SideBelow {
		newNear := maxF(cropped.Y0-padPt, preD.Y0)
		newNear = maxF(newNear, capRect.Y1)
		out.Y0 = newNear
	} else {
		newNear := minF(cropped.Y1+padPt, preD.Y1)
		newNear = minF(newNear, capRect.Y0)
		out.Y1 = newNear
	}
	return out
}
