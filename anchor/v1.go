package anchor

import (
	"github.com/tsawler/attachcore/metrics"
	"github.com/tsawler/attachcore/model"
)

// SelectV1 implements spec.md §4.4's simple two-window selector: build
// both the above and below windows, score each with 0.6*ink+0.4*coverage,
// and pick the higher one (requiring below to exceed above by at least 2%
// to avoid ties), unless direction is forced.
func SelectV1(cfg Config, cap model.Caption, pc PageContext, forced model.Side, isForced bool) model.AnchorChoice {
	r := cap.Rect()
	prevBot, nextTop := pc.neighbours(cap)

	above := model.NewRect(
		r.X0+cfg.MarginX,
		maxF(pc.Rect.Y0, prevBot+8, r.Y0-cfg.ClipHeight)-cfg.CaptionGap,
		r.X1-cfg.MarginX,
		r.Y0-cfg.CaptionGap,
	).ClampTo(pc.Rect)

	below := model.NewRect(
		r.X0+cfg.MarginX,
		r.Y1+cfg.CaptionGap,
		r.X1-cfg.MarginX,
		minF(pc.Rect.Y1, nextTop-8, r.Y1+cfg.CaptionGap+cfg.ClipHeight),
	).ClampTo(pc.Rect)

	if isForced {
		if forced == model.SideAbove {
			return model.AnchorChoice{Caption: cap, Side: model.SideAbove, BaselineRect: above, ForcedSide: true}
		}
		return model.AnchorChoice{Caption: cap, Side: model.SideBelow, BaselineRect: below, ForcedSide: true}
	}

	aboveScore := windowScoreV1(pc, above)
	belowScore := windowScoreV1(pc, below)

	if belowScore >= aboveScore*1.02 {
		return model.AnchorChoice{Caption: cap, Side: model.SideBelow, BaselineRect: below}
	}
	return model.AnchorChoice{Caption: cap, Side: model.SideAbove, BaselineRect: above}
}

func windowScoreV1(pc PageContext, r model.Rect) float64 {
	if r.IsEmpty() {
		return 0
	}
	ink := metrics.InkProxy(pc.Drawings, pc.Images, pc.Lines, r)
	cov := metrics.ObjectCoverage(pc.Drawings, pc.Images, r)
	return 0.6*ink + 0.4*cov
}

func maxF(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minF(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
