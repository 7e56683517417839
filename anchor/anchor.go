// Package anchor implements spec.md §4.4: producing the baseline crop
// window for a chosen caption, in both the V1 (simple two-window) and V2
// (multi-scale scan) modes, plus the document-wide global direction vote.
package anchor

import (
	"sort"

	"github.com/tsawler/attachcore/layoutmodel"
	"github.com/tsawler/attachcore/model"
)

// Config carries every anchor-selection knob from spec.md §6's config
// table that this package reads. It is built once by the config package
// and threaded through explicitly, per spec.md §9's design note --
// anchor never reads process-wide state.
type Config struct {
	MarginX      float64
	ClipHeight   float64
	CaptionGap   float64
	ScanHeights  []float64
	ScanStep     float64
	DistLambda   float64 // carried from config but not read: V2 scoring uses a fixed lambda of 0.12
	MidGuard     float64
	Mode         string // "v1" | "v2"

	ForceAboveIDs      map[string]bool
	ForceBelowIDs      map[string]bool
	ForceTableAboveIDs map[string]bool
	ForceTableBelowIDs map[string]bool

	GlobalAnchor             string // "auto" | "off"
	GlobalAnchorMarginFigure float64
	GlobalAnchorMarginTable  float64
}

// PageContext is everything about one page the selector needs: its
// bounds and every caption on it (for the mid-line guard and
// previous/next caption edges), plus its text lines, drawings and images
// for scoring candidate windows.
type PageContext struct {
	Rect     model.Rect
	Lines    []model.TextLine
	Drawings []model.DrawingObject
	Images   []model.ImageRect
	Captions []model.Caption // every caption on this page, any kind

	// Layout is the optional paragraph/title-block guidance spec.md
	// §4.10 describes. Nil when the layout model was not built or
	// failed; every reader of it (see windowScoreV2) degrades
	// gracefully in that case.
	Layout *layoutmodel.Page
}

// sortedCaptions returns a copy of this page's captions sorted by Y0, used
// for the mid-line guard and the previous/next caption lookup.
func (pc PageContext) sortedCaptions() []model.Caption {
	out := append([]model.Caption(nil), pc.Captions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Rect().Y0 < out[j].Rect().Y0 })
	return out
}

// neighbours returns the bottom edge of the caption immediately above cap
// and the top edge of the caption immediately below cap on the same page,
// or the page bounds when there is none.
func (pc PageContext) neighbours(cap model.Caption) (prevBot, nextTop float64) {
	sorted := pc.sortedCaptions()
	prevBot = pc.Rect.Y0
	nextTop = pc.Rect.Y1
	capY0 := cap.Rect().Y0
	for i, c := range sorted {
		if c.Rect().Y0 == capY0 && c.Ident().Equal(cap.Ident()) && c.Kind() == cap.Kind() {
			if i > 0 {
				prevBot = sorted[i-1].Rect().Y1
			}
			if i < len(sorted)-1 {
				nextTop = sorted[i+1].Rect().Y0
			}
			break
		}
	}
	return prevBot, nextTop
}

// forcedSide reports the side spec.md §6's force_*_ids config mandates
// for cap, if any, per spec.md §8's testable property 7 (forced direction
// holds in both anchor modes).
func forcedSide(cfg Config, cap model.Caption) (model.Side, bool) {
	id := cap.Ident().String()
	if cap.Kind() == model.KindTable {
		if cfg.ForceTableAboveIDs[id] {
			return model.SideAbove, true
		}
		if cfg.ForceTableBelowIDs[id] {
			return model.SideBelow, true
		}
		return 0, false
	}
	if cfg.ForceAboveIDs[id] {
		return model.SideAbove, true
	}
	if cfg.ForceBelowIDs[id] {
		return model.SideBelow, true
	}
	return 0, false
}

// Select produces the baseline window for cap, dispatching to V1 or V2 per
// cfg.Mode, honouring forced direction and the global vote. If V2 scanning
// is degenerate (no window scores above zero) it falls back to V1, and if
// V1 also fails it returns the best-effort centered rect spec.md §4.4
// names as the final fallback.
func Select(cfg Config, cap model.Caption, pc PageContext, vote Vote) model.AnchorChoice {
	forced, isForced := forcedSide(cfg, cap)

	if cfg.Mode == "v1" {
		return SelectV1(cfg, cap, pc, forced, isForced)
	}

	choice, ok := SelectV2(cfg, cap, pc, forced, isForced, vote)
	if ok {
		return choice
	}
	choice = SelectV1(cfg, cap, pc, forced, isForced)
	if !choice.BaselineRect.IsEmpty() {
		return choice
	}
	return fallbackChoice(cap, cfg.ClipHeight, pc.Rect)
}

// fallbackChoice is spec.md §4.4's last resort: "a best-effort rect of
// cap.width × clip_h centered on the caption", clamped to the page, with
// stages_applied set to the single "baseline-empty" sentinel §8 names.
func fallbackChoice(cap model.Caption, clipH float64, page model.Rect) model.AnchorChoice {
	r := cap.Rect()
	cy := r.CenterY()
	rect := model.NewRect(r.X0, cy-clipH/2, r.X1, cy+clipH/2).ClampTo(page)
	return model.AnchorChoice{
		Caption:      cap,
		Side:         model.SideBelow,
		BaselineRect: rect,
		ForcedSide:   false,
		Degenerate:   true,
	}
}
