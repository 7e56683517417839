// Package refine implements spec.md §4.5-§4.8: the text-trim, object-
// alignment and whitespace-autocrop phases that narrow an anchor's
// baseline window down to a tight crop, and the acceptance gate that
// decides whether the result is kept, only phase A is kept, or the run
// falls back to the untouched baseline.
package refine

import (
	"github.com/tsawler/attachcore/layoutmodel"
	"github.com/tsawler/attachcore/model"
)

// Config carries every refinement knob from spec.md §6's config table.
// Like anchor.Config, it is built once by the config package and passed
// explicitly; no phase here reads process-wide state.
type Config struct {
	TextTrim bool
	// TrimMode selects A2's mid-band behaviour: "aggressive" removes the
	// whole mid band once its coverage clears the threshold; "conservative"
	// (the default) only removes the tightly-packed run within it. Not a
	// named config-table entry; DESIGN.md records the default.
	TrimMode string

	AdjacentTh          float64
	FarTextTh           float64
	FarSideMinDist      float64
	FarSideParaMinRatio float64
	TypicalLineHeight   float64

	ObjectPad                float64
	ObjectMinAreaRatioFigure float64
	ObjectMinAreaRatioTable  float64
	ObjectMergeGap           float64
	RefineNearEdgeOnly       bool

	Autocrop             bool
	AutocropPadPx        int
	AutocropWhiteTh      int
	AutocropShrinkLimit  float64
	AutocropMinHeightPx  int
	ProtectFarEdgePx     float64
	NearEdgePadPx        float64

	DPI int

	// Layout is the optional chapter-title mask spec.md §4.10 says A3
	// consults to veto pulling a section heading into the crop. Nil when
	// the layout model was not built; PhaseA then skips the veto.
	Layout *layoutmodel.Page
}

// nearFarEdges returns win's near edge (the one closest to the caption)
// and far edge, given the side it extends to.
func nearFarEdges(side model.Side, win model.Rect) (near, far float64) {
	if side == model.SideBelow {
		return win.Y0, win.Y1
	}
	return win.Y1, win.Y0
}

// withNearEdge returns win with its near edge moved to v, clamped so the
// rect never inverts.
func withNearEdge(side model.Side, win model.Rect, v float64) model.Rect {
	out := win
	if side == model.SideBelow {
		out.Y0 = v
		if out.Y0 > out.Y1 {
			out.Y0 = out.Y1
		}
	} else {
		out.Y1 = v
		if out.Y1 < out.Y0 {
			out.Y1 = out.Y0
		}
	}
	return out
}

// withFarEdge returns win with its far edge moved to v.
func withFarEdge(side model.Side, win model.Rect, v float64) model.Rect {
	out := win
	if side == model.SideBelow {
		out.Y1 = v
		if out.Y1 < out.Y0 {
			out.Y1 = out.Y0
		}
	} else {
		out.Y0 = v
		if out.Y0 > out.Y1 {
			out.Y0 = out.Y1
		}
	}
	return out
}

// nearDist returns a line's distance from win's near edge along the
// near->far axis, or a negative number if the line is not past the near
// edge at all.
func nearDist(side model.Side, win model.Rect, lineRect model.Rect) float64 {
	near, _ := nearFarEdges(side, win)
	if side == model.SideBelow {
		return lineRect.Y0 - near
	}
	return near - lineRect.Y1
}
