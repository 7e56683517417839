package refine

import (
	"strings"

	"github.com/tsawler/attachcore/metrics"
	"github.com/tsawler/attachcore/model"
)

// PhaseA implements spec.md §4.5's text trim: A1 near-adjacent, A2
// near-distant, A3 far-side, and the exact-two-line heuristic, applied in
// that order. It returns the trimmed rect and one trace entry per
// sub-phase that fired (sub-phases that found nothing to do are omitted,
// matching the teacher's habit of only recording applied steps).
func PhaseA(cfg Config, cap model.Caption, side model.Side, baseline model.Rect, lines []model.TextLine) (model.Rect, []model.PhaseTrace) {
	if !cfg.TextTrim {
		return baseline, nil
	}

	win := baseline
	baseHeight := baseline.Height()
	removedTotal := 0.0
	var trace []model.PhaseTrace

	capText := strings.ToLower(strings.TrimSpace(cap.Text()))
	isCaptionEcho := func(lineText string) bool {
		t := strings.ToLower(strings.TrimSpace(lineText))
		if t == "" || capText == "" {
			return false
		}
		return strings.HasPrefix(capText, t) || strings.HasPrefix(t, capText)
	}

	linesIn := func(r model.Rect) []model.TextLine {
		var out []model.TextLine
		for _, ln := range lines {
			if ln.Rect.Intersects(r) {
				out = append(out, ln)
			}
		}
		return out
	}

	// A1: near-adjacent. Remove paragraph-shaped lines within adjacent_th
	// of the near edge, capped at 25% of baseline height.
	if win.Height() > 0 {
		before := win
		cap25 := 0.25 * baseHeight
		adj := nearAdjacentBand(side, win, cfg.AdjacentTh)
		trimmed := win
		for _, ln := range linesIn(adj) {
			if isCaptionEcho(ln.Text()) {
				continue
			}
			if !metrics.IsParagraphShaped(ln, win.Width()) {
				continue
			}
			if removedTotal+ln.Rect.Height() > cap25 {
				continue
			}
			moved := pushNearPast(side, trimmed, ln.Rect)
			removedTotal += trimmed.Height() - moved.Height()
			trimmed = moved
		}
		if trimmed != before {
			win = trimmed
			trace = append(trace, model.PhaseTrace{Phase: "A1", Before: before, After: win, Applied: true})
		}
	}

	// A2: near-distant (mid range). Aggregate paragraph coverage over
	// (adjacent_th, far_text_th]; trim when it clears 0.30.
	if win.Height() > 0 {
		before := win
		mid := midBand(side, win, cfg.AdjacentTh, cfg.FarTextTh)
		if !mid.IsEmpty() {
			cov := metrics.ParagraphCoverage(lines, mid)
			if cov >= 0.30 {
				cap50 := 0.50*baseHeight - removedTotal
				var trimmed model.Rect
				if cfg.TrimMode == "aggressive" {
					trimmed = trimWholeBand(side, win, mid, cap50)
				} else {
					trimmed = trimTightRun(side, win, mid, linesIn(mid), cap50)
				}
				removedTotal += win.Height() - trimmed.Height()
				win = trimmed
			}
		}
		if win != before {
			trace = append(trace, model.PhaseTrace{Phase: "A2", Before: before, After: win, Applied: true})
		}
	}

	// A3: far side. Remove paragraphs at distance > far_side_min_dist on
	// the far half, when coverage there clears 0.20; otherwise fall back
	// to stripping bullets/long lines.
	if win.Height() > 0 {
		before := win
		farHalf := farHalfRect(side, win)
		farBand := beyondDistance(side, win, cfg.FarSideMinDist)
		region := intersectRect(farHalf, farBand)
		if !region.IsEmpty() {
			cov := metrics.ParagraphCoverage(lines, region)
			cap50 := 0.50*baseHeight - removedTotal
			if cov >= cfg.FarSideParaMinRatio {
				trimmed := trimWholeBandFar(side, win, region, cap50)
				removedTotal += win.Height() - trimmed.Height()
				win = trimmed
			} else {
				trimmed := stripFarHeuristic(side, win, region, linesIn(region), cap50)
				removedTotal += win.Height() - trimmed.Height()
				win = trimmed
			}
		}
		if win != before {
			trace = append(trace, model.PhaseTrace{Phase: "A3", Before: before, After: win, Applied: true})
		}
	}

	// Heading veto: if the layout model flags a chapter-title block
	// still inside win's far side, push the far edge past it so no
	// section heading ends up inside the final crop.
	if cfg.Layout != nil && win.Height() > 0 {
		before := win
		far := farHalfRect(side, win)
		if cfg.Layout.OverlapsTitle(far) {
			if side == model.SideBelow {
				win = withFarEdge(side, win, far.Y0)
			} else {
				win = withFarEdge(side, win, far.Y1)
			}
		}
		if win != before {
			trace = append(trace, model.PhaseTrace{Phase: "A3-heading-veto", Before: before, After: win, Applied: true})
		}
	}

	// Exact-two-line heuristic: a band up to 3.5*L from the near edge
	// holding exactly two aligned lines whose combined height matches 2*L
	// within 35% is trimmed as a unit (the "Abstract tail + blank" guard).
	if cfg.TypicalLineHeight > 0 && win.Height() > 0 {
		before := win
		L := cfg.TypicalLineHeight
		band := nearAdjacentBand(side, win, 3.5*L)
		inBand := linesIn(band)
		if len(inBand) == 2 {
			combined := inBand[0].Rect.Height() + inBand[1].Rect.Height()
			target := 2 * L
			if target > 0 && absF(combined-target) <= 0.35*target {
				skip := false
				for _, ln := range inBand {
					if isCaptionEcho(ln.Text()) {
						skip = true
					}
				}
				if !skip {
					far := unionRects(inBand[0].Rect, inBand[1].Rect)
					moved := pushNearPast(side, win, far)
					if win.Height()-moved.Height() <= 0.50*baseHeight-removedTotal {
						win = moved
					}
				}
			}
		}
		if win != before {
			trace = append(trace, model.PhaseTrace{Phase: "A-two-line", Before: before, After: win, Applied: true})
		}
	}

	return win, trace
}

func nearAdjacentBand(side model.Side, win model.Rect, depth float64) model.Rect {
	near, _ := nearFarEdges(side, win)
	if side == model.SideBelow {
		return model.NewRect(win.X0, near, win.X1, minF(near+depth, win.Y1))
	}
	return model.NewRect(win.X0, maxF(near-depth, win.Y0), win.X1, near)
}

func midBand(side model.Side, win model.Rect, from, to float64) model.Rect {
	near, _ := nearFarEdges(side, win)
	if side == model.SideBelow {
		y0 := minF(near+from, win.Y1)
		y1 := minF(near+to, win.Y1)
		return model.NewRect(win.X0, y0, win.X1, y1)
	}
	y1 := maxF(near-from, win.Y0)
	y0 := maxF(near-to, win.Y0)
	return model.NewRect(win.X0, y0, win.X1, y1)
}

func farHalfRect(side model.Side, win model.Rect) model.Rect {
	mid := win.Y0 + win.Height()/2
	if side == model.SideBelow {
		return model.NewRect(win.X0, mid, win.X1, win.Y1)
	}
	return model.NewRect(win.X0, win.Y0, win.X1, mid)
}

func beyondDistance(side model.Side, win model.Rect, dist float64) model.Rect {
	near, _ := nearFarEdges(side, win)
	if side == model.SideBelow {
		return model.NewRect(win.X0, near+dist, win.X1, win.Y1)
	}
	return model.NewRect(win.X0, win.Y0, win.X1, near-dist)
}

func intersectRect(a, b model.Rect) model.Rect { return a.Intersection(b) }

func unionRects(a, b model.Rect) model.Rect { return a.Union(b) }

// pushNearPast moves win's near edge to just past target's far-facing
// edge, shrinking the window.
func pushNearPast(side model.Side, win model.Rect, target model.Rect) model.Rect {
	if side == model.SideBelow {
		v := target.Y1
		if v <= win.Y0 {
			return win
		}
		return withNearEdge(side, win, minF(v, win.Y1))
	}
	v := target.Y0
	if v >= win.Y1 {
		return win
	}
	return withNearEdge(side, win, maxF(v, win.Y0))
}

// trimWholeBand removes an entire mid-band region by moving the near edge
// to the band's far boundary, capped by remaining budget.
func trimWholeBand(side model.Side, win model.Rect, band model.Rect, budget float64) model.Rect {
	if budget <= 0 {
		return win
	}
	removed := band.Height()
	if removed > budget {
		return win
	}
	if side == model.SideBelow {
		return withNearEdge(side, win, band.Y1)
	}
	return withNearEdge(side, win, band.Y0)
}

// trimTightRun is the conservative A2 behaviour: only remove the
// contiguous run of lines within band whose consecutive gaps are <20pt.
func trimTightRun(side model.Side, win model.Rect, band model.Rect, lines []model.TextLine, budget float64) model.Rect {
	if len(lines) == 0 || budget <= 0 {
		return win
	}
	sorted := append([]model.TextLine(nil), lines...)
	sortLinesByNear(side, win, sorted)
	run := []model.TextLine{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		gap := gapBetween(side, run[len(run)-1].Rect, sorted[i].Rect)
		if gap < 20 {
			run = append(run, sorted[i])
		} else {
			break
		}
	}
	far := run[0].Rect
	for _, ln := range run[1:] {
		far = far.Union(ln.Rect)
	}
	removed := far.Height()
	if removed > budget {
		return win
	}
	return pushNearPast(side, win, far)
}

// trimWholeBandFar removes region entirely, when far-side paragraph
// coverage clears threshold.
func trimWholeBandFar(side model.Side, win model.Rect, region model.Rect, budget float64) model.Rect {
	if budget <= 0 {
		return win
	}
	removed := region.Height()
	if removed > budget {
		return win
	}
	if side == model.SideBelow {
		return withFarEdge(side, win, region.Y0)
	}
	return withFarEdge(side, win, region.Y1)
}

// stripFarHeuristic removes bullet lines and overlong lines from region,
// per spec.md §4.5's A3 fallback: >60 chars beyond 15pt, >30 chars beyond
// 20pt, any text beyond 25pt (distances measured from the near edge).
func stripFarHeuristic(side model.Side, win model.Rect, region model.Rect, lines []model.TextLine, budget float64) model.Rect {
	if budget <= 0 || len(lines) == 0 {
		return win
	}
	var offenders []model.Rect
	for _, ln := range lines {
		text := strings.TrimSpace(ln.Text())
		d := nearDist(side, win, ln.Rect)
		isBullet := strings.HasPrefix(text, "•") || strings.HasPrefix(text, "-") || strings.HasPrefix(text, "·")
		isLong := (d > 25) || (d > 20 && len([]rune(text)) > 30) || (d > 15 && len([]rune(text)) > 60)
		if isBullet || isLong {
			offenders = append(offenders, ln.Rect)
		}
	}
	if len(offenders) == 0 {
		return win
	}
	far := offenders[0]
	for _, r := range offenders[1:] {
		far = far.Union(r)
	}
	removed := far.Intersection(region).Height()
	if removed > budget {
		return win
	}
	if side == model.SideBelow {
		return withFarEdge(side, win, far.Y0)
	}
	return withFarEdge(side, win, far.Y1)
}

func sortLinesByNear(side model.Side, win model.Rect, lines []model.TextLine) {
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0; j-- {
			if nearDist(side, win, lines[j].Rect) < nearDist(side, win, lines[j-1].Rect) {
				lines[j], lines[j-1] = lines[j-1], lines[j]
			} else {
				break
			}
		}
	}
}

func gapBetween(side model.Side, a, b model.Rect) float64 {
	if side == model.SideBelow {
		return b.Y0 - a.Y1
	}
	return a.Y0 - b.Y1
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
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

func maxF(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
