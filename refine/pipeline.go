package refine

import (
	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/metrics"
	"github.com/tsawler/attachcore/model"
)

// Run applies the full A -> B -> D pipeline to anchor's baseline window
// and the acceptance gate of spec.md §4.8, falling back to A-only and
// then to the untouched baseline when the gate rejects. A failed Phase D
// render and gate rejections are recorded in the result's Trace and
// reflected in Stage; an error is returned only when measuring a window
// for the gate (which renders it via metrics.InkDensity) fails.
func Run(cfg Config, page *backend.Page, anchor model.AnchorChoice, lines []model.TextLine, drawings []model.DrawingObject, images []model.ImageRect) (model.RefinementResult, error) {
	cap := anchor.Caption
	side := anchor.Side
	baseline := anchor.BaselineRect

	baseMetrics, err := computeMetrics(page, baseline, drawings, images, lines)
	if err != nil {
		return model.RefinementResult{}, err
	}

	farHalf := farHalfRect(side, baseline)
	farCoverage := metrics.ParagraphCoverage(lines, farHalf)

	aWin, aTrace := PhaseA(cfg, cap, side, baseline, lines)
	bWin, bTrace := PhaseB(cfg, cap.Kind(), side, aWin, drawings, images, page.Rect().Height())
	dWin, dTrace, dErr := PhaseD(cfg, page, cap.Kind(), side, cap, bWin, lines)

	var trace []model.PhaseTrace
	trace = append(trace, aTrace...)
	trace = append(trace, bTrace)
	trace = append(trace, dTrace)

	if dErr != nil {
		trace = append(trace, model.PhaseTrace{Phase: "D", Before: bWin, After: bWin, Applied: false, RejectedWhy: "render error: " + dErr.Error()})
		dWin = bWin
	}

	refinedMetrics, err := computeMetrics(page, dWin, drawings, images, lines)
	if err != nil {
		return model.RefinementResult{}, err
	}

	if ok, _ := Gate(baseMetrics, refinedMetrics, farCoverage); ok {
		return model.RefinementResult{
			Rect:          dWin,
			Stage:         model.StageRefined,
			Metrics:       refinedMetrics,
			Trace:         trace,
			StagesApplied: stagesApplied(aTrace, bTrace, dTrace),
		}, nil
	}

	// A-only fallback: skip B and D, accept if the A-window alone cleared
	// a lower bar.
	aMetrics, err := computeMetrics(page, aWin, drawings, images, lines)
	if err != nil {
		return model.RefinementResult{}, err
	}
	heightOK := safeDiv(aMetrics.Height, baseMetrics.Height) >= 0.60
	areaOK := safeDiv(aMetrics.Area, baseMetrics.Area) >= 0.55
	if heightOK && areaOK {
		trace = append(trace, model.PhaseTrace{Phase: "gate", Before: dWin, After: aWin, Applied: false, RejectedWhy: "refined rejected; A-only accepted"})
		return model.RefinementResult{
			Rect:          aWin,
			Stage:         model.StageAOnly,
			Metrics:       aMetrics,
			Trace:         trace,
			StagesApplied: []string{"baseline", "A", "A-only-fallback"},
		}, nil
	}

	trace = append(trace, model.PhaseTrace{Phase: "gate", Before: dWin, After: baseline, RejectedWhy: "refined and A-only rejected; baseline kept"})
	return model.RefinementResult{
		Rect:          baseline,
		Stage:         model.StageBaseline,
		Metrics:       baseMetrics,
		Trace:         trace,
		StagesApplied: []string{"baseline", "baseline-fallback"},
	}, nil
}

// stagesApplied builds spec.md §8 property 5's canonical prefix: "baseline"
// plus however far the accepted refinement actually progressed. Reaching a
// later phase credits the earlier ones too, since each phase operates on
// the prior phase's output -- the prefix always nests, never skips.
func stagesApplied(aTrace []model.PhaseTrace, bTrace, dTrace model.PhaseTrace) []string {
	reached := 0
	for _, t := range aTrace {
		if t.Applied {
			reached = 1
		}
	}
	if bTrace.Applied && reached < 2 {
		reached = 2
	}
	if dTrace.Applied && reached < 3 {
		reached = 3
	}
	names := []string{"baseline", "A", "B", "D"}
	return append([]string{}, names[:reached+1]...)
}
