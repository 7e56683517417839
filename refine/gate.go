package refine

import (
	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/metrics"
	"github.com/tsawler/attachcore/model"
)

// gateTier is one row of spec.md §4.8's tiered threshold table.
type gateTier struct {
	farCoverageMin float64
	heightRatio    float64
	areaRatio      float64
	inkRatio       float64
	coverageRatio  float64
}

// gateTiers are checked in order; the first whose farCoverageMin the
// observed far_coverage clears (from the top down) applies.
var gateTiers = []gateTier{
	{farCoverageMin: 0.60, heightRatio: 0.35, areaRatio: 0.25, inkRatio: 0.70, coverageRatio: 0.70},
	{farCoverageMin: 0.30, heightRatio: 0.45, areaRatio: 0.35, inkRatio: 0.75, coverageRatio: 0.75},
	{farCoverageMin: 0.18, heightRatio: 0.50, areaRatio: 0.40, inkRatio: 0.80, coverageRatio: 0.80},
	{farCoverageMin: 0.00, heightRatio: 0.60, areaRatio: 0.55, inkRatio: 0.90, coverageRatio: 0.85},
}

func tierFor(farCoverage float64) gateTier {
	for _, t := range gateTiers {
		if farCoverage >= t.farCoverageMin {
			return t
		}
	}
	return gateTiers[len(gateTiers)-1]
}

// computeMetrics measures rect for the acceptance gate: real ink density
// (a real pixmap render, unlike anchor's geometry-only proxy), object
// coverage, component count, and text-line count.
func computeMetrics(page *backend.Page, rect model.Rect, drawings []model.DrawingObject, images []model.ImageRect, lines []model.TextLine) (model.Metrics, error) {
	ink, err := metrics.InkDensity(page, rect)
	if err != nil {
		return model.Metrics{}, err
	}
	cov := metrics.ObjectCoverage(drawings, images, rect)
	components := metrics.ConnectedComponents(drawings, images, 6)
	compCount := 0
	for _, c := range components {
		if c.Rect.Intersects(rect) {
			compCount++
		}
	}
	lineCount := 0
	for _, ln := range lines {
		if ln.Rect.Intersects(rect) {
			lineCount++
		}
	}
	return model.Metrics{
		Height:         rect.Height(),
		Area:           rect.Area(),
		InkDensity:     ink,
		ObjectCoverage: cov,
		ComponentCount: compCount,
		TextLineCount:  lineCount,
	}, nil
}

// Gate applies spec.md §4.8's tiered acceptance test: pass iff every
// ratio in the tier selected by farCoverage holds, and (if baseline had
// two or more components) refined keeps at least two.
func Gate(baseline, refined model.Metrics, farCoverage float64) (bool, string) {
	t := tierFor(farCoverage)
	heightRatio := safeDiv(refined.Height, baseline.Height)
	areaRatio := safeDiv(refined.Area, baseline.Area)
	inkRatio := safeDiv(refined.InkDensity, baseline.InkDensity)
	covRatio := safeDiv(refined.ObjectCoverage, baseline.ObjectCoverage)

	switch {
	case heightRatio < t.heightRatio:
		return false, "height ratio below gate"
	case areaRatio < t.areaRatio:
		return false, "area ratio below gate"
	case inkRatio < t.inkRatio:
		return false, "ink ratio below gate"
	case covRatio < t.coverageRatio:
		return false, "coverage ratio below gate"
	case baseline.ComponentCount >= 2 && refined.ComponentCount < 2:
		return false, "lost a component"
	}
	return true, ""
}

func safeDiv(a, b float64) float64 {
	if b <= 0 {
		return 1
	}
	return a / b
}
