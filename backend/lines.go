package backend

import (
	"sort"
	"strings"

	"github.com/tsawler/attachcore/model"
	"github.com/tsawler/attachcore/text"
)

// lineHeightTolerance mirrors layout.BlockConfig's default: fragments whose
// baseline Y differs by less than this fraction of their average height sit
// on the same line.
const lineHeightTolerance = 0.3

// groupFragmentsIntoLines clusters fragments by baseline proximity, the
// same two-pass sort-then-cluster algorithm layout.BlockDetector.groupIntoLines
// uses, and converts the result into top-left-origin [model.TextLine]s.
func groupFragmentsIntoLines(fragments []text.TextFragment, pageHeight float64) []model.TextLine {
	if len(fragments) == 0 {
		return nil
	}
	sorted := make([]text.TextFragment, len(fragments))
	copy(sorted, fragments)
	sort.Slice(sorted, func(i, j int) bool {
		yDiff := sorted[i].Y - sorted[j].Y
		tol := avgHeight(sorted[i], sorted[j]) * lineHeightTolerance
		if absF(yDiff) > tol {
			return yDiff > 0
		}
		return sorted[i].X < sorted[j].X
	})

	var groups [][]text.TextFragment
	var cur []text.TextFragment
	for _, f := range sorted {
		if len(cur) == 0 {
			cur = append(cur, f)
			continue
		}
		last := cur[len(cur)-1]
		tol := avgHeight(f, last) * lineHeightTolerance
		if absF(f.Y-last.Y) <= tol {
			cur = append(cur, f)
		} else {
			groups = append(groups, cur)
			cur = []text.TextFragment{f}
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	lines := make([]model.TextLine, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].X < g[j].X })
		line := fragmentsToLine(g, pageHeight)
		lines = append(lines, line)
	}
	return lines
}

func fragmentsToLine(g []text.TextFragment, pageHeight float64) model.TextLine {
	spans := make([]model.TextSpan, 0, len(g))
	bbox := model.NewBBox(g[0].X, g[0].Y, g[0].Width, g[0].Height)
	for _, f := range g {
		fb := model.NewBBox(f.X, f.Y, f.Width, f.Height)
		bbox = bbox.Union(fb)
		spans = append(spans, model.TextSpan{
			Text:     f.Text,
			Rect:     model.BBoxToRect(fb, pageHeight),
			FontName: f.FontName,
			FontSize: f.FontSize,
			Bold:     looksBold(f.FontName),
			Italic:   looksItalic(f.FontName),
		})
	}
	return model.TextLine{Spans: spans, Rect: model.BBoxToRect(bbox, pageHeight)}
}

func looksBold(fontName string) bool {
	return strings.Contains(strings.ToLower(fontName), "bold")
}

func looksItalic(fontName string) bool {
	n := strings.ToLower(fontName)
	return strings.Contains(n, "italic") || strings.Contains(n, "oblique")
}

func avgHeight(a, b text.TextFragment) float64 { return (a.Height + b.Height) / 2 }

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
