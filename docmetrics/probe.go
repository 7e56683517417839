// Package docmetrics implements the document line-metrics probe of
// spec.md §4.2: a cheap, whole-document sample of typical font size and
// line height that the rest of the core turns into adaptive thresholds
// (adjacent_th, far_text_th, text_trim_gap, far_side_min_dist), plus the
// document's column count.
package docmetrics

import (
	"sort"

	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/layout"
	"github.com/tsawler/attachcore/model"
	"github.com/tsawler/attachcore/text"
)

// SampleLimit caps how many pages the probe reads, per spec.md §4.2 ("up
// to N=5 pages").
const SampleLimit = 5

// ConservativeLineHeight is returned when too few lines are sampled to
// trust a measured value.
const ConservativeLineHeight = 12.0

// Metrics is the probe's output.
type Metrics struct {
	TypicalFontSize   float64
	TypicalLineHeight float64
	TypicalLineGap    float64
	MedianLineHeight  float64
	P75LineHeight     float64
	Columns           int
}

// Adaptive derives the four adaptive thresholds spec.md §4.2 names, in
// points. CLI/environment overrides win over these; these win over
// compile-time defaults (config.Build enforces that ordering).
type Adaptive struct {
	AdjacentTh    float64
	FarTextTh     float64
	TextTrimGap   float64
	FarSideMinDist float64
}

// Adaptive computes the thresholds this probe's line height implies.
func (m Metrics) Adaptive() Adaptive {
	l := m.TypicalLineHeight
	return Adaptive{
		AdjacentTh:     2.0 * l,
		FarTextTh:      10.0 * l,
		TextTrimGap:    0.5 * l,
		FarSideMinDist: 8.0 * l,
	}
}

// minLineHeightPt and minLineWidthPt discard noise lines per spec.md
// §4.2 ("discard lines with height <3 pt or width <10 pt").
const (
	minLineHeightPt = 3.0
	minLineWidthPt  = 10.0
	minFontSizePt   = 8.0
	maxFontSizePt   = 14.0
)

// Probe samples up to SampleLimit pages of doc and returns document-wide
// line metrics. If too few qualifying lines are found it returns the
// conservative default rather than an unstable measurement.
func Probe(doc *backend.Document) (Metrics, error) {
	n := doc.PageCount()
	if n > SampleLimit {
		n = SampleLimit
	}

	var heights []float64
	var fontSizes []float64
	var gaps []float64
	var maxColumns int

	for i := 1; i <= n; i++ {
		page, err := doc.Page(i)
		if err != nil {
			continue
		}
		lines, err := page.TextLines()
		if err != nil {
			continue
		}
		kept := make([]model.TextLine, 0, len(lines))
		for _, ln := range lines {
			if ln.Rect.Height() < minLineHeightPt || ln.Rect.Width() < minLineWidthPt {
				continue
			}
			var anyQualifyingSpan bool
			for _, sp := range ln.Spans {
				if sp.FontSize >= minFontSizePt && sp.FontSize <= maxFontSizePt {
					fontSizes = append(fontSizes, sp.FontSize)
					anyQualifyingSpan = true
				}
			}
			if !anyQualifyingSpan {
				continue
			}
			heights = append(heights, ln.Rect.Height())
			kept = append(kept, ln)
		}
		sort.Slice(kept, func(a, b int) bool { return kept[a].Rect.Y0 < kept[b].Rect.Y0 })
		for k := 1; k < len(kept); k++ {
			gap := kept[k].Rect.Y0 - kept[k-1].Rect.Y1
			if gap > 0 {
				gaps = append(gaps, gap)
			}
		}

		cols := columnCount(page)
		if cols > maxColumns {
			maxColumns = cols
		}
	}

	if len(heights) < 5 {
		return Metrics{
			TypicalFontSize:   10,
			TypicalLineHeight: ConservativeLineHeight,
			TypicalLineGap:    ConservativeLineHeight * 0.25,
			MedianLineHeight:  ConservativeLineHeight,
			P75LineHeight:     ConservativeLineHeight,
			Columns:           1,
		}, nil
	}

	if maxColumns == 0 {
		maxColumns = 1
	}

	return Metrics{
		TypicalFontSize:   median(fontSizes),
		TypicalLineHeight: robustMean(heights),
		TypicalLineGap:    median(gaps),
		MedianLineHeight:  median(heights),
		P75LineHeight:     percentile(heights, 0.75),
		Columns:           maxColumns,
	}, nil
}

// columnCount wraps layout.ColumnDetector, feeding it fragments rebuilt
// from this page's TextLines (one synthetic fragment per span, see
// linesToFragments) rather than the page's raw text fragments.
func columnCount(page *backend.Page) int {
	lines, err := page.TextLines()
	if err != nil || len(lines) == 0 {
		return 1
	}
	rect := page.Rect()
	frags := linesToFragments(lines, rect.Height())
	det := layout.NewColumnDetector()
	cl := det.Detect(frags, rect.Width(), rect.Height())
	if cl == nil || len(cl.Columns) == 0 {
		return 1
	}
	return len(cl.Columns)
}

// linesToFragments rebuilds one synthetic fragment per span, converting
// back to tabula's bottom-left-origin coordinates, so layout.ColumnDetector
// (which only knows that coordinate system) can be reused here.
func linesToFragments(lines []model.TextLine, pageHeight float64) []text.TextFragment {
	var out []text.TextFragment
	for _, ln := range lines {
		for _, sp := range ln.Spans {
			bb := model.RectToBBox(sp.Rect, pageHeight)
			out = append(out, text.TextFragment{
				Text:     sp.Text,
				X:        bb.X,
				Y:        bb.Y,
				Width:    bb.Width,
				Height:   bb.Height,
				FontName: sp.FontName,
				FontSize: sp.FontSize,
			})
		}
	}
	return out
}

// median returns the middle value of a sorted copy of vs (average of the
// two middle values for an even-length slice).
func median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentile returns the p-th percentile (0<=p<=1) as the sorted value at
// index floor(p*(len-1)), without interpolation.
func percentile(vs []float64, p float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// robustMean drops the lowest and highest 10% of values (if there are
// enough samples to do so) before averaging, per spec.md §4.2's "robust
// aggregate by median, ignoring the extremes" -- here applied as a
// trimmed mean so the typical-height estimate isn't just the median
// line, but also isn't dragged by a handful of outsized headings.
func robustMean(vs []float64) float64 {
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	n := len(sorted)
	trim := n / 10
	lo, hi := trim, n-trim
	if hi <= lo {
		lo, hi = 0, n
	}
	sum := 0.0
	for _, v := range sorted[lo:hi] {
		sum += v
	}
	return sum / float64(hi-lo)
}
