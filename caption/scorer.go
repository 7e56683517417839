package caption

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tsawler/attachcore/model"
)

// scoreInput bundles everything the 4-axis scorer needs about one
// candidate line's context.
type scoreInput struct {
	Kind       model.AttachmentKind
	Line       model.TextLine
	LineIndex  int
	AllLines   []model.TextLine
	ObjBoxes   []model.Rect
	MatchedLen int
	Text       string
}

var captionKeywordRe = regexp.MustCompile(`(?i)\b(shows|illustrates|depicts|comparison)\b|展示|说明|比较`)
var referenceKeywordRe = regexp.MustCompile(`(?i)\b(as shown in|see figure|see table)\b|如图所示|见图|见表`)

// score computes the four-axis breakdown per spec.md §4.3.
func score(in scoreInput) model.ScoreComponents {
	return model.ScoreComponents{
		Position:  positionScore(in),
		Format:    formatScore(in),
		Structure: structureScore(in),
		Context:   contextScore(in),
	}
}

// positionScore scores inverse-distance to the nearest image/drawing bbox
// on the same page, per spec.md §4.3's table.
func positionScore(in scoreInput) float64 {
	if len(in.ObjBoxes) == 0 {
		return 0
	}
	best := math.Inf(1)
	for _, box := range in.ObjBoxes {
		d := rectGap(in.Line.Rect, box)
		if d < best {
			best = d
		}
	}
	switch {
	case best < 10:
		return 40
	case best < 20:
		return 35
	case best < 40:
		return 28
	case best < 80:
		return 18
	case best < 150:
		return 8
	default:
		return 0
	}
}

// rectGap is the vertical gap between two rects that may overlap
// horizontally -- the distance a caption sits from the nearest edge of a
// figure/table object, measured the way the spec's distance buckets
// imply (not full rect-to-rect Euclidean distance, which would
// overcount diagonal offsets from objects the caption sits flush under).
func rectGap(a, b model.Rect) float64 {
	if a.Y1 <= b.Y0 {
		return b.Y0 - a.Y1
	}
	if b.Y1 <= a.Y0 {
		return a.Y0 - b.Y1
	}
	return 0
}

// formatScore scores bold span presence, standalone-paragraph shape, and
// trailing punctuation, per spec.md §4.3.
func formatScore(in scoreInput) float64 {
	var total float64
	for _, sp := range in.Line.Spans {
		if sp.Bold {
			total += 15
			break
		}
	}
	if isStandaloneParagraph(in) {
		total += 10
	}
	trimmed := strings.TrimRight(in.Text, " \t")
	if trimmed != "" {
		last, _ := utf8.DecodeLastRuneInString(trimmed)
		if last == '.' || last == ':' || last == '：' || last == '。' {
			total += 5
		}
	}
	return total
}

// isStandaloneParagraph approximates "the line is a paragraph by itself":
// the vertical gap to both neighbouring lines is at least 0.6 times the
// line's own height, meaning nothing above or below it reads as a
// continuation.
func isStandaloneParagraph(in scoreInput) bool {
	h := in.Line.Rect.Height()
	if h <= 0 {
		return false
	}
	aboveGap, belowGap := math.Inf(1), math.Inf(1)
	if in.LineIndex > 0 {
		aboveGap = in.Line.Rect.Y0 - in.AllLines[in.LineIndex-1].Rect.Y1
	}
	if in.LineIndex < len(in.AllLines)-1 {
		belowGap = in.AllLines[in.LineIndex+1].Rect.Y0 - in.Line.Rect.Y1
	}
	return aboveGap >= h*0.6 && belowGap >= h*0.6
}

// structureScore scores the next non-empty line's shape, per spec.md
// §4.3: a short descriptive sentence scores +12, a long paragraph (>=300
// chars after the identifier) scores -8.
func structureScore(in scoreInput) float64 {
	next := nextNonEmptyLine(in.AllLines, in.LineIndex)
	if next == "" {
		return 0
	}
	afterIdent := strings.TrimSpace(in.Text[minInt(in.MatchedLen, len(in.Text)):])
	combined := afterIdent + " " + next
	runeLen := utf8.RuneCountInString(combined)
	switch {
	case runeLen >= 300:
		return -8
	case runeLen > 0 && runeLen < 200:
		return 12
	default:
		return 0
	}
}

func nextNonEmptyLine(lines []model.TextLine, idx int) string {
	for i := idx + 1; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i].Text())
		if t != "" {
			return t
		}
	}
	return ""
}

// contextScore scores caption-keyword presence (+10) and reference-phrase
// presence (-15), per spec.md §4.3.
func contextScore(in scoreInput) float64 {
	var total float64
	if captionKeywordRe.MatchString(in.Text) {
		total += 10
	}
	if referenceKeywordRe.MatchString(in.Text) {
		total -= 15
	}
	return total
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
