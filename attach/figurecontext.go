package attach

import "github.com/tsawler/attachcore/model"

// FigureContext is the thin boundary type standing in for the original
// Python implementation's figure_contexts.py: the surrounding text a
// downstream summarizer would want alongside one emitted attachment. The
// summarizer itself is an external collaborator (spec.md §1); this type
// only names the shape at the boundary.
type FigureContext struct {
	Record       model.AttachmentRecord
	PrecedingText string
	FollowingText string
}

// BuildFigureContext joins, in the given order, every line lying wholly
// above rec's crop rect and every line lying wholly below it; lines are not
// filtered by shape or column. The preceding text keeps its last maxChars
// runes and the following text its first maxChars runes.
func BuildFigureContext(rec model.AttachmentRecord, lines []model.TextLine, maxChars int) FigureContext {
	var before, after []model.TextLine
	for _, ln := range lines {
		switch {
		case ln.Rect.Y1 <= rec.BBoxPt.Y0:
			before = append(before, ln)
		case ln.Rect.Y0 >= rec.BBoxPt.Y1:
			after = append(after, ln)
		}
	}
	return FigureContext{
		Record:        rec,
		PrecedingText: truncateTail(joinLines(before), maxChars),
		FollowingText: truncateHead(joinLines(after), maxChars),
	}
}

func joinLines(lines []model.TextLine) string {
	s := ""
	for i, ln := range lines {
		if i > 0 {
			s += " "
		}
		s += ln.Text()
	}
	return s
}

func truncateTail(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[len(r)-maxChars:])
}

func truncateHead(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars])
}
