package caption

import (
	"strings"

	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/ident"
	"github.com/tsawler/attachcore/model"
)

// BuildIndex scans every text line on every page of doc and returns one
// [model.CaptionCandidate] per textual occurrence matching the regexes in
// regex.go, scored per spec.md §4.3. The index is built serially and
// document-wide, per spec.md §5 ("The caption index is built serially
// first... or built incrementally with a final reconciliation pass").
func BuildIndex(doc *backend.Document) ([]model.CaptionCandidate, error) {
	var out []model.CaptionCandidate
	for i := 1; i <= doc.PageCount(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			continue
		}
		lines, err := page.TextLines()
		if err != nil || len(lines) == 0 {
			continue
		}
		drawings, err := page.Drawings()
		if err != nil {
			drawings = nil
		}
		images, err := page.ImageRects()
		if err != nil {
			images = nil
		}
		objBoxes := objectBoxes(drawings, images)

		for li, line := range lines {
			text := strings.TrimSpace(line.Text())
			if text == "" {
				continue
			}
			m, ok := matchLine(text)
			if !ok {
				continue
			}
			id, ok := ident.Parse(m.IdentText)
			if !ok {
				continue
			}
			kind := model.KindFigure
			if m.Kind == KindTable {
				kind = model.KindTable
			}
			comps := score(scoreInput{
				Kind:       kind,
				Line:       line,
				LineIndex:  li,
				AllLines:   lines,
				ObjBoxes:   objBoxes,
				MatchedLen: m.MatchLen,
				Text:       text,
			})
			out = append(out, model.CaptionCandidate{
				Kind:       kind,
				Ident:      id,
				Page:       i,
				Rect:       line.Rect,
				Text:       text,
				Components: comps,
				TotalScore: comps.Total(),
			})
		}
	}
	return out, nil
}

// objectBoxes flattens drawings and images into plain rects, the only
// thing the position-score axis needs.
func objectBoxes(drawings []model.DrawingObject, images []model.ImageRect) []model.Rect {
	out := make([]model.Rect, 0, len(drawings)+len(images))
	for _, d := range drawings {
		if d.Kind == model.DrawingLineSegment {
			continue // rules aren't the "image/drawing" a caption sits near
		}
		out = append(out, d.Rect)
	}
	for _, im := range images {
		out = append(out, im.Rect)
	}
	return out
}
