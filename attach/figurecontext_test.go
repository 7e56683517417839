package attach

import (
	"testing"

	"github.com/tsawler/attachcore/model"
)

func ln(text string, y0, y1 float64) model.TextLine {
	return model.TextLine{Spans: []model.TextSpan{{Text: text}}, Rect: model.NewRect(0, y0, 200, y1)}
}

func TestBuildFigureContextSplitsBeforeAndAfter(t *testing.T) {
	rec := model.AttachmentRecord{BBoxPt: model.NewRect(0, 100, 200, 200)}
	lines := []model.TextLine{
		ln("intro text", 0, 50),
		ln("more intro", 50, 90),
		ln("caption inside the figure", 100, 200),
		ln("following paragraph", 210, 250),
	}
	fc := BuildFigureContext(rec, lines, 1000)
	if fc.PrecedingText != "intro text more intro" {
		t.Errorf("PrecedingText = %q", fc.PrecedingText)
	}
	if fc.FollowingText != "following paragraph" {
		t.Errorf("FollowingText = %q", fc.FollowingText)
	}
}

func TestBuildFigureContextTruncatesByMaxChars(t *testing.T) {
	rec := model.AttachmentRecord{BBoxPt: model.NewRect(0, 100, 200, 200)}
	lines := []model.TextLine{
		ln("abcdefghij", 0, 10),
		ln("klmnopqrst", 210, 220),
	}
	fc := BuildFigureContext(rec, lines, 4)
	if fc.PrecedingText != "ghij" {
		t.Errorf("PrecedingText = %q, want tail %q", fc.PrecedingText, "ghij")
	}
	if fc.FollowingText != "klmn" {
		t.Errorf("FollowingText = %q, want head %q", fc.FollowingText, "klmn")
	}
}

func TestBuildFigureContextNoSurroundingText(t *testing.T) {
	rec := model.AttachmentRecord{BBoxPt: model.NewRect(0, 100, 200, 200)}
	fc := BuildFigureContext(rec, nil, 100)
	if fc.PrecedingText != "" || fc.FollowingText != "" {
		t.Errorf("expected empty context, got %+v", fc)
	}
}
