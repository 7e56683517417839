// Package debugviz renders the optional multi-stage overlay the original
// scripts/lib/debug_visual.py produced: a 2x page render with every
// refinement stage drawn in its own colour, plus a plain-text legend. It
// is purely diagnostic -- nothing in attach's main path depends on it,
// and a failure here is never fatal to a run.
package debugviz

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/layoutmodel"
	"github.com/tsawler/attachcore/model"
)

// scale is the fixed 2x render resolution factor debug_visual.py used.
const scale = 2.0

// Stage is one coloured rectangle drawn onto the overlay.
type Stage struct {
	Name        string
	Rect        model.Rect
	Color       color.RGBA
	Description string
}

var (
	colorBaseline = color.RGBA{0, 102, 255, 255}
	colorPhaseA   = color.RGBA{0, 200, 0, 255}
	colorPhaseB   = color.RGBA{255, 165, 0, 255}
	colorPhaseD   = color.RGBA{255, 0, 0, 255}
	colorFallback = color.RGBA{255, 255, 0, 255}
	colorCaption  = color.RGBA{148, 0, 211, 255}
	colorText     = color.RGBA{255, 105, 180, 255}
)

// StagesFromTrace turns one refinement's trace plus its final rect into
// the ordered, coloured stage list Overlay draws, largest first so small
// boxes stay visible on top.
func StagesFromTrace(baseline model.Rect, result model.RefinementResult) []Stage {
	stages := []Stage{{Name: "baseline", Rect: baseline, Color: colorBaseline, Description: "anchor baseline window"}}
	for _, t := range result.Trace {
		if !t.Applied {
			continue
		}
		col := colorPhaseA
		switch {
		case strings.HasPrefix(t.Phase, "B"):
			col = colorPhaseB
		case strings.HasPrefix(t.Phase, "D"):
			col = colorPhaseD
		}
		stages = append(stages, Stage{Name: t.Phase, Rect: t.After, Color: col, Description: fmt.Sprintf("%s applied", t.Phase)})
	}
	if result.Stage == model.StageBaseline {
		stages = append(stages, Stage{Name: "fallback", Rect: result.Rect, Color: colorFallback, Description: "acceptance gate rejected refinement; baseline kept"})
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Rect.Area() > stages[j].Rect.Area() })
	return stages
}

// Overlay renders page at 2x, overlays every stage, the caption rect, and
// (when layout is non-nil) paragraph/title blocks, and writes the overlay
// PNG and a text legend under outDir/debug/<runID>/. It returns the two
// file paths relative to outDir, or an error if the page could not be
// rendered -- callers should log and continue, never fail the run.
func Overlay(page *backend.Page, outDir, runID string, kind model.AttachmentKind, ident string, stages []Stage, caption model.Rect, layout *layoutmodel.Page) ([]string, error) {
	pageRect := page.Rect()
	canvas, err := page.Pixmap(int(scale*72), pageRect)
	if err != nil {
		return nil, err
	}

	toPx := func(r model.Rect) image.Rectangle {
		return image.Rect(
			int(r.X0*scale), int(r.Y0*scale),
			int(r.X1*scale), int(r.Y1*scale),
		)
	}

	var textBlocks []model.Rect
	if layout != nil {
		for _, b := range layout.ParagraphBlocks {
			drawRect(canvas, toPx(b), colorText, 2)
			textBlocks = append(textBlocks, b)
		}
		for _, b := range layout.TitleBlocks {
			drawRect(canvas, toPx(b), colorText, 2)
			textBlocks = append(textBlocks, b)
		}
	}

	for _, st := range stages {
		drawRect(canvas, toPx(st.Rect), st.Color, 3)
	}
	if len(stages) > 0 {
		final := stages[len(stages)-1]
		highlight := color.NRGBA{final.Color.R, final.Color.G, final.Color.B, 40}
		xdraw.Draw(canvas, toPx(final.Rect), &image.Uniform{C: highlight}, image.Point{}, draw.Over)
	}
	drawRect(canvas, toPx(caption), colorCaption, 3)

	debugDir := filepath.Join(outDir, "debug", runID)
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		return nil, err
	}

	prefix := "Figure"
	if kind == model.KindTable {
		prefix = "Table"
	}
	visName := fmt.Sprintf("%s_%s_debug_stages.png", prefix, ident)
	legendName := fmt.Sprintf("%s_%s_legend.txt", prefix, ident)

	visPath := filepath.Join(debugDir, visName)
	f, err := os.Create(visPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := png.Encode(f, canvas); err != nil {
		return nil, err
	}

	legendPath := filepath.Join(debugDir, legendName)
	if err := writeLegend(legendPath, prefix, ident, caption, stages, textBlocks); err != nil {
		return nil, err
	}

	rel := func(p string) string {
		r, err := filepath.Rel(outDir, p)
		if err != nil {
			return p
		}
		return filepath.ToSlash(r)
	}
	return []string{rel(visPath), rel(legendPath)}, nil
}

// drawRect draws an outlined rectangle of the given line width, mirroring
// debug_visual.py's manual set_px loop rather than pulling in a shapes
// library for a handful of straight lines.
func drawRect(canvas *image.RGBA, r image.Rectangle, col color.RGBA, width int) {
	b := canvas.Bounds()
	clampX := func(x int) int {
		if x < b.Min.X {
			return b.Min.X
		}
		if x > b.Max.X-1 {
			return b.Max.X - 1
		}
		return x
	}
	clampY := func(y int) int {
		if y < b.Min.Y {
			return b.Min.Y
		}
		if y > b.Max.Y-1 {
			return b.Max.Y - 1
		}
		return y
	}
	x0, x1 := clampX(r.Min.X), clampX(r.Max.X)
	y0, y1 := clampY(r.Min.Y), clampY(r.Max.Y)
	for off := 0; off < width; off++ {
		for x := x0; x <= x1; x++ {
			canvas.Set(x, clampY(y0+off), col)
			canvas.Set(x, clampY(y1-off), col)
		}
		for y := y0; y <= y1; y++ {
			canvas.Set(clampX(x0+off), y, col)
			canvas.Set(clampX(x1-off), y, col)
		}
	}
}

func writeLegend(path, prefix, ident string, caption model.Rect, stages []Stage, textBlocks []model.Rect) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s %s Debug Legend ===\n\n", prefix, ident)
	fmt.Fprintf(&b, "Caption: %.1f,%.1f -> %.1f,%.1f (%.1fx%.1fpt)\n\n", caption.X0, caption.Y0, caption.X1, caption.Y1, caption.Width(), caption.Height())

	if len(textBlocks) > 0 {
		fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 70))
		fmt.Fprintf(&b, "TEXT BLOCKS (layout model)\n")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 70))
		fmt.Fprintf(&b, "Total text blocks on this page: %d\n", len(textBlocks))
		fmt.Fprintf(&b, "Color: RGB(255, 105, 180)\n\n")
		for i, r := range textBlocks {
			fmt.Fprintf(&b, "Text Block %d:\n", i+1)
			fmt.Fprintf(&b, "  Position: %.1f,%.1f -> %.1f,%.1f\n", r.X0, r.Y0, r.X1, r.Y1)
			fmt.Fprintf(&b, "  Size: %.1fx%.1fpt\n\n", r.Width(), r.Height())
		}
		fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 70))
	}

	for _, st := range stages {
		fmt.Fprintf(&b, "%s:\n", st.Name)
		fmt.Fprintf(&b, "  Position: %.1f,%.1f -> %.1f,%.1f\n", st.Rect.X0, st.Rect.Y0, st.Rect.X1, st.Rect.Y1)
		fmt.Fprintf(&b, "  Size: %.1fx%.1fpt\n", st.Rect.Width(), st.Rect.Height())
		fmt.Fprintf(&b, "  Color: RGB(%d, %d, %d)\n", st.Color.R, st.Color.G, st.Color.B)
		fmt.Fprintf(&b, "  Description: %s\n\n", st.Description)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
