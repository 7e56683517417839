package anchor

import "github.com/tsawler/attachcore/model"

// Vote is the document-wide global direction bias spec.md §4.4 computes
// as a cheap preflight before V2 scanning starts. Decided is false for
// "auto": every caption then decides its side individually.
type Vote struct {
	Decided bool
	Side    model.Side
}

// GlobalVote runs the preflight: for every caption, it scores every V2
// candidate window on each side, keeps the best score per side, and
// accumulates those totals across the document. If below's total exceeds
// above's by more than the configured margin, the vote locks to below.
// Figures and tables are voted on separately, since spec.md gives them
// different margins and the anchor scoring formulas differ too.
func GlobalVote(cfg Config, captionsByPage map[int]PageContext, captions []model.Caption) map[model.AttachmentKind]Vote {
	out := map[model.AttachmentKind]Vote{
		model.KindFigure: {Decided: false},
		model.KindTable:  {Decided: false},
	}
	if cfg.GlobalAnchor == "off" {
		return out
	}

	var aboveTotal, belowTotal [2]float64 // index by kind rank
	for _, cap := range captions {
		pc, ok := captionsByPage[cap.Page()]
		if !ok {
			continue
		}
		prevBot, nextTop := pc.neighbours(cap)
		aboveBest, belowBest := negInf, negInf
		for _, h := range scanHeightsFor(cfg) {
			if win, ok := candidateWindow(cfg, cap, pc, model.SideAbove, h, prevBot, nextTop); ok {
				if sc := windowScoreV2(cap, pc, win); sc > aboveBest {
					aboveBest = sc
				}
			}
			if win, ok := candidateWindow(cfg, cap, pc, model.SideBelow, h, prevBot, nextTop); ok {
				if sc := windowScoreV2(cap, pc, win); sc > belowBest {
					belowBest = sc
				}
			}
		}
		rank := cap.Kind().KindRank()
		if aboveBest > negInf {
			aboveTotal[rank] += aboveBest
		}
		if belowBest > negInf {
			belowTotal[rank] += belowBest
		}
	}

	figMargin := cfg.GlobalAnchorMarginFigure
	tblMargin := cfg.GlobalAnchorMarginTable
	if belowTotal[model.KindFigure.KindRank()] > aboveTotal[model.KindFigure.KindRank()]*(1+figMargin) {
		out[model.KindFigure] = Vote{Decided: true, Side: model.SideBelow}
	}
	if belowTotal[model.KindTable.KindRank()] > aboveTotal[model.KindTable.KindRank()]*(1+tblMargin) {
		out[model.KindTable] = Vote{Decided: true, Side: model.SideBelow}
	}
	return out
}
