// Package caption implements spec.md §4.3: enumerating every caption-like
// text line on every page into [model.CaptionCandidate]s, scoring them on
// the four axes the spec defines, and selecting the best candidate per
// (kind, ident).
package caption

import "regexp"

// figureRe and tableRe implement spec.md §4.3's regex list. Go's RE2 has
// no lookahead, so the trailing "(\s*[.:，,]|\b)" alternative is expressed
// as a plain word boundary/punctuation class rather than the original
// idents.py's lookahead-based version; behaviourally equivalent for the
// ASCII and the handful of CJK punctuation marks the spec names.
var (
	figureRe = regexp.MustCompile(`(?i)^(Extended Data |Supplementary )?(Figure|Fig\.?)\s*(S\s*)?([A-Z]?\d+|[IVXLCDM]+)([.:，,]|\s|$)`)
	tableRe  = regexp.MustCompile(`(?i)^(Extended Data |Supplementary )?(Table)\s*(S\s*)?([A-Z]?\d+|[IVXLCDM]+)([.:，,]|\s|$)`)

	figureTightCJKRe = regexp.MustCompile(`^图\s*(S?\d+|[IVXLCDM]+)`)
	tableTightCJKRe  = regexp.MustCompile(`^表\s*(S?\d+|[IVXLCDM]+)`)
)

// matchResult is the outcome of testing one line against the caption
// regexes.
type matchResult struct {
	Kind         Kind
	IdentText    string
	Supplementary bool
	MatchLen     int
}

// Kind mirrors model.AttachmentKind, kept local so this package doesn't
// need to import model just to classify a regex match.
type Kind int

const (
	KindFigure Kind = iota
	KindTable
)

// matchLine tests line against every caption regex in spec.md §4.3's
// order (figure, table, tight-CJK figure, tight-CJK table) and returns the
// first match.
func matchLine(line string) (matchResult, bool) {
	if m := figureRe.FindStringSubmatch(line); m != nil {
		supp := m[3] != ""
		return matchResult{Kind: KindFigure, IdentText: identText(m[3], m[4], supp), Supplementary: supp, MatchLen: len(m[0])}, true
	}
	if m := tableRe.FindStringSubmatch(line); m != nil {
		supp := m[3] != ""
		return matchResult{Kind: KindTable, IdentText: identText(m[3], m[4], supp), Supplementary: supp, MatchLen: len(m[0])}, true
	}
	if m := figureTightCJKRe.FindStringSubmatch(line); m != nil {
		return matchResult{Kind: KindFigure, IdentText: m[1], MatchLen: len(m[0])}, true
	}
	if m := tableTightCJKRe.FindStringSubmatch(line); m != nil {
		return matchResult{Kind: KindTable, IdentText: m[1], MatchLen: len(m[0])}, true
	}
	return matchResult{}, false
}

// identText reassembles the raw identifier text ident.Parse expects,
// restoring the "S" prefix the regex split out into its own group.
func identText(sPrefix, id string, supplementary bool) string {
	if supplementary {
		return "S" + id
	}
	return id
}
