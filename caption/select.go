package caption

import (
	"github.com/tsawler/attachcore/model"
)

// SelectionThreshold is the minimum total score a candidate needs to be
// selected rather than marked uncertain, per spec.md §4.3. §9's open
// question ("is score==25 acceptable or uncertain") is resolved in
// DESIGN.md: the threshold is inclusive, so exactly 25 is accepted.
const SelectionThreshold = 25.0

// Uncertain records an (kind, ident) whose best candidate scored below
// [SelectionThreshold]; spec.md §4.3 says to emit no attachment for it and
// log a warning.
type Uncertain struct {
	Kind  model.AttachmentKind
	Ident model.Identifier
	Page  int
	Best  float64
}

// groupKey identifies a caption slot: (kind, ident) normally, or (kind,
// ident, page) when AllowContinued is set.
type groupKey struct {
	kind  model.AttachmentKind
	ident model.Identifier
	page  int
}

// familyKey identifies a (kind, ident) regardless of page, used to find
// each family's first appearance when AllowContinued groups by page.
type familyKey struct {
	kind  model.AttachmentKind
	ident model.Identifier
}

// Select picks the best candidate per (kind, ident) -- or per (kind,
// ident, page) when allowContinued is true -- and returns the chosen
// [model.Caption]s in document order plus the ids that fell below
// [SelectionThreshold].
func Select(candidates []model.CaptionCandidate, allowContinued bool) ([]model.Caption, []Uncertain) {
	best := make(map[groupKey]model.CaptionCandidate)
	order := make(map[groupKey]int)
	var keys []groupKey

	for i, c := range candidates {
		gk := groupKey{kind: c.Kind, ident: c.Ident}
		if allowContinued {
			gk.page = c.Page
		}
		if cur, ok := best[gk]; !ok || c.TotalScore > cur.TotalScore {
			best[gk] = c
		}
		if _, seen := order[gk]; !seen {
			order[gk] = i
			keys = append(keys, gk)
		}
	}

	sortByOrder(keys, order)

	// familyFirst records, per (kind, ident) regardless of page, the
	// document order of that family's earliest page-group -- only later
	// page-groups are continuations, per spec.md §8 scenario 7.
	familyFirst := make(map[familyKey]int)
	for _, gk := range keys {
		fk := familyKey{kind: gk.kind, ident: gk.ident}
		if o, seen := familyFirst[fk]; !seen || order[gk] < o {
			familyFirst[fk] = order[gk]
		}
	}

	var captions []model.Caption
	var uncertain []Uncertain
	for _, gk := range keys {
		c := best[gk]
		if c.TotalScore < SelectionThreshold {
			uncertain = append(uncertain, Uncertain{Kind: gk.kind, Ident: gk.ident, Page: c.Page, Best: c.TotalScore})
			continue
		}
		fk := familyKey{kind: gk.kind, ident: gk.ident}
		isFirst := order[gk] == familyFirst[fk]
		captions = append(captions, model.Caption{
			Candidate: c,
			Continued: allowContinued && !isFirst,
		})
	}
	return captions, uncertain
}

// sortByOrder insertion-sorts keys by first document appearance. Groups
// number in the dozens at most, so an O(n^2) sort avoids pulling in
// sort.Slice for a handful of elements.
func sortByOrder(keys []groupKey, order map[groupKey]int) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && order[keys[j-1]] > order[keys[j]]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
}
