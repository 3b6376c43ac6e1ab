package tables

import (
	"sort"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// TieBreak chooses among overlapping candidates
type TieBreak string

const (
	// TieBreakOverlap keeps the candidate covering the most text-block area
	TieBreakOverlap TieBreak = "overlap"
	// TieBreakArea keeps the largest candidate
	TieBreakArea TieBreak = "area"
	// TieBreakConfidence keeps the most confident candidate
	TieBreakConfidence TieBreak = "confidence"
)

// Valid reports whether the policy is known
func (t TieBreak) Valid() bool {
	switch t {
	case TieBreakOverlap, TieBreakArea, TieBreakConfidence:
		return true
	}
	return false
}

// TextOverlap sums the intersection area between a region and each text block
func TextOverlap(region model.BoundingBox, blocks []model.BoundingBox) int {
	total := 0
	for _, b := range blocks {
		total += region.Intersect(b).Area()
	}
	return total
}

// Resolve keeps the best candidates under the tie-break policy, visiting them
// from best to worst and dropping any that overlap one already kept. A
// candidate competes only with the regions it actually overlaps. The kept
// candidates are returned in their input order.
func Resolve(candidates []Candidate, textBlocks []model.BoundingBox, policy TieBreak) []Candidate {
	ranked := make([]int, len(candidates))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return better(candidates[ranked[i]], candidates[ranked[j]], textBlocks, policy)
	})

	keep := make([]bool, len(candidates))
	var kept []int
	for _, i := range ranked {
		clash := false
		for _, k := range kept {
			if candidates[i].BoundingBox.Overlaps(candidates[k].BoundingBox) {
				clash = true
				break
			}
		}
		if !clash {
			keep[i] = true
			kept = append(kept, i)
		}
	}

	out := make([]Candidate, 0, len(kept))
	for i, c := range candidates {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

// better reports whether a beats b. Each policy falls back to the others in a
// fixed order; a full tie keeps the earlier candidate.
func better(a, b Candidate, blocks []model.BoundingBox, policy TieBreak) bool {
	overlap := func(c Candidate) float64 { return float64(TextOverlap(c.BoundingBox, blocks)) }
	area := func(c Candidate) float64 { return float64(c.BoundingBox.Area()) }
	conf := func(c Candidate) float64 { return c.Confidence }

	var keys []func(Candidate) float64
	switch policy {
	case TieBreakArea:
		keys = []func(Candidate) float64{area, overlap, conf}
	case TieBreakConfidence:
		keys = []func(Candidate) float64{conf, overlap, area}
	default:
		keys = []func(Candidate) float64{overlap, area, conf}
	}

	for _, key := range keys {
		ka, kb := key(a), key(b)
		if ka != kb {
			return ka > kb
		}
	}
	return false
}
