package retrieval

import (
	"sort"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

// fusionEntry accumulates one document's standing across both stage lists.
// A zero rank means the document is absent from that list, which contributes
// nothing to the RRF sum (the rank would be infinite).
type fusionEntry struct {
	doc      domain.Document
	lexScore float64
	vecScore float64
	lexRank  int
	vecRank  int
}

// Fuse merges the two stage lists by document id using reciprocal rank
// fusion blended with weighted raw scores:
//
//	rrf      = 1/(k + lexical_rank) + 1/(k + vector_rank)
//	weighted = sparse_weight*lexical_score + dense_weight*vector_score
//	hybrid   = blend*weighted + (1-blend)*rrf
//
// Weights are taken as given; the engine does not normalize them. The output
// never contains the same document twice and is sorted by hybrid score
// descending, truncated to limit.
func Fuse(lexical, vector []domain.ScoredResult, limit int, p Params) []domain.HybridResult {
	merged := make(map[int]*fusionEntry, len(lexical)+len(vector))
	order := make([]int, 0, len(lexical)+len(vector))

	entry := func(doc domain.Document) *fusionEntry {
		e, ok := merged[doc.ID]
		if !ok {
			e = &fusionEntry{doc: doc}
			merged[doc.ID] = e
			order = append(order, doc.ID)
		}
		return e
	}

	for i, r := range lexical {
		e := entry(r.Document)
		e.lexScore = r.Score
		e.lexRank = i + 1
	}
	for i, r := range vector {
		e := entry(r.Document)
		e.vecScore = r.Score
		e.vecRank = i + 1
	}

	k := float64(p.RRFConstant)
	results := make([]domain.HybridResult, 0, len(order))
	for _, id := range order {
		e := merged[id]

		rrf := 0.0
		if e.lexRank > 0 {
			rrf += 1.0 / (k + float64(e.lexRank))
		}
		if e.vecRank > 0 {
			rrf += 1.0 / (k + float64(e.vecRank))
		}
		weighted := p.SparseWeight*e.lexScore + p.DenseWeight*e.vecScore
		hybrid := p.WeightedBlend*weighted + (1-p.WeightedBlend)*rrf

		contribution := domain.ContributionBoth
		switch {
		case e.lexRank == 0:
			contribution = domain.ContributionVector
		case e.vecRank == 0:
			contribution = domain.ContributionLexical
		}

		results = append(results, domain.HybridResult{
			DocumentID:     e.doc.ID,
			Title:          e.doc.Title,
			ContentPreview: e.doc.Preview(),
			LexicalScore:   e.lexScore,
			VectorScore:    e.vecScore,
			HybridScore:    hybrid,
			Contribution:   contribution,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].HybridScore != results[j].HybridScore {
			return results[i].HybridScore > results[j].HybridScore
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
