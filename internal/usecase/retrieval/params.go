package retrieval

// Params are the ranking policy knobs. The defaults are tuning choices
// carried over from production use, not derived optima; tests exercise the
// engine under other values through this struct.
type Params struct {
	// Exact-title pre-pass score. Deliberately above any similarity-based
	// score so verbatim title hits always outrank them.
	TitleExactScore float64

	// Stage-B title bonuses.
	TitleFullBonus    float64 // a query token fully contained in the title
	TitlePartialBonus float64 // per query-token/title-word partial overlap

	// Similarity gates. A candidate with a title match passes at the lower
	// threshold; a candidate failing the content-relevance check is rejected
	// outright unless its similarity reaches RelevanceOverride.
	TitleMatchThreshold float64
	BaseThreshold       float64
	RelevanceOverride   float64

	// Diversity and duplicate handling.
	CategoryCap      int     // max accepted results per category
	DiversityBonus   float64 // first result of a new category
	DuplicateOverlap float64 // title word-set overlap ratio treated as duplicate
	DuplicatePenalty float64

	// Quality floor: below this many high-quality results a warning is
	// logged; at zero the stage returns nothing instead of noise.
	MinQualityResults int

	// Candidate fan-out for the similarity pass: limit*CandidateFanout,
	// capped at MaxCandidates.
	CandidateFanout int
	MaxCandidates   int

	// Fusion.
	SparseWeight  float64
	DenseWeight   float64
	RRFConstant   int
	WeightedBlend float64 // share of the weighted score vs the RRF score

	// DefaultLimit applies when the caller passes a non-positive limit.
	DefaultLimit int
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		TitleExactScore:     2.0,
		TitleFullBonus:      0.5,
		TitlePartialBonus:   0.2,
		TitleMatchThreshold: 0.4,
		BaseThreshold:       0.6,
		RelevanceOverride:   0.7,
		CategoryCap:         3,
		DiversityBonus:      0.05,
		DuplicateOverlap:    0.6,
		DuplicatePenalty:    0.1,
		MinQualityResults:   2,
		CandidateFanout:     4,
		MaxCandidates:       100,
		SparseWeight:        0.6,
		DenseWeight:         0.4,
		RRFConstant:         60,
		WeightedBlend:       0.7,
		DefaultLimit:        10,
	}
}
