package domain

// ScoredResult is a single hit from one retrieval stage.
//
// The score scale is stage-specific: the lexical stage adds title and
// diversity bonuses on top of cosine similarity, so its scores are unbounded
// above zero; the vector stage clamps to [0, 1].
type ScoredResult struct {
	Document       Document
	Score          float64
	MatchedSnippet string   // best-matching sentence, or a body prefix
	Highlights     []string // terms the stage matched on
}

// Contribution marks which retrieval stage produced a fused result.
type Contribution string

// Contribution values.
const (
	ContributionLexical Contribution = "lexical_only"
	ContributionVector  Contribution = "vector_only"
	ContributionBoth    Contribution = "both"
)

// HybridResult is a fused search hit with per-stage score breakdown.
// Produced only by the fusion engine and never persisted.
type HybridResult struct {
	DocumentID     int
	Title          string
	ContentPreview string
	LexicalScore   float64
	VectorScore    float64
	HybridScore    float64
	Contribution   Contribution
}
