package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

// LexicalSearcher is the precision-oriented retrieval stage. It runs an
// exact-title pre-pass over the whole corpus, then re-ranks nearest-neighbor
// candidates with title-match, diversity, and relevance heuristics.
type LexicalSearcher struct {
	docs   DocumentReader
	index  VectorIndex
	embed  Embedder
	policy RelevancePolicy
	params Params
	logger *zap.Logger
}

// NewLexicalSearcher creates the lexical stage with the curated relevance policy.
func NewLexicalSearcher(
	docs DocumentReader, index VectorIndex, embed Embedder,
	params Params, logger *zap.Logger,
) *LexicalSearcher {
	return &LexicalSearcher{
		docs:   docs,
		index:  index,
		embed:  embed,
		policy: NewCuratedRelevancePolicy(),
		params: params,
		logger: logger,
	}
}

// WithRelevancePolicy replaces the content-relevance policy.
func (s *LexicalSearcher) WithRelevancePolicy(policy RelevancePolicy) *LexicalSearcher {
	s.policy = policy
	return s
}

// Search returns up to limit results ordered by descending final score.
// When no candidate clears the quality gates it returns an empty list:
// precision over recall, an explicit policy rather than a fault.
func (s *LexicalSearcher) Search(
	ctx context.Context, query string, limit int, debug bool,
) ([]domain.ScoredResult, error) {
	tokens := queryTokens(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	// Stage A: exact title pass over the full corpus. Consumed ids are
	// excluded from the similarity pass so a document is emitted once.
	docs, err := s.docs.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan titles: %w", err)
	}

	var results []domain.ScoredResult
	consumed := make(map[int]struct{})
	categoriesSeen := make(map[string]int)

	for _, doc := range docs {
		if !titleContainsToken(doc.Title, tokens) {
			continue
		}
		consumed[doc.ID] = struct{}{}
		categoriesSeen[doc.Category]++
		results = append(results, domain.ScoredResult{
			Document:       doc,
			Score:          s.params.TitleExactScore,
			MatchedSnippet: extractSnippet(doc.Text(), tokens),
			Highlights:     tokens,
		})
		if debug {
			s.logger.Debug("title match",
				zap.Int("document_id", doc.ID),
				zap.String("title", doc.Title),
			)
		}
	}

	// Stage B: similarity pass over an extended candidate set.
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	fanout := limit * s.params.CandidateFanout
	if fanout > s.params.MaxCandidates {
		fanout = s.params.MaxCandidates
	}
	candidates, err := s.index.Query(ctx, emb.Embedding, fanout)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	var acceptedTitleSets []map[string]struct{}
	highQuality := 0

	for _, cand := range candidates {
		doc := cand.Document
		if _, ok := consumed[doc.ID]; ok {
			continue
		}

		similarity := 1.0 - cand.Distance
		titleBonus, hasTitleMatch := s.titleBonus(tokens, doc.Title)

		// Content-relevance gate: a candidate whose body never mentions the
		// query vocabulary needs very high similarity to survive.
		if !s.contentRelevant(tokens, doc.Text()) && similarity < s.params.RelevanceOverride {
			if debug {
				s.logger.Debug("rejected by content relevance", zap.Int("document_id", doc.ID))
			}
			continue
		}

		threshold := s.params.BaseThreshold
		if hasTitleMatch {
			threshold = s.params.TitleMatchThreshold
		}
		if similarity < threshold {
			if debug {
				s.logger.Debug("rejected by similarity gate",
					zap.Int("document_id", doc.ID),
					zap.Float64("similarity", similarity),
					zap.Float64("threshold", threshold),
				)
			}
			continue
		}
		highQuality++

		// Diversity cap: a category already holding CategoryCap accepted
		// results contributes nothing further, whatever the score.
		if categoriesSeen[doc.Category] >= s.params.CategoryCap {
			continue
		}

		diversityBonus := 0.0
		if doc.Category != "" && categoriesSeen[doc.Category] == 0 {
			diversityBonus = s.params.DiversityBonus
		}

		titleWords := wordSet(doc.Title)
		duplicatePenalty := 0.0
		for _, seen := range acceptedTitleSets {
			if overlapRatio(titleWords, seen) > s.params.DuplicateOverlap {
				duplicatePenalty = s.params.DuplicatePenalty
				break
			}
		}

		finalScore := similarity + titleBonus + diversityBonus - duplicatePenalty
		results = append(results, domain.ScoredResult{
			Document:       doc,
			Score:          finalScore,
			MatchedSnippet: extractSnippet(doc.Text(), tokens),
			Highlights:     tokens,
		})
		categoriesSeen[doc.Category]++
		acceptedTitleSets = append(acceptedTitleSets, titleWords)
	}

	totalQuality := len(consumed) + highQuality
	if totalQuality == 0 {
		s.logger.Warn("no relevant documents, returning empty results",
			zap.String("query", query))
		return nil, nil
	}
	if totalQuality < s.params.MinQualityResults {
		s.logger.Warn("low quality search results",
			zap.String("query", query),
			zap.Int("quality_results", totalQuality),
		)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// titleBonus computes the Stage-B title bonus: TitleFullBonus once for the
// first query token fully contained in the title, plus TitlePartialBonus per
// query token with a partial overlap against any title word.
func (s *LexicalSearcher) titleBonus(tokens []string, title string) (float64, bool) {
	titleLower := strings.ToLower(title)
	titleWords := strings.Fields(titleLower)

	bonus := 0.0
	hasFullMatch := false
	for _, tok := range tokens {
		if strings.Contains(titleLower, tok) {
			bonus += s.params.TitleFullBonus
			hasFullMatch = true
			break
		}
	}
	for _, tok := range tokens {
		for _, tw := range titleWords {
			if strings.Contains(tw, tok) || strings.Contains(tok, tw) {
				bonus += s.params.TitlePartialBonus
				break
			}
		}
	}
	return bonus, hasFullMatch
}

// contentRelevant reports whether any query token of meaningful length is
// about the document text per the relevance policy.
func (s *LexicalSearcher) contentRelevant(tokens []string, text string) bool {
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if s.policy.IsContentRelevant(tok, text) {
			return true
		}
	}
	return false
}

// queryTokens lowercases and splits the query on whitespace.
func queryTokens(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

func titleContainsToken(title string, tokens []string) bool {
	titleLower := strings.ToLower(title)
	for _, tok := range tokens {
		if strings.Contains(titleLower, tok) {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// overlapRatio is the share of a's words also present in b.
func overlapRatio(a, b map[string]struct{}) float64 {
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	denom := len(a)
	if denom == 0 {
		denom = 1
	}
	return float64(shared) / float64(denom)
}
