package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

// VectorSearcher is the recall-oriented retrieval stage: embed the query,
// take the nearest neighbors, convert distance to similarity. No gating, no
// bonuses, no diversity logic; the heuristics all live in the lexical stage.
type VectorSearcher struct {
	index VectorIndex
	embed Embedder
}

// NewVectorSearcher creates the vector stage.
func NewVectorSearcher(index VectorIndex, embed Embedder) *VectorSearcher {
	return &VectorSearcher{index: index, embed: embed}
}

// Search returns up to limit nearest neighbors with scores in [0, 1].
func (s *VectorSearcher) Search(ctx context.Context, query string, limit int) ([]domain.ScoredResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	candidates, err := s.index.Query(ctx, emb.Embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	results := make([]domain.ScoredResult, 0, len(candidates))
	for _, cand := range candidates {
		score := 1.0 - cand.Distance
		if score < 0 {
			score = 0
		}
		results = append(results, domain.ScoredResult{
			Document:       cand.Document,
			Score:          score,
			MatchedSnippet: domain.Truncate(cand.Document.Text(), snippetMaxLength),
		})
	}
	return results, nil
}
