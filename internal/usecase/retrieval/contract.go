package retrieval

import (
	"context"

	"github.com/tsurugi-io/kensaku/internal/domain"
	"github.com/tsurugi-io/kensaku/internal/store"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// DocumentReader supplies the corpus snapshot for the exact-title pre-pass.
type DocumentReader interface {
	All(ctx context.Context) ([]domain.Document, error)
}

// VectorIndex answers nearest-neighbor queries over document embeddings.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]store.Candidate, error)
}

// RelevancePolicy decides whether a query token is genuinely about the
// document text. Pluggable: the default policy carries a curated term list
// that is corpus-specific and deliberately not baked into the engine.
type RelevancePolicy interface {
	IsContentRelevant(token, text string) bool
}
