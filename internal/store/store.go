// Package store defines the storage contracts for the retrieval engine and a
// shared brute-force nearest-neighbor ranker used by its backends.
package store

import (
	"context"
	"math"
	"sort"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

// Candidate is a nearest-neighbor hit with its cosine distance to the query.
type Candidate struct {
	Document domain.Document
	Distance float64
}

// DocumentStore is durable document storage. The retrieval engine only reads
// from it; writes happen through the ingest pipeline.
type DocumentStore interface {
	Put(ctx context.Context, doc domain.Document) error
	Get(ctx context.Context, id int) (domain.Document, error)
	Delete(ctx context.Context, id int) error
	All(ctx context.Context) ([]domain.Document, error)
}

// VectorIndex answers nearest-neighbor queries over document embeddings.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]Candidate, error)
}

// Store combines both contracts behind a single backend.
type Store interface {
	DocumentStore
	VectorIndex
}

// KV is the narrow key-value contract consumed by the embedding cache.
type KV interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte) error
}

// CounterStore is the atomic counter contract consumed by the token budget
// tracker. GetInt64 returns 0 for a missing key.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, delta int64) error
	GetInt64(ctx context.Context, key string) (int64, error)
}

// Rank scores docs against the query vector by cosine distance and returns
// the k nearest, closest first. Documents without an embedding or with a
// mismatched dimension are skipped. Ties break on document ID so that
// identical corpora always rank identically.
func Rank(docs []domain.Document, vector []float32, k int) []Candidate {
	if len(vector) == 0 || k <= 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != len(vector) {
			continue
		}
		candidates = append(candidates, Candidate{
			Document: doc,
			Distance: CosineDistance(vector, doc.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Document.ID < candidates[j].Document.ID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// CosineDistance returns 1 minus the cosine similarity of a and b.
// Zero-magnitude vectors are treated as maximally distant.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
