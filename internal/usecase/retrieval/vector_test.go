package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsurugi-io/kensaku/internal/store"
)

func TestVectorSearch_ScoresAndSnippets(t *testing.T) {
	d1 := doc(1, "Near", "", "closest document body")
	d2 := doc(2, "Far", "", "distant document body")

	index := &mockIndex{candidates: []store.Candidate{
		cand(d1, 0.1),
		cand(d2, 1.2), // distance beyond 1: score clamps to 0
	}}
	s := NewVectorSearcher(index, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.Equal(t, "closest document body", results[0].MatchedSnippet)
	assert.Equal(t, 0.0, results[1].Score)
}

func TestVectorSearch_EmptyQueryAndLimit(t *testing.T) {
	s := NewVectorSearcher(&mockIndex{}, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "  ", 5)
	require.NoError(t, err)
	assert.Nil(t, results)

	results, err = s.Search(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestVectorSearch_EmbedError(t *testing.T) {
	s := NewVectorSearcher(&mockIndex{}, &mockEmbedder{err: assert.AnError})

	_, err := s.Search(context.Background(), "query", 5)
	require.Error(t, err)
}

func TestVectorSearch_IndexError(t *testing.T) {
	s := NewVectorSearcher(&mockIndex{err: assert.AnError}, &mockEmbedder{vec: []float32{1, 0}})

	_, err := s.Search(context.Background(), "query", 5)
	require.Error(t, err)
}
