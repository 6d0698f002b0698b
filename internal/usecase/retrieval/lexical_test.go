package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tsurugi-io/kensaku/internal/domain"
	"github.com/tsurugi-io/kensaku/internal/store"
)

func newLexical(reader *mockReader, index *mockIndex, embed *mockEmbedder) *LexicalSearcher {
	return NewLexicalSearcher(reader, index, embed, DefaultParams(), zap.NewNop()).
		WithRelevancePolicy(allowAllPolicy{})
}

func TestLexicalSearch_ExactTitleMatchWinsAndIsConsumed(t *testing.T) {
	d1 := doc(1, "Ubuntu インストール ガイド", "os", "apt での手順")
	d2 := doc(2, "Python 入門", "lang", "python の基礎")

	reader := &mockReader{docs: []domain.Document{d1, d2}}
	index := &mockIndex{candidates: []store.Candidate{
		cand(d1, 0.1), // already consumed by the title pass
		cand(d2, 0.3),
	}}
	s := newLexical(reader, index, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "ubuntu", 5, false)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0].Document.ID)
	assert.Equal(t, 2.0, results[0].Score)
	assert.Equal(t, []string{"ubuntu"}, results[0].Highlights)

	// d2 arrives through the similarity pass: 1 − 0.3 = 0.7, no bonuses.
	assert.Equal(t, 2, results[1].Document.ID)
	assert.InDelta(t, 0.75, results[1].Score, 1e-9) // 0.7 + 0.05 diversity (new category)
}

func TestLexicalSearch_TitleMatchLowersThreshold(t *testing.T) {
	// Neither doc is in the corpus reader, so both go through the
	// similarity pass.
	dA := doc(10, "Dockerfile ベストプラクティス", "dev", "docker build の話")
	dB := doc(11, "Kubernetes 運用", "ops", "cluster の話")

	reader := &mockReader{}
	index := &mockIndex{candidates: []store.Candidate{
		cand(dA, 0.55), // similarity 0.45: passes only with a title match
		cand(dB, 0.55),
	}}
	s := newLexical(reader, index, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "docker", 5, false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 10, results[0].Document.ID)
	// 0.45 similarity + 0.5 full title bonus + 0.2 partial + 0.05 diversity
	assert.InDelta(t, 1.2, results[0].Score, 1e-9)
}

func TestLexicalSearch_CategoryCap(t *testing.T) {
	docs := []store.Candidate{
		cand(doc(1, "Go slices", "dev", "text"), 0.10),
		cand(doc(2, "Go maps", "dev", "text"), 0.12),
		cand(doc(3, "Go channels", "dev", "text"), 0.14),
		cand(doc(4, "Go generics", "dev", "text"), 0.16),
	}
	s := newLexical(&mockReader{}, &mockIndex{candidates: docs}, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "server", 10, false)
	require.NoError(t, err)

	// Fourth dev doc is dropped by the category cap even though it passes
	// every gate.
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotEqual(t, 4, r.Document.ID)
	}
}

func TestLexicalSearch_DuplicateTitlePenalty(t *testing.T) {
	dX := doc(1, "Ubuntu Install Guide", "a", "text")
	dY := doc(2, "Ubuntu Install Manual", "b", "text")

	index := &mockIndex{candidates: []store.Candidate{
		cand(dX, 0.2),
		cand(dY, 0.2),
	}}
	s := newLexical(&mockReader{}, index, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "server", 5, false)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// dY shares 2 of 3 title words with dX (> 0.6) and pays the penalty.
	assert.Equal(t, 1, results[0].Document.ID)
	assert.InDelta(t, 0.85, results[0].Score, 1e-9) // 0.8 + 0.05
	assert.Equal(t, 2, results[1].Document.ID)
	assert.InDelta(t, 0.75, results[1].Score, 1e-9) // 0.8 + 0.05 - 0.1
}

func TestLexicalSearch_ContentRelevanceGate(t *testing.T) {
	// Default curated policy: for "ubuntu" the text must mention ubuntu,
	// linux, debian, or apt.
	offTopic := doc(1, "Windows 環境設定", "os", "Windows のレジストリの話")
	highSim := doc(2, "OS 比較", "os", "Windows と macOS の比較")

	index := &mockIndex{candidates: []store.Candidate{
		cand(offTopic, 0.35), // similarity 0.65 < override 0.7: rejected
		cand(highSim, 0.25),  // similarity 0.75: override admits it
	}}
	s := NewLexicalSearcher(&mockReader{}, index, &mockEmbedder{vec: []float32{1, 0}},
		DefaultParams(), zap.NewNop())

	results, err := s.Search(context.Background(), "ubuntu", 5, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Document.ID)
}

func TestLexicalSearch_EmptyOnZeroQuality(t *testing.T) {
	index := &mockIndex{candidates: []store.Candidate{
		cand(doc(1, "unrelated", "", "text"), 0.5), // similarity 0.5 < 0.6
	}}
	s := newLexical(&mockReader{}, index, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "server", 5, false)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLexicalSearch_SortedAndTruncated(t *testing.T) {
	index := &mockIndex{candidates: []store.Candidate{
		cand(doc(1, "a b c", "c1", "text"), 0.30),
		cand(doc(2, "d e f", "c2", "text"), 0.10),
		cand(doc(3, "g h i", "c3", "text"), 0.20),
	}}
	s := newLexical(&mockReader{}, index, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "server", 2, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Document.ID)
	assert.Equal(t, 3, results[1].Document.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestLexicalSearch_EmptyQueryOrLimit(t *testing.T) {
	s := newLexical(&mockReader{}, &mockIndex{}, &mockEmbedder{vec: []float32{1, 0}})

	results, err := s.Search(context.Background(), "   ", 5, false)
	require.NoError(t, err)
	assert.Nil(t, results)

	results, err = s.Search(context.Background(), "server", 0, false)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestLexicalSearch_FanoutCapped(t *testing.T) {
	index := &mockIndex{}
	s := newLexical(&mockReader{}, index, &mockEmbedder{vec: []float32{1, 0}})

	_, err := s.Search(context.Background(), "server", 10, false)
	require.NoError(t, err)
	assert.Equal(t, 40, index.gotK) // limit * CandidateFanout

	_, err = s.Search(context.Background(), "server", 50, false)
	require.NoError(t, err)
	assert.Equal(t, 100, index.gotK) // capped at MaxCandidates
}

func TestLexicalSearch_EmbedError(t *testing.T) {
	s := newLexical(&mockReader{}, &mockIndex{}, &mockEmbedder{err: assert.AnError})

	_, err := s.Search(context.Background(), "server", 5, false)
	require.Error(t, err)
}
