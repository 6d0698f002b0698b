package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"trims and collapses whitespace", "  a\n\nb\tc  ", "a b c"},
		{"full-width ascii to half-width", "Ｐｙｔｈｏｎ", "Python"},
		{"full-width digits", "ＲＯＳ２", "ROS2"},
		{"plain text unchanged", "Ubuntuのインストール", "Ubuntuのインストール"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestProcess_JapaneseInstallQuestion(t *testing.T) {
	p := NewProcessor()

	res := p.Process("Ubuntuのインストール方法を教えて")

	assert.Equal(t, "Ubuntuのインストール方法を教えて", res.Normalized)
	assert.Contains(t, res.Keywords, "Ubuntu")
	assert.Contains(t, res.Keywords, "インストール")
	// 方法 and 教えて are question noise, not keywords
	assert.NotContains(t, res.Keywords, "方法")

	assert.Equal(t, []string{"ubuntu", "install"}, res.TechnicalTerms)
	assert.Contains(t, res.ExpandedKeywords, "ubuntu")
	assert.Contains(t, res.ExpandedKeywords, "セットアップ")

	require.NotEmpty(t, res.CandidateQueries)
	assert.LessOrEqual(t, len(res.CandidateQueries), 3)
	assert.Contains(t, res.CandidateQueries, "Ubuntu インストール")
	assert.Equal(t, res.CandidateQueries[0], res.RecommendedQuery)
}

func TestProcess_EnglishQuestionWordsDropped(t *testing.T) {
	p := NewProcessor()

	res := p.Process("How to install Docker")

	assert.NotContains(t, res.Keywords, "How")
	assert.NotContains(t, res.Keywords, "to")
	assert.Contains(t, res.Keywords, "install")
	assert.Contains(t, res.Keywords, "Docker")
	assert.Contains(t, res.TechnicalTerms, "docker")
}

func TestProcess_PriorityTermsMerged(t *testing.T) {
	p := NewProcessor()

	res := p.Process("ragとesaについて")

	require.NotEmpty(t, res.CandidateQueries)
	// The privileged pair leads the candidate list and the recommendation.
	assert.Contains(t, res.RecommendedQuery, "rag")
	assert.Contains(t, res.RecommendedQuery, "esa")
	assert.Equal(t, res.CandidateQueries[0], res.RecommendedQuery)
}

func TestProcess_EmptyQuery(t *testing.T) {
	p := NewProcessor()

	res := p.Process("   ")

	assert.Empty(t, res.Normalized)
	assert.Empty(t, res.Keywords)
	assert.Empty(t, res.CandidateQueries)
	assert.Empty(t, res.RecommendedQuery)
}

func TestProcess_Deterministic(t *testing.T) {
	p := NewProcessor()
	first := p.Process("PythonでDockerとRAGを使った開発")

	for i := 0; i < 20; i++ {
		res := p.Process("PythonでDockerとRAGを使った開発")
		assert.Equal(t, first, res)
	}
}

func TestMatchSynonym(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     string
		resolved bool
	}{
		{"exact ascii variant", "ubuntu", "ubuntu", true},
		{"katakana variant", "パイソン", "python", true},
		{"setup resolves to install", "setup", "install", true},
		{"ros does not collide with rag", "ros", "ros", true},
		{"short unknown token", "xyz", "", false},
		{"partial within length bound", "installs", "install", true},
		{"partial beyond length bound", "pythonista", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchSynonym(tt.in)
			assert.Equal(t, tt.resolved, ok)
			if tt.resolved {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolveTechnicalTerms_UnresolvedButTechnical(t *testing.T) {
	p := NewProcessor()

	// Structurally technical words pass through even without a synonym entry.
	terms := p.resolveTechnicalTerms([]string{"kubernetes", "ros2", "deep-learning", "の"})

	assert.Contains(t, terms, "kubernetes")
	assert.Contains(t, terms, "ros2")
	assert.Contains(t, terms, "deep-learning")
	assert.NotContains(t, terms, "の")
}

func TestExpandSynonyms(t *testing.T) {
	expanded := expandSynonyms([]string{"docker", "kubernetes"})

	assert.Contains(t, expanded, "docker")
	assert.Contains(t, expanded, "コンテナ")
	assert.Contains(t, expanded, "container")
	// Unknown terms survive unexpanded.
	assert.Contains(t, expanded, "kubernetes")
}

func TestPickRecommended(t *testing.T) {
	assert.Equal(t, "fallback", pickRecommended(nil, "fallback"))
	assert.Equal(t, "docker install", pickRecommended([]string{"docker install"}, "fallback"))
	// A collapsed candidate is worse than the normalized query.
	assert.Equal(t, "fallback", pickRecommended([]string{"ab"}, "fallback"))
}
