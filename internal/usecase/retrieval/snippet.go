package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

const (
	snippetMaxLength   = 300
	snippetMinSentence = 10
)

// sentenceTerminators covers Japanese and ASCII sentence boundaries.
var sentenceTerminators = []string{"。", ". ", "! ", "? ", "！", "？", "\n"}

// extractSnippet returns the sentence with the highest query-token overlap,
// falling back to a truncated text prefix when nothing overlaps.
func extractSnippet(text string, tokens []string) string {
	var best string
	bestScore := 0

	for _, sentence := range splitSentences(text) {
		if utf8.RuneCountInString(strings.TrimSpace(sentence)) < snippetMinSentence {
			continue
		}
		lower := strings.ToLower(sentence)
		score := 0
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = sentence
		}
	}

	if best == "" {
		best = text
	}
	return domain.Truncate(best, snippetMaxLength)
}

// splitSentences performs a naive sentence split on terminal punctuation.
func splitSentences(text string) []string {
	sentences := []string{text}
	for _, term := range sentenceTerminators {
		var next []string
		for _, s := range sentences {
			next = append(next, strings.Split(s, term)...)
		}
		sentences = next
	}
	return sentences
}
