package retrieval

import "strings"

// relatedTerms maps high-precision technical tokens to the vocabulary a
// document must actually use to count as being about them. A plain substring
// test lets "Ubuntu install" match an article that merely name-drops another
// OS; requiring one of the related terms avoids that.
var relatedTerms = map[string][]string{
	"ubuntu": {"ubuntu", "linux", "debian", "apt"},
	"linux":  {"linux", "unix", "ubuntu", "centos", "redhat"},
	"docker": {"docker", "container", "dockerfile", "コンテナ"},
	"python": {"python", "pip", "django", "flask", "pandas"},
}

// CuratedRelevancePolicy is the default RelevancePolicy: curated related-term
// matching for known technical tokens, bare substring match for everything else.
type CuratedRelevancePolicy struct {
	related map[string][]string
}

// NewCuratedRelevancePolicy returns the default policy.
func NewCuratedRelevancePolicy() *CuratedRelevancePolicy {
	return &CuratedRelevancePolicy{related: relatedTerms}
}

// IsContentRelevant reports whether the document text is about the token.
func (p *CuratedRelevancePolicy) IsContentRelevant(token, text string) bool {
	token = strings.ToLower(token)
	textLower := strings.ToLower(text)

	if related, ok := p.related[token]; ok {
		for _, term := range related {
			if strings.Contains(textLower, term) {
				return true
			}
		}
		return false
	}
	return strings.Contains(textLower, token)
}
