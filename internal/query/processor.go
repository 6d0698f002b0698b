// Package query turns raw natural-language questions into search-ready
// keyword queries. It extracts candidate tokens in three passes (ASCII runs,
// katakana runs, known technical surface forms), resolves them against a
// synonym table, and builds a short list of candidate search strings.
package query

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Result is the output of one Process call. Stateless and never persisted.
type Result struct {
	Original         string
	Normalized       string
	Keywords         []string
	TechnicalTerms   []string
	ExpandedKeywords []string
	CandidateQueries []string
	RecommendedQuery string
}

// Processor extracts keywords and builds optimized search queries.
// Safe for concurrent use; all state is read-only after construction.
type Processor struct {
	asciiRun   *regexp.Regexp
	katakana   *regexp.Regexp
	compound   *regexp.Regexp
	surface    []*regexp.Regexp
	structural []*regexp.Regexp
}

// NewProcessor compiles the extraction patterns.
func NewProcessor() *Processor {
	surfaceForms := []string{
		`[Uu]buntu`, `インストール`, `セットアップ`, `設定`,
		`[Pp]ython`, `[Dd]ocker`, `[Rr][Oo][Ss]`, `ラズパイ`,
		`機械学習`, `[Aa][Ii]`, `ディープラーニング`, `深層学習`,
		`ニューラルネットワーク`, `[Gg][Pp][Uu]`, `環境構築`,
	}
	surface := make([]*regexp.Regexp, len(surfaceForms))
	for i, p := range surfaceForms {
		surface[i] = regexp.MustCompile(p)
	}

	return &Processor{
		asciiRun: regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9\-_.]*[a-zA-Z0-9]|[a-zA-Z]`),
		katakana: regexp.MustCompile(`[ァ-ヶー]+`),
		compound: regexp.MustCompile(`[ぁ-んァ-ヶ一-龯]{3,}`),
		surface:  surface,
		structural: []*regexp.Regexp{
			regexp.MustCompile(`^[a-z]+\d+$`),        // python3, ros2
			regexp.MustCompile(`^[a-z]+[-_][a-z]+$`), // deep-learning, machine_learning
			regexp.MustCompile(`^[a-z]{4,}$`),
		},
	}
}

// Process normalizes the query and derives keywords, technical terms, and
// candidate search strings. It never fails; an empty or whitespace-only query
// yields a Result whose RecommendedQuery is the empty normalized query.
func (p *Processor) Process(raw string) Result {
	normalized := Normalize(raw)
	keywords := p.extractKeywords(normalized)
	terms := p.resolveTechnicalTerms(keywords)
	expanded := expandSynonyms(terms)
	candidates := p.buildCandidateQueries(keywords, expanded)

	return Result{
		Original:         raw,
		Normalized:       normalized,
		Keywords:         keywords,
		TechnicalTerms:   terms,
		ExpandedKeywords: expanded,
		CandidateQueries: candidates,
		RecommendedQuery: pickRecommended(candidates, normalized),
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize applies NFKC normalization, collapses whitespace runs (including
// newlines and tabs) to single spaces, and trims the result.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// extractKeywords runs the three extraction passes and dedups case-insensitively.
func (p *Processor) extractKeywords(text string) []string {
	var candidates []string

	candidates = append(candidates, p.asciiRun.FindAllString(text, -1)...)
	candidates = append(candidates, p.katakana.FindAllString(text, -1)...)

	// Japanese compounds are kept only when they contain a technical indicator,
	// otherwise sentence fragments flood the keyword list.
	for _, compound := range p.compound.FindAllString(text, -1) {
		if containsAny(compound, technicalIndicators) {
			candidates = append(candidates, compound)
		}
	}

	for _, re := range p.surface {
		candidates = append(candidates, re.FindAllString(text, -1)...)
	}

	seen := make(map[string]struct{}, len(candidates))
	keywords := make([]string, 0, len(candidates))
	for _, word := range candidates {
		lower := strings.ToLower(word)
		if _, dup := seen[lower]; dup {
			continue
		}
		if utf8.RuneCountInString(word) < 2 {
			continue
		}
		if _, stop := stopWords[lower]; stop {
			continue
		}
		if _, q := questionWords[lower]; q {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

// resolveTechnicalTerms maps keywords to canonical technical terms via the
// synonym table. Keywords that resolve nowhere but still look technical
// (alphanumeric-dash shapes, known domain suffix words) pass through unchanged.
func (p *Processor) resolveTechnicalTerms(keywords []string) []string {
	seen := make(map[string]struct{})
	var terms []string

	add := func(term string) {
		lower := strings.ToLower(term)
		if _, dup := seen[lower]; !dup {
			seen[lower] = struct{}{}
			terms = append(terms, term)
		}
	}

	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		if canonical, ok := matchSynonym(lower); ok {
			add(canonical)
			continue
		}
		if p.looksTechnical(kw) {
			add(kw)
		}
	}
	return terms
}

// matchSynonym resolves a lowercased keyword against the synonym table:
// exact variant match first, then a bounded partial match. The length bounds
// (variant >= 3 runes, length delta <= 2) keep short unrelated tokens such as
// "ros" and "rag" from colliding.
func matchSynonym(kwLower string) (string, bool) {
	for _, base := range canonicalOrder {
		for _, v := range synonyms[base] {
			if strings.ToLower(v) == kwLower {
				return base, true
			}
		}
	}

	kwLen := utf8.RuneCountInString(kwLower)
	if kwLen < 3 {
		return "", false
	}

	for _, base := range canonicalOrder {
		for _, v := range synonyms[base] {
			vLower := strings.ToLower(v)
			vLen := utf8.RuneCountInString(vLower)
			if vLen < 3 {
				continue
			}
			switch {
			case vLen >= 4 && strings.Contains(kwLower, vLower) && kwLen-vLen <= 2:
				return base, true
			case kwLen >= 4 && strings.Contains(vLower, kwLower) && vLen-kwLen <= 2:
				return base, true
			}
		}
	}
	return "", false
}

// looksTechnical reports whether an unresolved keyword structurally resembles
// a technical term.
func (p *Processor) looksTechnical(word string) bool {
	lower := strings.ToLower(word)

	for _, re := range p.structural {
		if re.MatchString(lower) {
			return true
		}
	}
	for _, ext := range []string{".js", ".py", ".cpp", ".java"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return containsAny(word, japaneseTechWords)
}

// expandSynonyms expands canonical terms back to their full variant set for
// recall at the vector stage.
func expandSynonyms(terms []string) []string {
	seen := make(map[string]struct{})
	var expanded []string

	add := func(word string) {
		lower := strings.ToLower(word)
		if _, dup := seen[lower]; !dup {
			seen[lower] = struct{}{}
			expanded = append(expanded, word)
		}
	}

	for _, term := range terms {
		if variants, ok := synonyms[strings.ToLower(term)]; ok {
			for _, v := range variants {
				add(v)
			}
		} else {
			add(term)
		}
	}
	return expanded
}

// buildCandidateQueries assembles candidate search strings in priority order:
// privileged-term merges, plain top-3 expanded keywords, technical terms plus
// an action word, technical terms alone.
func (p *Processor) buildCandidateQueries(keywords, expanded []string) []string {
	var queries []string

	if len(expanded) > 0 {
		var priority []string
		for _, kw := range expanded {
			if inGroup(kw, priorityRAG) || inGroup(kw, priorityESA) {
				priority = append(priority, kw)
			}
		}

		switch {
		case len(priority) > 0:
			ragTerms := filterGroup(priority, "rag", "検索拡張生成")
			esaTerms := filterGroup(priority, "esa", "エサ")
			if len(ragTerms) > 0 && len(esaTerms) > 0 {
				merged := append(capSlice(ragTerms, 2), capSlice(esaTerms, 1)...)
				queries = append(queries, strings.Join(merged, " "))
			} else {
				queries = append(queries, strings.Join(capSlice(priority, 3), " "))
			}
		default:
			queries = append(queries, strings.Join(capSlice(expanded, 3), " "))
		}
	}

	var tech, action []string
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		switch {
		// Exact matches first so "rag"/"ros" are not mistaken for each other.
		case lower == "rag" || lower == "ros" || lower == "esa" || kw == "エサ":
			tech = append(tech, lower)
		case strings.Contains(lower, "ubuntu") || strings.Contains(lower, "python") ||
			strings.Contains(lower, "docker") || isCanonical(lower):
			tech = append(tech, kw)
		case containsAny(lower, actionWords):
			action = append(action, kw)
		}
	}

	switch {
	case len(tech) > 0 && len(action) > 0:
		combined := append(capSlice(tech, 2), capSlice(action, 1)...)
		queries = append(queries, strings.Join(combined, " "))
	case len(tech) > 0:
		queries = append(queries, strings.Join(capSlice(tech, 3), " "))
	}

	seen := make(map[string]struct{}, len(queries))
	unique := queries[:0]
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		unique = append(unique, q)
	}
	if len(unique) > 3 {
		unique = unique[:3]
	}
	return unique
}

// pickRecommended returns the first candidate unless it collapsed below 3
// runes, in which case the normalized query is safer.
func pickRecommended(candidates []string, normalized string) string {
	if len(candidates) == 0 {
		return normalized
	}
	if utf8.RuneCountInString(candidates[0]) < 3 {
		return normalized
	}
	return candidates[0]
}

func isCanonical(lower string) bool {
	_, ok := synonyms[lower]
	return ok
}

func inGroup(word string, group []string) bool {
	lower := strings.ToLower(word)
	for _, g := range group {
		if lower == g {
			return true
		}
	}
	return false
}

// filterGroup keeps priority keywords containing either marker substring.
func filterGroup(priority []string, asciiMarker, jpMarker string) []string {
	var out []string
	for _, kw := range priority {
		if strings.Contains(strings.ToLower(kw), asciiMarker) || strings.Contains(kw, jpMarker) {
			out = append(out, kw)
		}
	}
	return out
}

func capSlice(s []string, n int) []string {
	if len(s) > n {
		return s[:n:n]
	}
	return s[:len(s):len(s)]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
