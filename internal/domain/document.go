package domain

import (
	"strings"
	"time"
)

// PreviewLength is the maximum length of a content preview returned to clients.
const PreviewLength = 500

// Document is an indexed knowledge-base article.
type Document struct {
	ID            int
	Title         string
	Category      string // single path-like category, may be empty
	Tags          []string
	Body          string
	ProcessedText string // cleaned body used for embedding and relevance checks
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Embedding     []float32 // populated on ingest, never returned to clients
}

// Text returns the text used for relevance checks: the processed body when
// available, the raw body otherwise.
func (d *Document) Text() string {
	if d.ProcessedText != "" {
		return d.ProcessedText
	}
	return d.Body
}

// Preview returns the first PreviewLength characters of the body, rune-safe.
func (d *Document) Preview() string {
	return Truncate(d.Body, PreviewLength)
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
