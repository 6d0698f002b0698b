package ingest

import (
	"regexp"
	"strings"
)

// Markdown and HTML stripping patterns, applied in order.
var (
	codeBlockRe  = regexp.MustCompile("(?s)```.*?```")
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	headerRe     = regexp.MustCompile(`#{1,6}\s+`)
	boldRe       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe     = regexp.MustCompile(`\*(.*?)\*`)
	inlineCodeRe = regexp.MustCompile("`(.*?)`")
	imageRe      = regexp.MustCompile(`!\[([^\]]*)\]\([^\)]+\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	urlRe        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// CleanMarkdown strips markdown syntax, HTML tags, and URLs from a document
// body, producing the flat text used for embedding and relevance checks.
// Code blocks are dropped entirely; their tokens are noise for retrieval.
func CleanMarkdown(text string) string {
	if text == "" {
		return ""
	}

	text = codeBlockRe.ReplaceAllString(text, "")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = headerRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = imageRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = urlRe.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "　", " ") // full-width space
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
