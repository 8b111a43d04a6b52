package searcher

import (
	"strings"
	"unicode/utf8"
)

const (
	// snippetContextRunes is how many runes of surrounding context a snippet
	// carries on each side of the matched keyword
	snippetContextRunes = 75

	ellipsis = "..."
)

// buildSnippet extracts an excerpt around the first occurrence of keyword in
// content, rune-safe so CJK text is never split mid-character. When the
// keyword is not found (prefix matches can widen past it) the snippet is the
// head of the content.
func buildSnippet(content, keyword string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	runes := []rune(content)
	start, end := 0, len(runes)

	idx := strings.Index(strings.ToLower(content), strings.ToLower(keyword))
	if idx >= 0 {
		matchStart := utf8.RuneCountInString(content[:idx])
		matchEnd := matchStart + utf8.RuneCountInString(keyword)
		start = matchStart - snippetContextRunes
		if start < 0 {
			start = 0
		}
		end = matchEnd + snippetContextRunes
		if end > len(runes) {
			end = len(runes)
		}
	} else if end > 2*snippetContextRunes {
		end = 2 * snippetContextRunes
	}

	snippet := strings.TrimSpace(string(runes[start:end]))
	snippet = collapseWhitespace(snippet)
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(runes) {
		snippet += ellipsis
	}
	return snippet
}

// collapseWhitespace folds newlines and runs of spaces into single spaces so
// snippets stay on one line
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
