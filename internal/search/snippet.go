package search

import (
	"strings"
	"unicode"
)

const (
	// DefaultSnippetLength is the fallback excerpt length in characters.
	DefaultSnippetLength = 200

	snippetBefore = 50
	snippetAfter  = 150
	ellipsis      = "..."
)

// Snippet returns the part of content around the first case-insensitive
// occurrence of query: 50 characters before it and 150 after its end, with
// "..." marking cut edges. Without a match it returns the first maxLength
// characters. Lengths count runes.
func Snippet(query, content string, maxLength int) string {
	if content == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultSnippetLength
	}

	text := []rune(content)
	needle := lowerRunes([]rune(strings.TrimSpace(query)))
	if i := indexRunes(lowerRunes(text), needle); i >= 0 {
		start := max(0, i-snippetBefore)
		end := min(len(text), i+len(needle)+snippetAfter)

		var b strings.Builder
		if start > 0 {
			b.WriteString(ellipsis)
		}
		b.WriteString(string(text[start:end]))
		if end < len(text) {
			b.WriteString(ellipsis)
		}
		return b.String()
	}

	if len(text) <= maxLength {
		return content
	}
	return string(text[:maxLength]) + ellipsis
}

// lowerRunes lowercases rune by rune so indexes line up with the input.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
