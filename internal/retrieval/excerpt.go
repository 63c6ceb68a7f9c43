package retrieval

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/locket-ai/locket/internal/search"
)

const (
	// DefaultExcerptLength is the budget for sentences in an excerpt.
	DefaultExcerptLength = 300
	// MaxExcerptLength bounds the excerpt stored with a citation.
	MaxExcerptLength = 500

	minExcerptSentence = 20
	minQueryTermLength = 4
	maxExcerptParts    = 3
)

var (
	excerptBoundary = regexp.MustCompile(`[.!?]+`)
	queryTerm       = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// Excerpt picks up to three sentences of content that mention query terms
// longer than three characters, most matches first, within maxLength
// characters. When no sentence mentions a query term it falls back to
// search.Snippet. The result never exceeds MaxExcerptLength characters.
func Excerpt(query, content string, maxLength int) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultExcerptLength
	}

	var sentences []string
	for _, s := range excerptBoundary.Split(content, -1) {
		if s = strings.TrimSpace(s); utf8.RuneCountInString(s) > minExcerptSentence {
			sentences = append(sentences, s)
		}
	}

	terms := make(map[string]bool)
	for _, t := range queryTerm.FindAllString(strings.ToLower(query), -1) {
		if utf8.RuneCountInString(t) >= minQueryTermLength {
			terms[t] = true
		}
	}

	type scored struct {
		text    string
		matches int
	}
	var hits []scored
	for _, s := range sentences {
		lower := strings.ToLower(s)
		n := 0
		for t := range terms {
			if strings.Contains(lower, t) {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, scored{text: s, matches: n})
		}
	}
	if len(hits) == 0 {
		return capExcerpt(search.Snippet(query, content, maxLength))
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].matches > hits[j].matches })

	var parts []string
	used := 0
	for _, h := range hits[:min(len(hits), maxExcerptParts)] {
		n := utf8.RuneCountInString(h.text)
		if used+n > maxLength {
			break
		}
		parts = append(parts, h.text)
		used += n
	}
	if len(parts) == 0 {
		return capExcerpt(hits[0].text)
	}

	excerpt := strings.Join(parts, ". ")
	if len(excerpt) < len(content) {
		excerpt += "..."
	}
	return capExcerpt(excerpt)
}

func capExcerpt(s string) string {
	if utf8.RuneCountInString(s) <= MaxExcerptLength {
		return s
	}
	return string([]rune(s)[:MaxExcerptLength-len("...")]) + "..."
}
