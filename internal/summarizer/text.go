package summarizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	pageMarker  = regexp.MustCompile(`(?i)\bpage\s+\d+(\s+of\s+\d+)?\b`)
	xOfY        = regexp.MustCompile(`(?i)\b\d+\s+of\s+\d+\b`)
	lineNumbers = regexp.MustCompile(`(?m)^\s*\d+\s*$`)

	// sentenceBoundary matches terminal punctuation, the whitespace after it
	// and the capital letter that starts the next sentence.
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+\p{Lu}`)
)

// normalize removes page artifacts and collapses whitespace.
func normalize(content string) string {
	text := lineNumbers.ReplaceAllString(content, " ")
	text = pageMarker.ReplaceAllString(text, " ")
	text = xOfY.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences cuts text after '.', '!' or '?' when whitespace and an
// uppercase letter follow.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, m := range sentenceBoundary.FindAllStringIndex(text, -1) {
		_, capLen := utf8.DecodeLastRuneInString(text[m[0]:m[1]])
		if s := strings.TrimSpace(text[start : m[0]+1]); s != "" {
			out = append(out, s)
		}
		start = m[1] - capLen
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// charStats counts character classes over the runes of a sentence.
type charStats struct {
	total, periods, punct, digits, alphaSpace int
}

func statsOf(s string) charStats {
	var c charStats
	for _, r := range s {
		c.total++
		switch {
		case r == '.':
			c.periods++
			c.punct++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			c.punct++
		case unicode.IsDigit(r):
			c.digits++
		case unicode.IsLetter(r) || unicode.IsSpace(r):
			c.alphaSpace++
		}
	}
	return c
}

func (c charStats) ratio(n int) float64 {
	if c.total == 0 {
		return 0
	}
	return float64(n) / float64(c.total)
}
