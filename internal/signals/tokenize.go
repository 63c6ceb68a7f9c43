package signals

import (
	"regexp"
	"strings"
)

// termPattern matches runs of two or more letters, digits or underscores.
var termPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// terms lowercases text and returns its TF-IDF terms with stopwords removed.
func terms(text string) []string {
	raw := termPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if !englishStopwords[t] {
			out = append(out, t)
		}
	}
	return out
}

// wordSet returns the set of lowercased whitespace-separated words.
func wordSet(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// overlap returns |query ∩ other| / |query|, or 0 for an empty query set.
func overlap(query, other map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for w := range query {
		if other[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
