package signals

import "strings"

// Fuzzy returns 1 when the whole query occurs in content, ignoring case.
// Otherwise it returns the fraction of distinct query words that also occur
// as words in content.
func Fuzzy(query, content string) float64 {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(content) == "" {
		return 0
	}
	q := strings.ToLower(query)
	c := strings.ToLower(content)
	if strings.Contains(c, q) {
		return 1
	}
	return overlap(wordSet(q), wordSet(c))
}
