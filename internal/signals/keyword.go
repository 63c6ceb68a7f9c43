package signals

import "math"

// Keyword returns the cosine similarity of the TF-IDF vectors of query and
// content, fitted on exactly those two texts. Raw term counts are weighted by
// the smoothed idf ln((1+n)/(1+df)) + 1 with n = 2.
func Keyword(query, content string) float64 {
	q := termCounts(query)
	c := termCounts(content)
	if len(q) == 0 || len(c) == 0 {
		return 0
	}

	const n = 2.0
	idf := func(term string) float64 {
		df := 0.0
		if q[term] > 0 {
			df++
		}
		if c[term] > 0 {
			df++
		}
		return math.Log((1+n)/(1+df)) + 1
	}

	var dot, normQ, normC float64
	for term, count := range q {
		w := float64(count) * idf(term)
		normQ += w * w
		if cc, ok := c[term]; ok {
			dot += w * float64(cc) * idf(term)
		}
	}
	for term, count := range c {
		w := float64(count) * idf(term)
		normC += w * w
	}
	if normQ == 0 || normC == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(normQ) * math.Sqrt(normC)))
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, t := range terms(text) {
		counts[t]++
	}
	return counts
}
