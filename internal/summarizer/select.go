package summarizer

import (
	"sort"
	"strings"

	"github.com/locket-ai/locket/internal/signals"
)

const redundancyPenalty = 0.3

// sentence is a quality sentence with its position among all quality
// sentences.
type sentence struct {
	text       string
	index      int
	importance float64
}

func positionWeight(index, count int) float64 {
	rel := float64(index) / float64(count)
	switch {
	case rel < 0.15:
		return 1.5
	case rel < 0.35:
		return 1.3
	case rel >= 0.85:
		return 1.1
	default:
		return 0.9
	}
}

func lengthWeight(text string) float64 {
	n := len(strings.Fields(text))
	switch {
	case n >= 15 && n <= 30:
		return 1.2
	case n >= 10 && n <= 35:
		return 1.0
	default:
		return 0.8
	}
}

// selectMMR picks up to n sentences greedily. After each pick the remaining
// scores shrink by their similarity to the picked sentence. The result is
// in selection order. Ties go to the earlier sentence.
func selectMMR(sents []sentence, vectors [][]float32, docVector []float32, n int) []int {
	scores := make([]float64, len(sents))
	for i, s := range sents {
		scores[i] = signals.Semantic(vectors[i], docVector) *
			positionWeight(s.index, len(sents)) *
			lengthWeight(s.text) *
			(1 + s.importance)
	}

	picked := make([]bool, len(sents))
	var order []int
	for len(order) < n {
		best := -1
		for i := range sents {
			if picked[i] {
				continue
			}
			if best < 0 || scores[i] > scores[best] {
				best = i
			}
		}
		if best < 0 {
			break
		}
		picked[best] = true
		order = append(order, best)

		for i := range sents {
			if !picked[i] {
				scores[i] *= 1 - redundancyPenalty*signals.Semantic(vectors[i], vectors[best])
			}
		}
	}
	return order
}

// selectByImportance ranks by importance alone, earlier sentences first on
// ties, and returns the top n in rank order.
func selectByImportance(sents []sentence, n int) []int {
	order := make([]int, len(sents))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sents[order[a]].importance > sents[order[b]].importance
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// assemble joins the chosen sentences in document order. A summary longer
// than maxSummaryChars built from more than capSentences sentences is cut
// to the first capSentences of rank.
func assemble(sents []sentence, rank []int) string {
	text := joinInPosition(sents, rank)
	if len([]rune(text)) > maxSummaryChars && len(rank) > capSentences {
		text = joinInPosition(sents, rank[:capSentences])
	}
	return text
}

func joinInPosition(sents []sentence, rank []int) string {
	idx := append([]int(nil), rank...)
	sort.Ints(idx)
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = sents[j].text
	}
	return strings.Join(parts, " ")
}
