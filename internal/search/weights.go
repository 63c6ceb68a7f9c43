package search

import (
	"fmt"
	"math"
)

// Weights combines the four signals into a total. They must sum to 1.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Filename float64 `json:"filename"`
	Keyword  float64 `json:"keyword"`
	Fuzzy    float64 `json:"fuzzy"`
}

var (
	// DefaultWeights favors file names that name the query.
	DefaultWeights = Weights{Semantic: 0.40, Filename: 0.30, Keyword: 0.20, Fuzzy: 0.10}

	// LegacyWeights leans on embeddings and keyword overlap.
	LegacyWeights = Weights{Semantic: 0.50, Keyword: 0.25, Filename: 0.15, Fuzzy: 0.10}
)

// WeightsForPreset returns the named weight set ("default" or "legacy").
func WeightsForPreset(name string) (Weights, error) {
	switch name {
	case "", "default":
		return DefaultWeights, nil
	case "legacy":
		return LegacyWeights, nil
	default:
		return Weights{}, fmt.Errorf("unknown weight preset %q", name)
	}
}

// Validate checks that every weight is in [0,1] and that they sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"semantic": w.Semantic, "filename": w.Filename, "keyword": w.Keyword, "fuzzy": w.Fuzzy,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s weight must be within [0,1], got %v", name, v)
		}
	}
	if sum := w.Semantic + w.Filename + w.Keyword + w.Fuzzy; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Total returns the weighted sum of b's signals. b.Total is ignored.
func (w Weights) Total(b Breakdown) float64 {
	t := w.Semantic*b.Semantic + w.Filename*b.Filename + w.Keyword*b.Keyword + w.Fuzzy*b.Fuzzy
	return math.Min(math.Max(t, 0), 1)
}
