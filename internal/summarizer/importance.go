package summarizer

import (
	"regexp"
	"strings"
)

const (
	termBonus     = 0.1
	patternBonus  = 0.3
	maxImportance = 1.0
)

var importanceTerms = []string{
	"purpose", "objective", "goal", "aims", "aim", "describes", "presents",
	"proposes", "analyzes", "analyses", "demonstrates", "concludes",
	"conclusion", "recommends", "recommendation", "significant", "key",
	"critical", "important", "essential", "primary", "main", "findings",
	"summary", "overview", "introduces", "required", "must",
}

var importancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bthis\s+(paper|study|report|document|article|thesis|policy|guide)\s+(presents|describes|proposes|examines|explores|outlines|explains|covers|introduces)`),
	regexp.MustCompile(`(?i)\bwe\s+(propose|present|describe|introduce|show|demonstrate|find|conclude)\b`),
	regexp.MustCompile(`(?i)\b(results|findings|data|analysis|experiments)\s+(show|shows|indicate|indicates|suggest|suggests|demonstrate|demonstrates|reveal|reveals)\b`),
	regexp.MustCompile(`(?i)\b(in\s+conclusion|in\s+summary|to\s+summarize|overall)\b`),
	regexp.MustCompile(`(?i)\bthe\s+(main|primary|key)\s+(goal|purpose|objective|contribution|finding)\b`),
}

// importance scores a sentence from its signal phrases, in [0,1].
func importance(s string) float64 {
	lower := strings.ToLower(s)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		words[w] = true
	}

	score := 0.0
	for _, t := range importanceTerms {
		if words[t] {
			score += termBonus
		}
	}
	for _, p := range importancePatterns {
		if p.MatchString(s) {
			score += patternBonus
		}
	}
	if score > maxImportance {
		return maxImportance
	}
	return score
}
