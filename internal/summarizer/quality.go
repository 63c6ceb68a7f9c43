package summarizer

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	minWords        = 8
	maxWords        = 50
	relaxedMinWords = 5
	relaxedMaxWords = 40

	maxPeriodDensity = 0.40
	maxPunctRatio    = 0.25
	maxDigitRatio    = 0.15
	minAlphaRatio    = 0.65
)

var metadataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d+(\.\d+)*\.?|[IVXLC]+\.)\s+\p{Lu}[\p{L}\s]{0,60}$`),
	regexp.MustCompile(`^(?i:chapter|section|part)\s+(\d+|[IVXLC]+)\b`),
	regexp.MustCompile(`\.{3,}|…|(\.\s){3,}`),
	regexp.MustCompile(`^[\d\s.,:;/()-]+$`),
	regexp.MustCompile(`(?i)\btable\s+of\s+contents\b`),
	regexp.MustCompile(`(?i)^appendix\s+[A-Z0-9]\b`),
	regexp.MustCompile(`(?i)copyright|©|\(c\)\s*\d{4}|all\s+rights\s+reserved`),
	regexp.MustCompile(`(?i)^(figure|fig\.|table|chart|exhibit)\s+\d+`),
	regexp.MustCompile(`(?i)^(references|bibliography|works\s+cited)\b`),
}

var finiteVerbs = map[string]bool{
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"am": true, "has": true, "have": true, "had": true, "do": true, "does": true,
	"did": true, "can": true, "could": true, "will": true, "would": true,
	"shall": true, "should": true, "may": true, "might": true, "must": true,
	"provides": true, "provide": true, "includes": true, "include": true,
	"requires": true, "require": true, "shows": true, "show": true,
	"describes": true, "describe": true, "presents": true, "present": true,
	"contains": true, "contain": true, "makes": true, "make": true,
	"uses": true, "use": true, "means": true, "mean": true, "allows": true,
	"allow": true, "helps": true, "help": true, "gives": true, "give": true,
	"takes": true, "take": true, "remains": true, "becomes": true,
	"explains": true, "covers": true, "defines": true, "supports": true,
	"applies": true, "apply": true, "ensures": true, "ensure": true,
}

// passesQuality reports whether s looks like prose rather than layout debris.
func passesQuality(s string) bool {
	words := strings.Fields(s)
	if len(words) < minWords || len(words) > maxWords {
		return false
	}

	c := statsOf(s)
	if c.ratio(c.periods) > maxPeriodDensity ||
		c.ratio(c.punct) > maxPunctRatio ||
		c.ratio(c.digits) > maxDigitRatio ||
		c.ratio(c.alphaSpace) < minAlphaRatio {
		return false
	}

	for _, p := range metadataPatterns {
		if p.MatchString(s) {
			return false
		}
	}

	if (isAllCaps(s) || isTitleCase(words)) && !hasFiniteVerb(words) {
		return false
	}
	return true
}

// passesRelaxed is the last-resort filter: word count only.
func passesRelaxed(s string) bool {
	n := len(strings.Fields(s))
	return n >= relaxedMinWords && n <= relaxedMaxWords
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters > 0
}

var titleCaseMinor = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "by": true,
	"for": true, "in": true, "of": true, "on": true, "or": true, "the": true,
	"to": true, "with": true,
}

func isTitleCase(words []string) bool {
	checked := 0
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		if w == "" || titleCaseMinor[strings.ToLower(w)] {
			continue
		}
		checked++
		if first := []rune(w)[0]; !unicode.IsUpper(first) {
			return false
		}
	}
	return checked > 0
}

func hasFiniteVerb(words []string) bool {
	for _, w := range words {
		w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) }))
		if finiteVerbs[w] {
			return true
		}
		if len(w) > 4 && strings.HasSuffix(w, "ed") {
			return true
		}
	}
	return false
}
