package signals

import (
	"path/filepath"
	"regexp"
	"strings"
)

const filenameBoost = 1.3

var (
	documentExtensions = toSet(
		".pdf", ".doc", ".docx", ".txt", ".md", ".rtf", ".odt",
		".xls", ".xlsx", ".csv", ".ppt", ".pptx", ".html", ".htm",
	)
	leadingArtifact = regexp.MustCompile(`^[\d\s._-]+`)
	separators      = regexp.MustCompile(`[_\-]+`)
)

// NormalizeFilename strips a known document extension and a leading run of
// digits and separators ("5008_"), turns underscores and hyphens into
// spaces, lowercases and collapses whitespace.
func NormalizeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if ext := filepath.Ext(base); documentExtensions[strings.ToLower(ext)] {
		base = strings.TrimSuffix(base, ext)
	}
	base = leadingArtifact.ReplaceAllString(base, "")
	base = separators.ReplaceAllString(base, " ")
	return strings.Join(strings.Fields(strings.ToLower(base)), " ")
}

// Filename scores how well query names the document's file.
//
// An exact match of the normalized forms scores 1 and a substring match in
// either direction scores 0.9. Otherwise the share of significant query
// words (longer than 2 characters, not stopwords) found in the file name is
// boosted by 1.3 and capped at 1.
func Filename(query, filename string) float64 {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	name := NormalizeFilename(filename)
	if q == "" || name == "" {
		return 0
	}
	if q == name {
		return 1
	}
	if strings.Contains(name, q) || strings.Contains(q, name) {
		return 0.9
	}
	score := overlap(significantWords(q), significantWords(name))
	return clamp01(score * filenameBoost)
}

func significantWords(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range termPattern.FindAllString(text, -1) {
		if len([]rune(w)) > 2 && !filenameStopwords[w] {
			set[w] = true
		}
	}
	return set
}
