package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassesQuality(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		want     bool
	}{
		{"prose", "The refund policy allows customers to return products within thirty days of purchase.", true},
		{"too short", "Short sentence here.", false},
		{"too long", repeatWords("alpha", 56), false},
		{"table of contents", "Table of contents for the annual report and all of its appendices.", false},
		{"caption", "Figure 3 shows the distribution of requests across all regional servers.", false},
		{"copyright", "Copyright 2023 Example Corporation and its affiliates, all rights reserved worldwide.", false},
		{"digits", "The totals were 1234 5678 9012 3456 7890 1234 5678 units today.", false},
		{"ellipsis run", "The introduction starts here and continues on ...... until page ten of it.", false},
		{"references header", "References and further reading for the chapters that precede this one.", false},
		{"all caps without verb", "INTRODUCTION TO THE ANNUAL BUDGET AND THE PLANNING PROCESS OVERVIEW", false},
		{"title case without verb", "Annual Budget Planning Process For The Regional Offices And Teams", false},
		{"all caps with verb", "THE COMMITTEE HAS APPROVED THE NEW BUDGET FOR THE NEXT YEAR.", true},
		{"title case with past tense", "The Board Approved The Budget For The Regional Offices And Teams.", true},
		{"numbered header", "2.1 Background And Motivation For The Regional Planning Effort", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, passesQuality(tt.sentence))
		})
	}
}

func TestPassesRelaxed(t *testing.T) {
	assert.True(t, passesRelaxed("The cat sat on the mat."))
	assert.False(t, passesRelaxed("Too short here."))
	assert.False(t, passesRelaxed(repeatWords("w", 41)))
}

func TestImportance(t *testing.T) {
	assert.Zero(t, importance("Coffee and tea are served in the kitchen every morning."))
	assert.InDelta(t, 0.7, importance("In conclusion, the results show that remote work improved team satisfaction considerably."), 1e-9)
	assert.InDelta(t, 0.6, importance("This report presents the significant findings of the annual employee survey."), 1e-9)

	capped := "In conclusion, this study presents key critical significant essential findings; we propose the main goal and results show the primary purpose."
	assert.Equal(t, maxImportance, importance(capped))
}

func repeatWords(w string, n int) string {
	out := make([]byte, 0, n*(len(w)+1))
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, w...)
	}
	return string(out)
}
