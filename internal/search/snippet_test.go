package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 100) + " Refund Policy " + strings.Repeat("b", 300)

	tests := []struct {
		name      string
		query     string
		content   string
		maxLength int
		want      string
	}{
		{name: "empty content", query: "x", content: "", want: ""},
		{name: "short content without match", query: "zzz", content: "hello world", want: "hello world"},
		{name: "match near start", query: "hello", content: "hello world", want: "hello world"},
		{
			name:    "no match truncates",
			query:   "zzz",
			content: strings.Repeat("c", 250),
			want:    strings.Repeat("c", DefaultSnippetLength) + "...",
		},
		{
			name:      "custom length",
			query:     "zzz",
			content:   "abcdefghij",
			maxLength: 4,
			want:      "abcd...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Snippet(tt.query, tt.content, tt.maxLength))
		})
	}

	t.Run("window around case-insensitive match", func(t *testing.T) {
		got := Snippet("refund policy", long, 0)
		assert.True(t, strings.HasPrefix(got, "..."))
		assert.True(t, strings.HasSuffix(got, "..."))
		assert.Contains(t, got, "Refund Policy")
		// 50 before + 13 matched + 150 after, plus both ellipses.
		assert.Equal(t, 50+13+150+6, utf8.RuneCountInString(got))
	})

	t.Run("multibyte content keeps rune boundaries", func(t *testing.T) {
		content := strings.Repeat("ü", 80) + "Straße" + strings.Repeat("ö", 200)
		got := Snippet("STRASSE", content, 0)
		assert.True(t, utf8.ValidString(got))

		got = Snippet("straße", content, 0)
		assert.True(t, utf8.ValidString(got))
		assert.Contains(t, got, "Straße")
	})
}
