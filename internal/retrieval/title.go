package retrieval

import (
	"context"
	"strings"
)

const (
	// DefaultTitleLength bounds generated chat titles.
	DefaultTitleLength = 50
	defaultTitle       = "New Chat"
)

// Title derives a chat title from the first message: whitespace collapsed,
// cut at a word boundary with "..." when longer than maxLength characters.
func Title(message string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultTitleLength
	}
	title := strings.Join(strings.Fields(message), " ")
	if title == "" {
		return defaultTitle
	}

	runes := []rune(title)
	if len(runes) <= maxLength {
		return title
	}
	cut := string(runes[:maxLength])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// ChatTitle names a chat after its first message. With a generator the
// model proposes the title; without one, or when it fails, the message
// itself is shortened. Either way the result fits maxLength. A non-nil
// error reports a generation failure the fallback covered.
func ChatTitle(ctx context.Context, g *Generator, message string, maxLength int) (string, error) {
	if g == nil || strings.TrimSpace(message) == "" {
		return Title(message, maxLength), nil
	}
	text, err := g.Title(ctx, message)
	if err != nil {
		return Title(message, maxLength), err
	}
	return Title(text, maxLength), nil
}
