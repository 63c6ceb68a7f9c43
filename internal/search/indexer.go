package search

import (
	"context"
	"fmt"
)

// PreviewLength is the number of characters kept in IndexResult.ContentPreview.
const PreviewLength = 500

// Indexer computes what the persistence layer stores for a new or changed
// document.
type Indexer struct {
	embedder Embedder
}

// NewIndexer returns an indexer using embedder.
func NewIndexer(embedder Embedder) *Indexer {
	return &Indexer{embedder: embedder}
}

// Index embeds the filename and content together so that names carry into
// the semantic signal. Empty content is accepted.
func (ix *Indexer) Index(ctx context.Context, content, filename string) (IndexResult, error) {
	vec, err := ix.embedder.Embed(ctx, IndexText(filename, content))
	if err != nil {
		return IndexResult{}, fmt.Errorf("embedding document %q: %w", filename, err)
	}
	return IndexResult{
		Embedding:      vec,
		ContentPreview: Preview(content),
	}, nil
}

// IndexText is the text embedded for a document.
func IndexText(filename, content string) string {
	return filename + "\n\n" + content
}

// Preview returns the first PreviewLength characters of content.
func Preview(content string) string {
	i := 0
	for pos := range content {
		if i == PreviewLength {
			return content[:pos]
		}
		i++
	}
	return content
}
