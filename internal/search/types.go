package search

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDocument indicates a record that cannot enter the engine.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrDimensionMismatch indicates an embedding whose length is neither 0
	// nor the engine dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Document is a searchable record supplied by the persistence layer.
// An empty Embedding means the document has not been indexed and is scored
// as the zero vector.
type Document struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content,omitempty"`
	Embedding []float32 `json:"-"`
}

// Validate checks that d can be ranked against vectors of length dim.
func (d Document) Validate(dim int) error {
	if d.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidDocument, d.ID)
	}
	if n := len(d.Embedding); n != 0 && n != dim {
		return fmt.Errorf("%w: document %d has %d values, want %d", ErrDimensionMismatch, d.ID, n, dim)
	}
	return nil
}

// ValidateDocuments validates every document and reports the first failure.
func ValidateDocuments(docs []Document, dim int) error {
	for _, d := range docs {
		if err := d.Validate(dim); err != nil {
			return err
		}
	}
	return nil
}

// Breakdown holds the individual signals and their weighted total.
// Every value lies in [0,1].
type Breakdown struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
	Fuzzy    float64 `json:"fuzzy"`
	Filename float64 `json:"filename"`
	Total    float64 `json:"total"`
}

// Result is a ranked document.
type Result struct {
	Document
	RelevanceScore float64   `json:"relevance_score"`
	ScoreBreakdown Breakdown `json:"score_breakdown"`
	Snippet        string    `json:"snippet"`
}

// Response is the envelope returned by Engine.Search.
type Response struct {
	Query        string   `json:"query"`
	TotalResults int      `json:"total_results"`
	Results      []Result `json:"results"`
	SearchTimeMS float64  `json:"search_time_ms"`
}

// IndexResult is what the caller writes back after indexing a document.
type IndexResult struct {
	Embedding      []float32 `json:"embedding"`
	ContentPreview string    `json:"content_preview"`
}
