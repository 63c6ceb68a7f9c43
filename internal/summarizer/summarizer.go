// Package summarizer builds extractive summaries: it keeps the most central,
// least redundant prose sentences of a document in their original order.
package summarizer

import (
	"context"
	"fmt"

	"github.com/locket-ai/locket/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultMaxSentences is used when a caller asks for zero sentences.
	DefaultMaxSentences = 5

	// EmptyDocumentMessage is returned for blank content.
	EmptyDocumentMessage = "This document appears to be empty."

	// NoSentencesMessage is returned when no sentence survives filtering.
	NoSentencesMessage = "Unable to generate summary: no meaningful sentences found."

	maxSummaryChars = 600
	capSentences    = 3

	tracerName = "github.com/locket-ai/locket/internal/summarizer"
)

// Embedder embeds one text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is used instead of per-sentence Embed calls when the
// embedder supports it.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer produces extractive summaries. It is safe for concurrent use
// when its embedder is.
type Summarizer struct {
	embedder Embedder
	logger   *logging.Logger
	tracer   trace.Tracer
}

// New returns a summarizer. logger may be nil.
func New(embedder Embedder, logger *logging.Logger) *Summarizer {
	return &Summarizer{
		embedder: embedder,
		logger:   logging.OrNop(logger).Named("summarizer"),
		tracer:   otel.Tracer(tracerName),
	}
}

// Summarize returns at most maxSentences sentences of content, in document
// order. It never fails: blank content and content without usable
// sentences produce fixed messages, and embedding failures fall back to
// ranking by signal phrases.
func (s *Summarizer) Summarize(ctx context.Context, content string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	text := normalize(content)
	if text == "" {
		return EmptyDocumentMessage
	}

	ctx, span := s.tracer.Start(ctx, "summarizer.summarize", trace.WithAttributes(
		attribute.Int("max_sentences", maxSentences),
		attribute.Int("content_length", len(text)),
	))
	defer span.End()

	sents := qualitySentences(splitSentences(text))
	span.SetAttributes(attribute.Int("quality_sentences", len(sents)))
	if len(sents) == 0 {
		s.logger.Debug(ctx, "no quality sentences")
		return NoSentencesMessage
	}

	if len(sents) <= maxSentences {
		all := make([]int, len(sents))
		for i := range all {
			all[i] = i
		}
		return joinInPosition(sents, all)
	}

	vectors, docVector, err := s.embedAll(ctx, sents, text)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn(ctx, "summary embeddings failed, ranking by importance only", zap.Error(err))
		return assemble(sents, selectByImportance(sents, maxSentences))
	}
	return assemble(sents, selectMMR(sents, vectors, docVector, maxSentences))
}

// qualitySentences applies the quality filter, or the relaxed one when
// nothing passes.
func qualitySentences(raw []string) []sentence {
	keep := filterSentences(raw, passesQuality)
	if len(keep) == 0 {
		keep = filterSentences(raw, passesRelaxed)
	}
	out := make([]sentence, len(keep))
	for i, t := range keep {
		out[i] = sentence{text: t, index: i, importance: importance(t)}
	}
	return out
}

func filterSentences(raw []string, keep func(string) bool) []string {
	var out []string
	for _, r := range raw {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summarizer) embedAll(ctx context.Context, sents []sentence, text string) ([][]float32, []float32, error) {
	if s.embedder == nil {
		return nil, nil, fmt.Errorf("no embedder configured")
	}
	texts := make([]string, len(sents))
	for i, st := range sents {
		texts[i] = st.text
	}

	var vectors [][]float32
	if b, ok := s.embedder.(BatchEmbedder); ok {
		var err error
		if vectors, err = b.EmbedBatch(ctx, texts); err != nil {
			return nil, nil, fmt.Errorf("embedding sentences: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, nil, fmt.Errorf("embedding sentences: got %d vectors for %d sentences", len(vectors), len(texts))
		}
	} else {
		vectors = make([][]float32, len(texts))
		for i, t := range texts {
			v, err := s.embedder.Embed(ctx, t)
			if err != nil {
				return nil, nil, fmt.Errorf("embedding sentence %d: %w", i, err)
			}
			vectors[i] = v
		}
	}

	docVector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding document: %w", err)
	}
	return vectors, docVector, nil
}

// SentenceCount reports how many sentences the summarizer would consider
// for content after filtering.
func SentenceCount(content string) int {
	return len(qualitySentences(splitSentences(normalize(content))))
}

