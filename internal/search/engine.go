// Package search ranks documents against a free-text query by combining
// semantic, filename, keyword and fuzzy signals with fixed weights.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/locket-ai/locket/internal/logging"
	"github.com/locket-ai/locket/internal/signals"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/locket-ai/locket/internal/search"

// Embedder produces query embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config configures an Engine.
type Config struct {
	Weights Weights
	// Dimension is the expected embedding length. Embeddings of any other
	// non-zero length are scored as absent.
	Dimension int
	// SnippetLength is passed to Snippet for each result.
	SnippetLength int
	// Workers bounds concurrent scoring. Values below 2 score sequentially.
	Workers int
}

// Engine ranks documents. It holds no per-query state and is safe for
// concurrent use.
type Engine struct {
	embedder Embedder
	config   Config
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewEngine validates cfg and returns an engine. logger may be nil.
func NewEngine(embedder Embedder, cfg Config, logger *logging.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be > 0")
	}
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = DefaultSnippetLength
	}
	return &Engine{
		embedder: embedder,
		config:   cfg,
		logger:   logging.OrNop(logger).Named("search"),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Weights returns the weights applied to every query.
func (e *Engine) Weights() Weights {
	return e.config.Weights
}

// Score computes every signal for doc and their weighted total.
func (e *Engine) Score(query string, queryEmbedding []float32, doc Document) Breakdown {
	docEmbedding := doc.Embedding
	if len(docEmbedding) != e.config.Dimension {
		docEmbedding = nil
	}
	b := Breakdown{
		Semantic: signals.Semantic(queryEmbedding, docEmbedding),
		Keyword:  signals.Keyword(query, doc.Content),
		Fuzzy:    signals.Fuzzy(query, doc.Content),
		Filename: signals.Filename(query, doc.Filename),
	}
	b.Total = e.config.Weights.Total(b)
	return b
}

// RankOption adjusts a single Rank call.
type RankOption func(*rankOptions)

type rankOptions struct {
	embeddingText string
}

// WithEmbeddingText embeds text instead of the query for the semantic
// signal. Lexical signals and snippets still use the query itself.
func WithEmbeddingText(text string) RankOption {
	return func(o *rankOptions) {
		o.embeddingText = text
	}
}

// Rank scores every document, drops results whose total is below minScore,
// attaches a snippet and sorts by total, highest first. Equal totals keep
// input order. An empty query or document set yields an empty result.
// The only error is a failure to embed the query.
func (e *Engine) Rank(ctx context.Context, query string, docs []Document, minScore float64, opts ...RankOption) ([]Result, error) {
	results := []Result{}
	if strings.TrimSpace(query) == "" || len(docs) == 0 {
		return results, nil
	}

	o := rankOptions{embeddingText: query}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := e.tracer.Start(ctx, "search.rank", trace.WithAttributes(
		attribute.Int("documents", len(docs)),
		attribute.Float64("min_score", minScore),
		attribute.Bool("expanded", o.embeddingText != query),
	))
	defer span.End()

	queryEmbedding, err := e.embedder.Embed(ctx, o.embeddingText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query embedding failed")
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	if stale := e.countStale(docs); stale > 0 {
		e.logger.Warn(ctx, "documents with mismatched embeddings scored without semantic signal",
			zap.Int("documents", stale),
			zap.Int("dimension", e.config.Dimension))
	}

	breakdowns, err := e.scoreAll(ctx, query, queryEmbedding, docs)
	if err != nil {
		return nil, err
	}

	for i, b := range breakdowns {
		if b.Total < minScore {
			continue
		}
		results = append(results, Result{
			Document:       docs[i],
			RelevanceScore: b.Total,
			ScoreBreakdown: b,
			Snippet:        Snippet(query, docs[i].Content, e.config.SnippetLength),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	span.SetAttributes(attribute.Int("results", len(results)))
	e.logger.Debug(ctx, "ranked documents",
		zap.Int("candidates", len(docs)),
		zap.Int("results", len(results)))
	return results, nil
}

// scoreAll returns one breakdown per document, indexed like docs, so the
// outcome does not depend on goroutine scheduling.
func (e *Engine) scoreAll(ctx context.Context, query string, queryEmbedding []float32, docs []Document) ([]Breakdown, error) {
	out := make([]Breakdown, len(docs))
	if e.config.Workers < 2 || len(docs) < 2 {
		for i, d := range docs {
			out[i] = e.Score(query, queryEmbedding, d)
		}
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = e.Score(query, queryEmbedding, docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring documents: %w", err)
	}
	return out, nil
}

func (e *Engine) countStale(docs []Document) int {
	n := 0
	for _, d := range docs {
		if l := len(d.Embedding); l != 0 && l != e.config.Dimension {
			n++
		}
	}
	return n
}

// Search wraps Rank in the response envelope with timing.
func (e *Engine) Search(ctx context.Context, query string, docs []Document, minScore float64, opts ...RankOption) (*Response, error) {
	start := time.Now()
	results, err := e.Rank(ctx, query, docs, minScore, opts...)
	if err != nil {
		return nil, err
	}
	return &Response{
		Query:        query,
		TotalResults: len(results),
		Results:      results,
		SearchTimeMS: float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}
