// Package retrieval answers chat messages from a set of candidate documents.
// It classifies the message, expands document queries with recent user
// turns, ranks the candidates and cites those that clear a usability
// threshold.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/locket-ai/locket/internal/logging"
	"github.com/locket-ai/locket/internal/search"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultLimit is the number of ranked documents kept per message.
	DefaultLimit = 5
	// DefaultUsableScore is the total a document must exceed to be cited.
	DefaultUsableScore = 0.15

	tracerName = "github.com/locket-ai/locket/internal/retrieval"
)

// Ranker ranks candidate documents. *search.Engine implements it.
type Ranker interface {
	Rank(ctx context.Context, query string, docs []search.Document, minScore float64, opts ...search.RankOption) ([]search.Result, error)
}

// Config configures a Service. Zero values take the defaults.
type Config struct {
	Limit int
	// UsableScore is the citation threshold. nil means DefaultUsableScore;
	// an explicit zero cites every ranked result with a positive score.
	UsableScore    *float64
	HistoryTurns   int
	ExpansionTurns int
	ExcerptLength  int
}

func (c *Config) applyDefaults() {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.UsableScore == nil || *c.UsableScore < 0 {
		usable := DefaultUsableScore
		c.UsableScore = &usable
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = DefaultHistoryTurns
	}
	if c.ExpansionTurns <= 0 {
		c.ExpansionTurns = DefaultExpansionTurns
	}
	if c.ExcerptLength <= 0 {
		c.ExcerptLength = DefaultExcerptLength
	}
}

// Request is one chat message with its context. Documents must already be
// filtered to what the user may read.
type Request struct {
	Query     string
	History   []Turn
	Documents []search.Document
	// Limit overrides Config.Limit when positive.
	Limit int
}

// Citation points at a document used in a response.
type Citation struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	// RelevanceScore is the total score as a rounded percentage.
	RelevanceScore int    `json:"relevance_score"`
	Excerpt        string `json:"excerpt"`
}

// Answer is the outcome of Retrieve.
type Answer struct {
	Intent   Intent `json:"intent"`
	Response string `json:"response"`
	// Generated is set when a language model wrote Response.
	Generated     bool            `json:"generated"`
	ExpandedQuery string          `json:"expanded_query,omitempty"`
	Results       []search.Result `json:"results"`
	Citations     []Citation      `json:"citations"`
}

// Service answers messages. It is safe for concurrent use.
type Service struct {
	ranker    Ranker
	generator *Generator
	config    Config
	usable    float64
	logger    *logging.Logger
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator lets a language model write document answers and titles.
// Any generation failure falls back to the template responses.
func WithGenerator(g *Generator) Option {
	return func(s *Service) { s.generator = g }
}

// NewService returns a service ranking with ranker. logger may be nil.
func NewService(ranker Ranker, cfg Config, logger *logging.Logger, opts ...Option) (*Service, error) {
	if ranker == nil {
		return nil, fmt.Errorf("ranker is required")
	}
	cfg.applyDefaults()
	s := &Service{
		ranker: ranker,
		config: cfg,
		usable: *cfg.UsableScore,
		logger: logging.OrNop(logger).Named("retrieval"),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Retrieve answers req. Greetings, questions about the assistant and small
// talk get canned replies without ranking. Document queries are ranked
// with the recent user turns folded into the embedded text, and the top
// results above the usability threshold are cited. The only error is a
// ranking failure.
func (s *Service) Retrieve(ctx context.Context, req Request) (*Answer, error) {
	intent := Classify(req.Query)
	ctx, span := s.tracer.Start(ctx, "retrieval.retrieve", trace.WithAttributes(
		attribute.String("intent", intent.String()),
		attribute.Int("candidates", len(req.Documents)),
	))
	defer span.End()

	if intent != IntentDocumentQuery {
		s.logger.Debug(ctx, "answered without ranking", zap.Stringer("intent", intent))
		return &Answer{
			Intent:    intent,
			Response:  CannedResponse(intent, req.Query),
			Results:   []search.Result{},
			Citations: []Citation{},
		}, nil
	}

	limit := s.config.Limit
	if req.Limit > 0 {
		limit = req.Limit
	}

	expanded := ExpandQuery(req.History, req.Query, s.config.HistoryTurns, s.config.ExpansionTurns)
	var opts []search.RankOption
	if expanded != req.Query {
		opts = append(opts, search.WithEmbeddingText(expanded))
	}

	results, err := s.ranker.Rank(ctx, req.Query, withContent(req.Documents), 0, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking failed")
		return nil, fmt.Errorf("ranking documents: %w", err)
	}
	ranked := results
	if len(results) > limit {
		results = results[:limit]
	}

	citations := s.cite(req.Query, results)
	answer := &Answer{
		Intent:        intent,
		ExpandedQuery: expanded,
		Results:       results,
		Citations:     citations,
	}
	if len(citations) == 0 {
		answer.Response = NoDocumentsResponse(req.Query)
	} else {
		answer.Response = ContextualResponse(req.Query, citations, results[0].RelevanceScore)
	}
	if s.generator != nil {
		text, err := s.generator.Answer(ctx, req.Query, req.History, s.promptDocuments(req.Query, ranked))
		if err != nil {
			s.logger.Warn(ctx, "generation failed, using template response", zap.Error(err))
		} else {
			answer.Response = text
			answer.Generated = true
		}
	}

	span.SetAttributes(attribute.Int("citations", len(citations)), attribute.Bool("generated", answer.Generated))
	s.logger.Info(ctx, "retrieved documents",
		zap.Int("candidates", len(req.Documents)),
		zap.Int("results", len(results)),
		zap.Int("citations", len(citations)),
		zap.Bool("expanded", expanded != req.Query))
	return answer, nil
}

// cite builds citations for results that clear the usability threshold.
// results are sorted, so the first miss ends the list.
func (s *Service) cite(query string, results []search.Result) []Citation {
	citations := []Citation{}
	for _, r := range results {
		if r.RelevanceScore <= s.usable {
			break
		}
		citations = append(citations, Citation{
			DocumentID:     r.ID,
			Filename:       r.Filename,
			RelevanceScore: Percent(r.RelevanceScore),
			Excerpt:        Excerpt(query, r.Content, s.config.ExcerptLength),
		})
	}
	return citations
}

// promptDocuments picks up to PromptDocuments ranked results above the
// usability threshold for a generation prompt.
func (s *Service) promptDocuments(query string, ranked []search.Result) []PromptDocument {
	var docs []PromptDocument
	for _, r := range ranked[:min(len(ranked), PromptDocuments)] {
		if r.RelevanceScore <= s.usable {
			break
		}
		docs = append(docs, PromptDocument{
			Filename: r.Filename,
			Score:    r.RelevanceScore,
			Excerpt:  Excerpt(query, r.Content, PromptExcerptLength),
		})
	}
	return docs
}

// Title names a chat after its first message, asking the generator when
// one is configured. See ChatTitle.
func (s *Service) Title(ctx context.Context, message string, maxLength int) string {
	title, err := ChatTitle(ctx, s.generator, message, maxLength)
	if err != nil {
		s.logger.Warn(ctx, "title generation failed, using message", zap.Error(err))
	}
	return title
}

// Percent converts a score in [0,1] to a rounded integer percentage.
func Percent(score float64) int {
	return int(math.Round(math.Min(math.Max(score, 0), 1) * 100))
}

// withContent drops documents without text; they cannot be quoted.
func withContent(docs []search.Document) []search.Document {
	out := make([]search.Document, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Content) != "" {
			out = append(out, d)
		}
	}
	return out
}
