package summarizer

import (
	"context"
	"time"

	"github.com/locket-ai/locket/internal/logging"
	"go.uber.org/zap"
)

// DefaultFreshness is how long a stored summary is served before it is
// regenerated.
const DefaultFreshness = 30 * 24 * time.Hour

// Cache stores one summary per document.
type Cache interface {
	// LoadSummary returns ok=false when no summary is stored.
	LoadSummary(ctx context.Context, docID int64) (summary string, generatedAt time.Time, ok bool, err error)
	StoreSummary(ctx context.Context, docID int64, summary string, generatedAt time.Time) error
}

// Summary is a summary with its generation time.
type Summary struct {
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
	IsCached    bool      `json:"is_cached"`
}

// Cached serves summaries from a Cache while they are fresh.
type Cached struct {
	summarizer *Summarizer
	cache      Cache
	freshness  time.Duration
	now        func() time.Time
	logger     *logging.Logger
}

// CachedOption configures a Cached.
type CachedOption func(*Cached)

// WithFreshness sets the window after which a stored summary is rebuilt.
func WithFreshness(d time.Duration) CachedOption {
	return func(c *Cached) {
		if d > 0 {
			c.freshness = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CachedOption {
	return func(c *Cached) {
		c.now = now
	}
}

// NewCached wraps s with cache. logger may be nil.
func NewCached(s *Summarizer, cache Cache, logger *logging.Logger, opts ...CachedOption) *Cached {
	c := &Cached{
		summarizer: s,
		cache:      cache,
		freshness:  DefaultFreshness,
		now:        time.Now,
		logger:     logging.OrNop(logger).Named("summarizer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored summary of docID when it is younger than the
// freshness window and force is false. Otherwise it summarizes content,
// stores the result and returns it with IsCached false. Cache failures are
// logged and never surface to the caller.
func (c *Cached) Get(ctx context.Context, docID int64, content string, maxSentences int, force bool) Summary {
	ctx = logging.WithDocumentID(ctx, docID)
	now := c.now().UTC()

	if !force {
		text, at, ok, err := c.cache.LoadSummary(ctx, docID)
		switch {
		case err != nil:
			c.logger.Warn(ctx, "loading cached summary failed", zap.Error(err))
		case ok && now.Sub(at) < c.freshness:
			return Summary{Summary: text, GeneratedAt: at, IsCached: true}
		case ok:
			c.logger.Debug(ctx, "cached summary expired", zap.Time("generated_at", at))
		}
	}

	text := c.summarizer.Summarize(ctx, content, maxSentences)
	if err := c.cache.StoreSummary(ctx, docID, text, now); err != nil {
		c.logger.Warn(ctx, "storing summary failed", zap.Error(err))
	}
	return Summary{Summary: text, GeneratedAt: now, IsCached: false}
}
