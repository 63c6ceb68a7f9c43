package embeddings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/locket-ai/locket/internal/logging"
	"go.uber.org/zap"
)

// Factory constructs the underlying provider.
type Factory func(ctx context.Context) (Provider, error)

// Lazy holds a provider that is built on first use.
//
// The factory runs at most once per Lazy, even under concurrent callers.
// A factory error is kept and returned, wrapped in ErrInitFailed, by every
// later call. Inference is serialized with a mutex because the ONNX
// session behind FastEmbed is not documented as safe for concurrent use.
type Lazy struct {
	factory   Factory
	dimension int
	logger    *logging.Logger

	once     sync.Once
	provider Provider
	initErr  error

	mu     sync.Mutex
	closed bool
}

// NewLazy returns a holder producing vectors of length dimension.
func NewLazy(dimension int, factory Factory, logger *logging.Logger) *Lazy {
	return &Lazy{
		factory:   factory,
		dimension: dimension,
		logger:    logging.OrNop(logger).Named("embeddings"),
	}
}

// Init builds the provider if it has not been built yet. Call it at startup
// to turn a broken model into a boot failure instead of a first-request one.
func (l *Lazy) Init(ctx context.Context) error {
	_, err := l.get(ctx)
	return err
}

func (l *Lazy) get(ctx context.Context) (Provider, error) {
	l.once.Do(func() {
		start := time.Now()
		p, err := l.factory(ctx)
		if err != nil {
			l.initErr = fmt.Errorf("%w: %v", ErrInitFailed, err)
			l.logger.Error(ctx, "embedding model failed to load", zap.Error(err))
			return
		}
		if p.Dimension() != l.dimension {
			_ = p.Close()
			l.initErr = fmt.Errorf("%w: %w: model has %d dimensions, configured %d",
				ErrInitFailed, ErrDimensionMismatch, p.Dimension(), l.dimension)
			l.logger.Error(ctx, "embedding model dimension mismatch", zap.Error(l.initErr))
			return
		}
		l.provider = p
		l.logger.Info(ctx, "embedding model loaded",
			zap.Int("dimension", p.Dimension()),
			zap.Duration("took", time.Since(start)))
	})
	return l.provider, l.initErr
}

// Dimension returns the configured vector length.
func (l *Lazy) Dimension() int {
	return l.dimension
}

// Embed returns the vector for text. Empty or whitespace-only text yields
// the zero vector without touching the model.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, l.dimension), nil
	}
	p, err := l.get(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, fmt.Errorf("%w: provider closed", ErrEmbeddingFailed)
	}

	vec, err := p.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != l.dimension {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(vec), l.dimension)
	}
	return vec, nil
}

// EmbedBatch embeds texts in one model call. Blank texts get zero vectors.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var pending []string
	var slots []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = make([]float32, l.dimension)
			continue
		}
		pending = append(pending, t)
		slots = append(slots, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	p, err := l.get(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, fmt.Errorf("%w: provider closed", ErrEmbeddingFailed)
	}

	vectors, err := p.EmbedBatch(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(pending) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(pending))
	}
	if err := checkDimension(vectors, l.dimension); err != nil {
		return nil, err
	}
	for j, i := range slots {
		out[i] = vectors[j]
	}
	return out, nil
}

// Close releases the provider if it was built. Later Embed calls on
// non-blank text fail, and a provider that was never built never will be.
func (l *Lazy) Close() error {
	l.once.Do(func() {
		l.initErr = fmt.Errorf("%w: provider closed", ErrEmbeddingFailed)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.provider != nil {
		return l.provider.Close()
	}
	return nil
}
