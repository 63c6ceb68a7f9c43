package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaConfig configures embeddings served by an Ollama instance.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	Dimension int
}

// OllamaProvider embeds through langchaingo's Ollama client.
type OllamaProvider struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
	metrics   *Metrics
}

// NewOllamaProvider builds the client. The server is not contacted until the
// first Embed call.
func NewOllamaProvider(_ context.Context, cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: ollama needs base URL and model", ErrInvalidConfig)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be > 0", ErrInvalidConfig)
	}

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating ollama embedder: %w", err)
	}

	return &OllamaProvider{
		embedder:  embedder,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		metrics:   NewMetrics(nil),
	}, nil
}

// Embed returns the vector for one text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (vec []float32, err error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	start := time.Now()
	defer func() {
		p.metrics.RecordGeneration(ctx, p.model, "embed", time.Since(start), 1, err)
	}()

	vec, err = p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if err := checkDimension([][]float32{vec}, p.dimension); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch returns one vector per text.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	start := time.Now()
	defer func() {
		p.metrics.RecordGeneration(ctx, p.model, "embed_batch", time.Since(start), len(texts), err)
	}()

	vectors, err = p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	if err := checkDimension(vectors, p.dimension); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimension returns the configured vector length.
func (p *OllamaProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op.
func (p *OllamaProvider) Close() error {
	return nil
}
