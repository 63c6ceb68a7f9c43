// Package embeddings turns text into fixed-dimension vectors.
//
// Providers wrap a concrete model (in-process ONNX through FastEmbed, a TEI
// server, or an Ollama server). Callers normally go through Lazy, which
// builds the provider once on first use and serializes inference.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates a model or server failure for one call.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrInitFailed indicates the model could not be constructed. It is
	// sticky: every later call on the same holder returns it.
	ErrInitFailed = errors.New("embedding model initialization failed")

	// ErrDimensionMismatch indicates the model returned a vector of the
	// wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Provider generates embeddings with a specific model.
type Provider interface {
	// Embed returns the vector for one non-empty text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the model's vector length.
	Dimension() int
	// Close releases model resources.
	Close() error
}

// ProviderConfig holds configuration for creating a provider.
type ProviderConfig struct {
	// Provider is "fastembed", "tei" or "ollama".
	Provider  string
	Model     string
	Dimension int
	// BaseURL is the server address for tei and ollama.
	BaseURL string
	APIKey  string
	// CacheDir and MaxLength only apply to fastembed.
	CacheDir  string
	MaxLength int
	Timeout   time.Duration
}

// NewProvider creates a provider from cfg.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:     cfg.Model,
			CacheDir:  cfg.CacheDir,
			MaxLength: cfg.MaxLength,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "tei":
		p, err := NewTEIProvider(TEIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			Dimension: dimensionFor(cfg),
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		p, err := NewOllamaProvider(ctx, OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: dimensionFor(cfg),
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

func dimensionFor(cfg ProviderConfig) int {
	if cfg.Dimension > 0 {
		return cfg.Dimension
	}
	return detectDimensionFromModel(cfg.Model)
}

// detectDimensionFromModel guesses a model's dimension from its name,
// falling back to 384.
func detectDimensionFromModel(model string) int {
	if dim, ok := knownModelDimensions[model]; ok {
		return dim
	}
	name := strings.ToLower(model)
	switch {
	case strings.Contains(name, "large"):
		return 1024
	case strings.Contains(name, "base"), strings.Contains(name, "nomic"):
		return 768
	default:
		return 384
	}
}

// knownModelDimensions covers the FastEmbed catalog and common server models.
var knownModelDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"fast-all-MiniLM-L6-v2":                 384,
	"all-minilm":                            384,
	"BAAI/bge-small-en-v1.5":                384,
	"fast-bge-small-en-v1.5":                384,
	"BAAI/bge-small-en":                     384,
	"fast-bge-small-en":                     384,
	"BAAI/bge-base-en-v1.5":                 768,
	"fast-bge-base-en-v1.5":                 768,
	"BAAI/bge-base-en":                      768,
	"fast-bge-base-en":                      768,
	"BAAI/bge-small-zh-v1.5":                512,
	"fast-bge-small-zh-v1.5":                512,
	"nomic-embed-text":                      768,
	"mxbai-embed-large":                     1024,
}

// checkDimension validates every vector against want.
func checkDimension(vectors [][]float32, want int) error {
	for i, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), want)
		}
	}
	return nil
}
