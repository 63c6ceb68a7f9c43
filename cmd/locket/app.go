package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/locket-ai/locket/internal/config"
	"github.com/locket-ai/locket/internal/docstore"
	"github.com/locket-ai/locket/internal/embeddings"
	"github.com/locket-ai/locket/internal/logging"
	"github.com/locket-ai/locket/internal/retrieval"
	"github.com/locket-ai/locket/internal/search"
	"github.com/locket-ai/locket/internal/summarizer"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// embedder is what the application needs from an embedding holder.
type embedder interface {
	search.Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// app wires the store, ranking engine, summarizer and retrieval service.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	embedder  embedder
	closer    func() error
	store     *docstore.Store
	indexer   *search.Indexer
	engine    *search.Engine
	summaries *summarizer.Cached
	retrieval *retrieval.Service
}

// bootstrap loads the embedding model and opens the store.
func bootstrap(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	lazy := newEmbedder(cfg.Embeddings, logger)
	if err := lazy.Init(ctx); err != nil {
		return nil, err
	}
	a, err := newApp(cfg, lazy, logger)
	if err != nil {
		_ = lazy.Close()
		return nil, err
	}
	a.closer = lazy.Close
	return a, nil
}

func newEmbedder(ec config.EmbeddingsConfig, logger *logging.Logger) *embeddings.Lazy {
	return embeddings.NewLazy(ec.Dimension, func(ctx context.Context) (embeddings.Provider, error) {
		cacheDir, err := config.ExpandHome(ec.CacheDir)
		if err != nil {
			return nil, err
		}
		return embeddings.NewProvider(ctx, embeddings.ProviderConfig{
			Provider:  ec.Provider,
			Model:     ec.Model,
			Dimension: ec.Dimension,
			BaseURL:   ec.BaseURL,
			APIKey:    ec.APIKey.Value(),
			CacheDir:  cacheDir,
			MaxLength: ec.MaxLength,
			Timeout:   ec.Timeout.Duration(),
		})
	}, logger)
}

// newGenerator builds the chat model client. An empty provider returns
// nil and chat keeps the template responses. Ollama is not contacted
// until the first answer.
func newGenerator(cc config.ChatConfig) (*retrieval.Generator, error) {
	switch cc.Provider {
	case "":
		return nil, nil
	case "ollama":
		llm, err := ollama.New(ollama.WithServerURL(cc.BaseURL), ollama.WithModel(cc.Model))
		if err != nil {
			return nil, fmt.Errorf("creating chat model: %w", err)
		}
		return retrieval.NewGenerator(llm,
			retrieval.WithTemperature(cc.Temperature),
			retrieval.WithMaxTokens(cc.MaxTokens),
			retrieval.WithTimeout(cc.Timeout.Duration()))
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cc.Provider)
	}
}

// newApp builds the application around emb.
func newApp(cfg *config.Config, emb embedder, logger *logging.Logger) (*app, error) {
	weights, err := search.WeightsForPreset(cfg.Ranking.Preset)
	if err != nil {
		return nil, err
	}
	engine, err := search.NewEngine(emb, search.Config{
		Weights:       weights,
		Dimension:     cfg.Embeddings.Dimension,
		SnippetLength: cfg.Ranking.SnippetLength,
		Workers:       cfg.Ranking.Workers,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	store, err := docstore.Open(docstore.Config{
		Path:       cfg.Store.Path,
		Collection: cfg.Store.Collection,
		Compress:   cfg.Store.Compress,
		Dimension:  cfg.Embeddings.Dimension,
	}, logger)
	if err != nil {
		return nil, err
	}

	gen, err := newGenerator(cfg.Chat)
	if err != nil {
		return nil, err
	}
	var opts []retrieval.Option
	if gen != nil {
		opts = append(opts, retrieval.WithGenerator(gen))
	}
	svc, err := retrieval.NewService(engine, retrieval.Config{
		Limit:          cfg.Retrieval.Limit,
		UsableScore:    &cfg.Retrieval.UsableScore,
		HistoryTurns:   cfg.Retrieval.HistoryTurns,
		ExpansionTurns: cfg.Retrieval.ExpansionTurns,
	}, logger, opts...)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		embedder: emb,
		store:    store,
		indexer:  search.NewIndexer(emb),
		engine:   engine,
		summaries: summarizer.NewCached(summarizer.New(emb, logger), store, logger,
			summarizer.WithFreshness(cfg.Summarizer.Freshness.Duration())),
		retrieval: svc,
	}, nil
}

// Close releases the embedding model.
func (a *app) Close() {
	if a.closer != nil {
		_ = a.closer()
	}
}

// index embeds and stores one document. id 0 assigns the next free id.
func (a *app) index(ctx context.Context, id int64, filename, content string) (docstore.Record, error) {
	if strings.TrimSpace(filename) == "" {
		return docstore.Record{}, fmt.Errorf("filename is required")
	}
	if id == 0 {
		next, err := a.store.NextID(ctx)
		if err != nil {
			return docstore.Record{}, err
		}
		id = next
	}
	ctx = logging.WithDocumentID(ctx, id)

	res, err := a.indexer.Index(ctx, content, filename)
	if err != nil {
		return docstore.Record{}, err
	}
	doc := search.Document{ID: id, Filename: filename, Content: content, Embedding: res.Embedding}
	if err := a.store.Put(ctx, doc, res.ContentPreview); err != nil {
		return docstore.Record{}, err
	}
	a.logger.Info(ctx, "indexed document", zap.String("filename", filename), zap.Int("content_length", len(content)))
	return docstore.Record{Document: doc, ContentPreview: res.ContentPreview}, nil
}

// reindex recomputes the embedding and preview of every stored document.
func (a *app) reindex(ctx context.Context) (int, error) {
	records, err := a.store.List(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, r := range records {
		if _, err := a.index(ctx, r.ID, r.Filename, r.Content); err != nil {
			a.logger.Warn(logging.WithDocumentID(ctx, r.ID), "reindex failed", zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

func (a *app) search(ctx context.Context, query string, minScore float64) (*search.Response, error) {
	docs, err := a.store.Documents(ctx)
	if err != nil {
		return nil, err
	}
	return a.engine.Search(ctx, query, docs, minScore)
}

func (a *app) summarize(ctx context.Context, id int64, sentences int, force bool) (summarizer.Summary, error) {
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		return summarizer.Summary{}, err
	}
	if sentences <= 0 {
		sentences = a.cfg.Summarizer.MaxSentences
	}
	return a.summaries.Get(ctx, id, rec.Content, sentences, force), nil
}

func (a *app) chat(ctx context.Context, query string, history []retrieval.Turn, limit int) (*retrieval.Answer, error) {
	docs, err := a.store.Documents(ctx)
	if err != nil {
		return nil, err
	}
	return a.retrieval.Retrieve(ctx, retrieval.Request{
		Query:     query,
		History:   history,
		Documents: docs,
		Limit:     limit,
	})
}
