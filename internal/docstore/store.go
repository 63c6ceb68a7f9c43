// Package docstore keeps indexed documents and their cached summaries in a
// chromem-go collection, optionally persisted to disk.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/locket-ai/locket/internal/config"
	"github.com/locket-ai/locket/internal/logging"
	"github.com/locket-ai/locket/internal/search"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for an unknown document id.
	ErrNotFound = errors.New("document not found")

	// ErrNotIndexed is returned when a document is stored without a usable
	// embedding.
	ErrNotIndexed = errors.New("document has no usable embedding")
)

const (
	metaFilename           = "filename"
	metaContentPreview     = "content_preview"
	metaSummary            = "summary"
	metaSummaryGeneratedAt = "summary_generated_at"

	tracerName = "github.com/locket-ai/locket/internal/docstore"
)

var tracer = otel.Tracer(tracerName)

// Config configures a Store.
type Config struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path       string
	Collection string
	Compress   bool
	Dimension  int
}

// Record is a stored document with its derived fields.
type Record struct {
	search.Document
	ContentPreview     string    `json:"content_preview"`
	Summary            string    `json:"summary,omitempty"`
	SummaryGeneratedAt time.Time `json:"summary_generated_at,omitempty"`
}

// Store is a chromem-backed document store. It is safe for concurrent use.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
	logger     *logging.Logger
}

// Open opens or creates the store described by cfg. logger may be nil.
func Open(cfg Config, logger *logging.Logger) (*Store, error) {
	logger = logging.OrNop(logger).Named("docstore")
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be > 0")
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := config.ExpandHome(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding store path: %w", err)
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", path, err)
		}
		if db, err = openPersistent(path, cfg.Compress, logger); err != nil {
			return nil, fmt.Errorf("opening store %s: %w", path, err)
		}
	}

	// chromem falls back to a remote embedder when none is given. Documents
	// always arrive embedded, so refuse any attempt to embed here.
	refuse := func(context.Context, string) ([]float32, error) {
		return nil, ErrNotIndexed
	}
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, refuse)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", cfg.Collection, err)
	}

	logger.Debug(context.Background(), "document store opened",
		zap.String("path", cfg.Path),
		zap.String("collection", cfg.Collection),
		zap.Int("documents", collection.Count()))

	return &Store{db: db, collection: collection, dimension: cfg.Dimension, logger: logger}, nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Put inserts or replaces a document. The embedding must have the store
// dimension and a non-zero norm. A stored summary survives when the
// content is unchanged and is dropped otherwise.
func (s *Store) Put(ctx context.Context, doc search.Document, preview string) error {
	ctx, span := tracer.Start(ctx, "docstore.put")
	defer span.End()
	span.SetAttributes(attribute.Int64("document.id", doc.ID))

	if err := doc.Validate(s.dimension); err != nil {
		return err
	}
	if !usable(doc.Embedding, s.dimension) {
		return fmt.Errorf("%w: document %d", ErrNotIndexed, doc.ID)
	}

	meta := map[string]string{
		metaFilename:       doc.Filename,
		metaContentPreview: preview,
	}
	if prev, err := s.collection.GetByID(ctx, formatID(doc.ID)); err == nil && prev.Content == doc.Content {
		if summary, ok := prev.Metadata[metaSummary]; ok {
			meta[metaSummary] = summary
			meta[metaSummaryGeneratedAt] = prev.Metadata[metaSummaryGeneratedAt]
			span.SetAttributes(attribute.Bool("summary.kept", true))
		}
	}

	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:        formatID(doc.ID),
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Metadata:  meta,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("storing document %d: %w", doc.ID, err)
	}
	return nil
}

// Get returns the document with id.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	doc, err := s.collection.GetByID(ctx, formatID(id))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return toRecord(doc.ID, doc.Content, doc.Embedding, doc.Metadata)
}

// List returns every document ordered by id.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "docstore.list")
	defer span.End()

	n := s.collection.Count()
	if n == 0 {
		return []Record{}, nil
	}

	// chromem has no scan; a full-size query returns every document.
	probe := make([]float32, s.dimension)
	probe[0] = 1
	results, err := s.collection.QueryEmbedding(ctx, probe, n, nil, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	records := make([]Record, 0, len(results))
	for _, r := range results {
		rec, err := toRecord(r.ID, r.Content, r.Embedding, r.Metadata)
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable document", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	span.SetAttributes(attribute.Int("documents", len(records)))
	return records, nil
}

// Documents returns every stored document in ranking form.
func (s *Store) Documents(ctx context.Context) ([]search.Document, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Document, len(records))
	for i, r := range records {
		docs[i] = r.Document
	}
	return docs, nil
}

// NextID returns one more than the largest stored id.
func (s *Store) NextID(ctx context.Context) (int64, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 1, nil
	}
	return records[len(records)-1].ID + 1, nil
}

// Delete removes the document with id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.collection.GetByID(ctx, formatID(id)); err != nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err := s.collection.Delete(ctx, nil, nil, formatID(id)); err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	return nil
}

// LoadSummary returns the cached summary of docID, if any.
func (s *Store) LoadSummary(ctx context.Context, docID int64) (string, time.Time, bool, error) {
	doc, err := s.collection.GetByID(ctx, formatID(docID))
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("%w: %d", ErrNotFound, docID)
	}
	summary, ok := doc.Metadata[metaSummary]
	if !ok {
		return "", time.Time{}, false, nil
	}
	at, err := time.Parse(time.RFC3339Nano, doc.Metadata[metaSummaryGeneratedAt])
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("parsing summary time of document %d: %w", docID, err)
	}
	return summary, at, true, nil
}

// StoreSummary caches summary on docID.
func (s *Store) StoreSummary(ctx context.Context, docID int64, summary string, generatedAt time.Time) error {
	doc, err := s.collection.GetByID(ctx, formatID(docID))
	if err != nil {
		return fmt.Errorf("%w: %d", ErrNotFound, docID)
	}
	meta := make(map[string]string, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta[metaSummary] = summary
	meta[metaSummaryGeneratedAt] = generatedAt.UTC().Format(time.RFC3339Nano)
	doc.Metadata = meta

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("storing summary of document %d: %w", docID, err)
	}
	return nil
}

func toRecord(id, content string, embedding []float32, meta map[string]string) (Record, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid document id %q: %w", id, err)
	}
	rec := Record{
		Document: search.Document{
			ID:        n,
			Filename:  meta[metaFilename],
			Content:   content,
			Embedding: embedding,
		},
		ContentPreview: meta[metaContentPreview],
		Summary:        meta[metaSummary],
	}
	if v := meta[metaSummaryGeneratedAt]; v != "" {
		if at, err := time.Parse(time.RFC3339Nano, v); err == nil {
			rec.SummaryGeneratedAt = at
		}
	}
	return rec, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// usable reports whether v can be stored: chromem normalizes vectors, so a
// zero vector would become NaN.
func usable(v []float32, dim int) bool {
	if len(v) != dim {
		return false
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	return norm > 0 && !math.IsNaN(norm) && !math.IsInf(norm, 0)
}
