package embeddings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/locket-ai/locket/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// fakeProvider returns len(text) in the first slot of each vector.
type fakeProvider struct {
	dim    int
	calls  atomic.Int64
	closed atomic.Bool
	fail   error
}

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.fail != nil {
		return nil, f.fail
	}
	v := make([]float32, f.dim)
	v[0] = float32(len(text))
	return v, nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeProvider) Dimension() int { return f.dim }

func (f *fakeProvider) Close() error {
	f.closed.Store(true)
	return nil
}

func TestLazy_BlankTextSkipsModel(t *testing.T) {
	var built atomic.Int64
	l := NewLazy(8, func(context.Context) (Provider, error) {
		built.Add(1)
		return &fakeProvider{dim: 8}, nil
	}, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		vec, err := l.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, make([]float32, 8), vec)
	}
	assert.Zero(t, built.Load())
}

func TestLazy_SingleInitUnderConcurrency(t *testing.T) {
	var built atomic.Int64
	fake := &fakeProvider{dim: 4}
	l := NewLazy(4, func(context.Context) (Provider, error) {
		built.Add(1)
		return fake, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Embed(context.Background(), "refund policy")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), built.Load())
	assert.Equal(t, int64(32), fake.calls.Load())
}

func TestLazy_Deterministic(t *testing.T) {
	l := NewLazy(4, func(context.Context) (Provider, error) {
		return &fakeProvider{dim: 4}, nil
	}, nil)

	a, err := l.Embed(context.Background(), "same input")
	require.NoError(t, err)
	b, err := l.Embed(context.Background(), "same input")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLazy_InitFailureIsSticky(t *testing.T) {
	var built atomic.Int64
	logger := logging.NewTestLogger()
	l := NewLazy(4, func(context.Context) (Provider, error) {
		built.Add(1)
		return nil, errors.New("model file missing")
	}, logger.Logger)

	err := l.Init(context.Background())
	require.ErrorIs(t, err, ErrInitFailed)

	_, err = l.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, ErrInitFailed)
	assert.Equal(t, int64(1), built.Load())
	logger.AssertLogged(t, zapcore.ErrorLevel, "embedding model failed to load")
}

func TestLazy_DimensionMismatchFailsInit(t *testing.T) {
	fake := &fakeProvider{dim: 768}
	l := NewLazy(384, func(context.Context) (Provider, error) {
		return fake, nil
	}, nil)

	err := l.Init(context.Background())
	require.ErrorIs(t, err, ErrInitFailed)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.True(t, fake.closed.Load())
}

func TestLazy_EmbedBatchMixesBlankAndText(t *testing.T) {
	fake := &fakeProvider{dim: 3}
	l := NewLazy(3, func(context.Context) (Provider, error) { return fake, nil }, nil)

	vectors, err := l.EmbedBatch(context.Background(), []string{"abc", " ", "hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(3), vectors[0][0])
	assert.Equal(t, []float32{0, 0, 0}, vectors[1])
	assert.Equal(t, float32(5), vectors[2][0])
	assert.Equal(t, int64(2), fake.calls.Load())
}

func TestLazy_ProviderErrorPassesThrough(t *testing.T) {
	boom := errors.New("onnx session crashed")
	l := NewLazy(2, func(context.Context) (Provider, error) {
		return &fakeProvider{dim: 2, fail: boom}, nil
	}, nil)

	_, err := l.Embed(context.Background(), "text")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInitFailed)
}

func TestLazy_Close(t *testing.T) {
	fake := &fakeProvider{dim: 2}
	l := NewLazy(2, func(context.Context) (Provider, error) { return fake, nil }, nil)
	require.NoError(t, l.Init(context.Background()))

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.True(t, fake.closed.Load())

	_, err := l.Embed(context.Background(), "after close")
	require.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestLazy_CloseBeforeInitNeverBuilds(t *testing.T) {
	var built atomic.Int64
	l := NewLazy(2, func(context.Context) (Provider, error) {
		built.Add(1)
		return &fakeProvider{dim: 2}, nil
	}, nil)

	require.NoError(t, l.Close())

	_, err := l.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	_, err = l.EmbedBatch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	require.ErrorIs(t, l.Init(context.Background()), ErrEmbeddingFailed)

	require.NoError(t, l.Close())
	assert.Zero(t, built.Load())
}
