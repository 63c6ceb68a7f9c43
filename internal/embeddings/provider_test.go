package embeddings

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/locket-ai/locket/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, ProviderConfig{Provider: "tei", BaseURL: "http://localhost:8080", Model: "BAAI/bge-base-en-v1.5"})
	require.NoError(t, err)
	assert.Equal(t, 768, p.Dimension())

	p, err = NewProvider(ctx, ProviderConfig{Provider: "tei", BaseURL: "http://localhost:8080", Dimension: 384, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 384, p.Dimension())

	p, err = NewProvider(ctx, ProviderConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "all-minilm"})
	require.NoError(t, err)
	assert.Equal(t, 384, p.Dimension())

	_, err = NewProvider(ctx, ProviderConfig{Provider: "ollama", BaseURL: "http://localhost:11434"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewProvider(ctx, ProviderConfig{Provider: "word2vec"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDetectDimensionFromModel(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"sentence-transformers/all-MiniLM-L6-v2", 384},
		{"BAAI/bge-small-zh-v1.5", 512},
		{"nomic-embed-text", 768},
		{"intfloat/e5-large-v2", 1024},
		{"some-org/custom-base", 768},
		{"unknown", 384},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDimensionFromModel(tt.model))
		})
	}
}

func TestCheckDimension(t *testing.T) {
	require.NoError(t, checkDimension([][]float32{{1, 2}, {3, 4}}, 2))
	err := checkDimension([][]float32{{1, 2}, {3}}, 2)
	require.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGeneration(context.Background(), "m", "embed", time.Millisecond, 1, nil)
	})
	assert.NotPanics(t, func() {
		NewMetrics(nil).RecordGeneration(context.Background(), "m", "embed", time.Millisecond, 3, errors.New("x"))
	})
}

func TestMetrics_RecordsErrors(t *testing.T) {
	rec := telemetry.Install(t)
	m := NewMetrics(nil)

	m.RecordGeneration(context.Background(), "bge", "embed", 20*time.Millisecond, 1, errors.New("timeout"))

	_, ok := rec.Metric(t, "locket.embedding.errors_total")
	assert.True(t, ok)
	_, ok = rec.Metric(t, "locket.embedding.duration_seconds")
	assert.True(t, ok)
}

func TestExtractONNXLibrary(t *testing.T) {
	prefix := "onnxruntime-linux-x64-1.23.0/lib/"

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	files := map[string]string{
		prefix + "libonnxruntime.so.1.23.0":       "binary",
		"onnxruntime-linux-x64-1.23.0/README.md": "docs",
	}
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: prefix + "libonnxruntime.so", Linkname: "libonnxruntime.so.1.23.0", Typeflag: tar.TypeSymlink}))
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	dest := t.TempDir()
	path, err := extractONNXLibrary(&buf, dest, prefix, "libonnxruntime.so")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "libonnxruntime.so"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(content))

	_, err = os.Stat(filepath.Join(dest, "README.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocateONNXRuntime_EnvOverride(t *testing.T) {
	t.Setenv("ONNX_PATH", "/opt/onnx/libonnxruntime.so")
	assert.Equal(t, "/opt/onnx/libonnxruntime.so", LocateONNXRuntime())
}
