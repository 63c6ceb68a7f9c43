package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teiServer(t *testing.T, dim int, status int) (*httptest.Server, *[]teiRequest, *[]string) {
	t.Helper()
	var requests []teiRequest
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = append(auth, r.Header.Get("Authorization"))

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("model overloaded"))
			return
		}
		out := make([][]float32, len(req.Inputs))
		for i := range req.Inputs {
			out[i] = make([]float32, dim)
			out[i][0] = float32(i + 1)
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests, &auth
}

func TestNewTEIProvider_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TEIConfig
		wantErr string
	}{
		{name: "valid", cfg: TEIConfig{BaseURL: "http://localhost:8080", Dimension: 384}},
		{name: "missing url", cfg: TEIConfig{Dimension: 384}, wantErr: "base URL required"},
		{name: "missing dimension", cfg: TEIConfig{BaseURL: "http://localhost:8080"}, wantErr: "dimension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewTEIProvider(tt.cfg)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 384, p.Dimension())
			assert.NoError(t, p.Close())
		})
	}
}

func TestTEIProvider_Embed(t *testing.T) {
	srv, requests, auth := teiServer(t, 4, http.StatusOK)
	p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL + "/", Model: "bge", APIKey: "sk-1", Dimension: 4})
	require.NoError(t, err)

	vec, err := p.Embed(context.Background(), "refund policy")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, vec)

	require.Len(t, *requests, 1)
	assert.Equal(t, []string{"refund policy"}, (*requests)[0].Inputs)
	assert.True(t, (*requests)[0].Truncate)
	assert.Equal(t, "Bearer sk-1", (*auth)[0])
}

func TestTEIProvider_EmbedBatch(t *testing.T) {
	srv, _, auth := teiServer(t, 2, http.StatusOK)
	p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL, Dimension: 2})
	require.NoError(t, err)

	vectors, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(3), vectors[2][0])
	assert.Empty(t, (*auth)[0])
}

func TestTEIProvider_Errors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		p, err := NewTEIProvider(TEIConfig{BaseURL: "http://127.0.0.1:1", Dimension: 2})
		require.NoError(t, err)
		_, err = p.Embed(context.Background(), "")
		require.ErrorIs(t, err, ErrEmptyInput)
		_, err = p.EmbedBatch(context.Background(), nil)
		require.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("server error", func(t *testing.T) {
		srv, _, _ := teiServer(t, 2, http.StatusServiceUnavailable)
		p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL, Dimension: 2})
		require.NoError(t, err)
		_, err = p.Embed(context.Background(), "text")
		require.ErrorIs(t, err, ErrEmbeddingFailed)
		assert.Contains(t, err.Error(), "model overloaded")
	})

	t.Run("wrong dimension", func(t *testing.T) {
		srv, _, _ := teiServer(t, 3, http.StatusOK)
		p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL, Dimension: 384})
		require.NoError(t, err)
		_, err = p.Embed(context.Background(), "text")
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})
}
