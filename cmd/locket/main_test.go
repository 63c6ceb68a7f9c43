package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/locket-ai/locket/internal/config"
	"github.com/locket-ai/locket/internal/docstore"
	"github.com/locket-ai/locket/internal/logging"
	"github.com/locket-ai/locket/internal/retrieval"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// topicEmbedder places text on one axis per topic word it mentions.
type topicEmbedder struct{}

var topics = []string{"refund", "vacation", "security", "parking"}

func (topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	v := make([]float32, len(topics))
	for i, topic := range topics {
		if strings.Contains(lower, topic) {
			v[i] = 1
		}
	}
	return v, nil
}

func (e topicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func newTestApp(t *testing.T) (*app, *logging.TestLogger) {
	t.Helper()
	cfg := config.Default()
	cfg.Embeddings.Dimension = len(topics)
	cfg.Store.Path = ""
	logger := logging.NewTestLogger()
	a, err := newApp(cfg, topicEmbedder{}, logger.Logger)
	require.NoError(t, err)
	return a, logger
}

func indexFixtures(t *testing.T, a *app) {
	t.Helper()
	ctx := context.Background()
	_, err := a.index(ctx, 0, "refund-policy.txt", "Customers may request a refund within thirty days of purchase.")
	require.NoError(t, err)
	_, err = a.index(ctx, 0, "vacation.txt", "Employees accrue vacation days every month and may carry five over.")
	require.NoError(t, err)
	_, err = a.index(ctx, 0, "parking.txt", "Parking permits are issued by the front desk.")
	require.NoError(t, err)
}

func TestApp_IndexAssignsIDs(t *testing.T) {
	a, _ := newTestApp(t)
	indexFixtures(t, a)

	records, err := a.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, "refund-policy.txt", records[0].Filename)
	assert.Equal(t, int64(3), records[2].ID)
	assert.Equal(t, "Parking permits are issued by the front desk.", records[2].ContentPreview)
}

func TestApp_IndexReplacesByID(t *testing.T) {
	a, _ := newTestApp(t)
	indexFixtures(t, a)

	rec, err := a.index(context.Background(), 2, "vacation.txt", "Vacation requests go through the HR portal.")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.ID)
	assert.Equal(t, 3, a.store.Count())

	got, err := a.store.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Vacation requests go through the HR portal.", got.Content)
}

func TestApp_IndexRequiresFilename(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := a.index(context.Background(), 0, "  ", "text")
	require.Error(t, err)
}

func TestApp_IndexRejectsUnembeddableDocument(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := a.index(context.Background(), 0, "misc.txt", "nothing on any axis")
	require.ErrorIs(t, err, docstore.ErrNotIndexed)
	assert.Zero(t, a.store.Count())
}

func TestApp_Reindex(t *testing.T) {
	a, _ := newTestApp(t)
	indexFixtures(t, a)
	first, err := a.summarize(context.Background(), 1, 0, false)
	require.NoError(t, err)
	assert.False(t, first.IsCached)

	n, err := a.reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, a.store.Count())

	again, err := a.summarize(context.Background(), 1, 0, false)
	require.NoError(t, err)
	assert.True(t, again.IsCached)
	assert.Equal(t, first.Summary, again.Summary)
}

func TestApp_Search(t *testing.T) {
	a, _ := newTestApp(t)
	indexFixtures(t, a)

	resp, err := a.search(context.Background(), "refund", 0)
	require.NoError(t, err)
	assert.Equal(t, "refund", resp.Query)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "refund-policy.txt", resp.Results[0].Filename)
	assert.Equal(t, resp.TotalResults, len(resp.Results))
}

func TestApp_SearchEmptyStore(t *testing.T) {
	a, _ := newTestApp(t)
	resp, err := a.search(context.Background(), "refund", 0)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestApp_SummarizeCaches(t *testing.T) {
	a, _ := newTestApp(t)
	content := "Parking is available behind the building for all staff members. " +
		"Parking permits are renewed at the front desk every spring."
	_, err := a.index(context.Background(), 4, "parking.txt", content)
	require.NoError(t, err)

	first, err := a.summarize(context.Background(), 4, 0, false)
	require.NoError(t, err)
	assert.False(t, first.IsCached)
	assert.NotEmpty(t, first.Summary)

	second, err := a.summarize(context.Background(), 4, 0, false)
	require.NoError(t, err)
	assert.True(t, second.IsCached)
	assert.Equal(t, first.Summary, second.Summary)

	forced, err := a.summarize(context.Background(), 4, 0, true)
	require.NoError(t, err)
	assert.False(t, forced.IsCached)
}

func TestApp_SummarizeMissing(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := a.summarize(context.Background(), 99, 0, false)
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestApp_Chat(t *testing.T) {
	a, _ := newTestApp(t)
	indexFixtures(t, a)
	ctx := context.Background()

	t.Run("greeting skips retrieval", func(t *testing.T) {
		answer, err := a.chat(ctx, "hello", nil, 0)
		require.NoError(t, err)
		assert.Equal(t, retrieval.IntentGreeting, answer.Intent)
		assert.Empty(t, answer.Citations)
	})

	t.Run("question cites the matching document", func(t *testing.T) {
		answer, err := a.chat(ctx, "How do I get a refund?", nil, 0)
		require.NoError(t, err)
		assert.Equal(t, retrieval.IntentDocumentQuery, answer.Intent)
		require.NotEmpty(t, answer.Citations)
		assert.Equal(t, "refund-policy.txt", answer.Citations[0].Filename)
	})

	t.Run("history sharpens a follow-up", func(t *testing.T) {
		history := []retrieval.Turn{
			{Role: retrieval.RoleUser, Content: "tell me about vacation"},
			{Role: retrieval.RoleAssistant, Content: "Employees accrue days monthly."},
		}
		answer, err := a.chat(ctx, "how many can I carry over", history, 0)
		require.NoError(t, err)
		assert.Contains(t, answer.ExpandedQuery, "vacation")
		require.NotEmpty(t, answer.Citations)
		assert.Equal(t, "vacation.txt", answer.Citations[0].Filename)
	})
}

func TestTitleCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	titleCmd.SetOut(&out)
	t.Cleanup(func() { titleCmd.SetOut(nil) })

	require.NoError(t, titleCmd.RunE(titleCmd, []string{"What", "is", "the", "refund", "window?"}))
	assert.JSONEq(t, `{"title": "What is the refund window?"}`, out.String())
}

func TestNewGenerator(t *testing.T) {
	cfg := config.Default()
	gen, err := newGenerator(cfg.Chat)
	require.NoError(t, err)
	assert.Nil(t, gen)

	cfg.Chat.Provider = "ollama"
	gen, err = newGenerator(cfg.Chat)
	require.NoError(t, err)
	assert.NotNil(t, gen)

	cfg.Chat.Provider = "openai"
	_, err = newGenerator(cfg.Chat)
	require.Error(t, err)
}

func TestApp_ChatFallsBackWhenModelUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"model is loading"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Embeddings.Dimension = len(topics)
	cfg.Store.Path = ""
	cfg.Chat.Provider = "ollama"
	cfg.Chat.BaseURL = srv.URL
	logger := logging.NewTestLogger()
	a, err := newApp(cfg, topicEmbedder{}, logger.Logger)
	require.NoError(t, err)
	indexFixtures(t, a)

	answer, err := a.chat(context.Background(), "what is the refund window for purchases?", nil, 0)
	require.NoError(t, err)
	assert.False(t, answer.Generated)
	require.NotEmpty(t, answer.Citations)
	assert.Contains(t, answer.Response, "refund")
	logger.AssertLogged(t, zapcore.WarnLevel, "generation failed, using template response")
}

func TestReadInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("from stdin"))

	got, err := readInput(cmd, "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))
	got, err = readInput(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	_, err = readInput(cmd, filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestLoadHistory(t *testing.T) {
	dir := t.TempDir()

	turns, err := loadHistory("")
	require.NoError(t, err)
	assert.Nil(t, turns)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`), 0o600))
	turns, err = loadHistory(good)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, retrieval.RoleAssistant, turns[1].Role)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"role":"system","content":"x"}]`), 0o600))
	_, err = loadHistory(bad)
	require.ErrorContains(t, err, "unknown role")
}

func TestParseID(t *testing.T) {
	id, err := parseID("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, s := range []string{"0", "-3", "abc"} {
		_, err := parseID(s)
		assert.Error(t, err, s)
	}
}

func TestApp_IndexTree(t *testing.T) {
	a, _ := newTestApp(t)
	root := t.TempDir()
	write := func(rel, body string) {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	write(".gitignore", "drafts/\n")
	write("refund.md", "Refund requests are answered within two days.")
	write("hr/vacation.txt", "Vacation requests need manager approval.")
	write("drafts/security.md", "Security draft that must not be indexed.")
	write("logo.png", "refund")
	write("empty.txt", "   ")

	res, err := a.indexTree(context.Background(), root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"refund.md", "hr/vacation.txt"}, res.Indexed)
	assert.Equal(t, []string{"empty.txt"}, res.Skipped)
	assert.Equal(t, 2, a.store.Count())

	// A second run replaces documents in place.
	write("refund.md", "Refund requests are answered within one day.")
	_, err = a.indexTree(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, a.store.Count())

	records, err := a.store.List(context.Background())
	require.NoError(t, err)
	for _, r := range records {
		if r.Filename == "refund.md" {
			assert.Contains(t, r.Content, "one day")
		}
	}
}
