package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pdfrag/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmdModelUnknownProvider(t *testing.T) {
	_, err := NewEmdModel(context.Background(), config.EmbeddingConfig{Provider: "huggingface"})
	assert.Error(t, err)
}

func TestNewEmdModelOpenAIRequiresKey(t *testing.T) {
	_, err := NewEmdModel(context.Background(), config.EmbeddingConfig{Provider: "openai"})
	assert.Error(t, err)
}

func TestOpenAIModelRestoresIndexOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer ts.Close()

	m, err := NewOpenAIModel("test-key", "text-embedding-3-small", ts.URL+"/v1")
	require.NoError(t, err)

	vecs, err := m.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)

	empty, err := m.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOllamaModelCountMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      "nomic-embed-text",
			"embeddings": [][]float32{{0.5, 0.5}},
		})
	}))
	defer ts.Close()

	m, err := NewOllamaModel("nomic-embed-text", ts.URL)
	require.NoError(t, err)

	vec, err := m.Embed(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)

	_, err = m.EmbedBatch(context.Background(), []string{"one", "two"})
	assert.ErrorContains(t, err, "mismatch")
}

func TestNewOllamaModelRejectsRelativeURL(t *testing.T) {
	_, err := NewOllamaModel("nomic-embed-text", "localhost-only")
	assert.ErrorContains(t, err, "scheme and host")

	m, err := NewOllamaModel("nomic-embed-text", "")
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestOllamaEmbedSendsSingleItemBatch(t *testing.T) {
	var got map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      "nomic-embed-text",
			"embeddings": [][]float32{{1, 0}},
		})
	}))
	defer ts.Close()

	m, err := NewOllamaModel("nomic-embed-text", ts.URL+"/")
	require.NoError(t, err)

	vec, err := m.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, "nomic-embed-text", got["model"])
	assert.Equal(t, []interface{}{"hello"}, got["input"])
}
