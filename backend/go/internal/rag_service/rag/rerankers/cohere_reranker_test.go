package rerankers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdfrag/backend/go/internal/rag_service/rag/schema"
	pkghttp "pdfrag/backend/go/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs(texts ...string) []*schema.Document {
	out := make([]*schema.Document, len(texts))
	for i, t := range texts {
		out[i] = &schema.Document{ID: t, Text: t, Score: 0.1}
	}
	return out
}

func TestCohereRerankOrdersByRelevance(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))
		var req cohereRerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.TopN)
		assert.Equal(t, "what?", req.Query)

		_ = json.NewEncoder(w).Encode(cohereRerankResponse{Results: []cohereRerankResult{
			{Index: 0, RelevanceScore: 0.2},
			{Index: 2, RelevanceScore: 0.9},
			{Index: 7, RelevanceScore: 1.0},
		}})
	}))
	defer ts.Close()

	in := docs("a", "b", "c")
	r := NewCohereReranker(pkghttp.NewClientWith(ts.Client(), nil), "co-key", "rerank-english-v2.0", 10, ts.URL)

	out, err := r.Rerank(context.Background(), "what?", in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].ID)
	assert.InDelta(t, 0.9, out[0].Score, 1e-6)
	assert.Equal(t, "a", out[1].ID)
	assert.InDelta(t, 0.1, in[0].Score, 1e-6, "input is left untouched")
}

func TestCohereRerankErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	r := NewCohereReranker(pkghttp.NewClientWith(ts.Client(), nil), "x", "m", 5, ts.URL)
	_, err := r.Rerank(context.Background(), "q", docs("a"))
	assert.Error(t, err)
}
