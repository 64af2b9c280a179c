package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdfrag/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), config.LLMConfig{Provider: "huggingface"})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), config.LLMConfig{Provider: "openai"})
	assert.Error(t, err, "missing api key")
}

func TestOpenAIComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body["model"])
		assert.Contains(t, body, "temperature")
		assert.EqualValues(t, 0, body["temperature"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "cmpl-1",
			"model": "gpt-test",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": "  Paris.\nConfidence: High \n"}},
			},
		})
	}))
	defer ts.Close()

	client, err := NewOpenAI("gpt-test", "key", ts.URL+"/v1")
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.\nConfidence: High", out)
	assert.Equal(t, "gpt-test", client.Model())
}

func TestOllamaComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":    "llama3",
			"response": "Not enough information.",
			"done":     true,
		})
	}))
	defer ts.Close()

	client, err := NewOllama("llama3", ts.URL)
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Not enough information.", out)
}
