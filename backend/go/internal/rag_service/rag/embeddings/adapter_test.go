package embeddings

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls atomic.Int32
	err   error
}

func (c *countingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *countingClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestAdapterCachesQueries(t *testing.T) {
	client := &countingClient{}
	a := NewAdapter(client, WithQueryCache(8, time.Minute))

	for i := 0; i < 3; i++ {
		v, err := a.Embed(context.Background(), []string{"what is rag"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{11}}, v)
	}
	assert.EqualValues(t, 1, client.calls.Load())

	_, err := a.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	_, err = a.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, client.calls.Load(), "batches are not cached")
}

func TestAdapterMapsErrors(t *testing.T) {
	client := &countingClient{err: errors.New("quota exceeded")}
	a := NewAdapter(client, WithBreaker(circuitbreaker.New(1, 1, time.Minute)))

	_, err := a.Embed(context.Background(), []string{"q"})
	assert.ErrorIs(t, err, ragerr.ErrLLM)

	_, err = a.Embed(context.Background(), []string{"q"})
	assert.ErrorIs(t, err, ragerr.ErrUnavailable)
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestAdapterEmptyInput(t *testing.T) {
	client := &countingClient{}
	v, err := NewAdapter(client).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.Zero(t, client.calls.Load())
}
