// Package embeddings adapts the provider clients in internal/embedding to the pipeline's EmbeddingModel.
package embeddings

import (
	"context"
	"errors"
	"time"

	"pdfrag/backend/go/internal/embedding"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/pkg/circuitbreaker"

	"github.com/patrickmn/go-cache"
)

// Adapter wraps a provider client with a circuit breaker and a small cache of query vectors.
// Only single-text calls (queries) are cached. Batches come from ingestion and are embedded once.
type Adapter struct {
	client  embedding.Embedding
	breaker circuitbreaker.CircuitBreaker
	queries *cache.Cache
	limit   int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBreaker protects provider calls with breaker.
func WithBreaker(breaker circuitbreaker.CircuitBreaker) Option {
	return func(a *Adapter) { a.breaker = breaker }
}

// WithQueryCache keeps up to size query vectors for ttl. size <= 0 disables the cache.
func WithQueryCache(size int, ttl time.Duration) Option {
	return func(a *Adapter) {
		if size <= 0 {
			a.queries = nil
			return
		}
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		a.queries = cache.New(ttl, 2*ttl)
		a.limit = size
	}
}

// NewAdapter creates a new adapter around client.
func NewAdapter(client embedding.Embedding, opts ...Option) *Adapter {
	a := &Adapter{client: client, breaker: circuitbreaker.Disabled()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Embed calls the underlying client's EmbedBatch. An open breaker yields ragerr.ErrUnavailable,
// any other provider failure ragerr.ErrLLM.
func (a *Adapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) == 1 && a.queries != nil {
		if v, ok := a.queries.Get(texts[0]); ok {
			return [][]float32{v.([]float32)}, nil
		}
	}

	vectors, err := circuitbreaker.Do(a.breaker, func() ([][]float32, error) {
		return a.client.EmbedBatch(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, ragerr.Wrap(ragerr.ErrUnavailable, err)
		}
		return nil, ragerr.Wrap(ragerr.ErrLLM, err)
	}

	if len(texts) == 1 && len(vectors) == 1 && a.queries != nil {
		if a.queries.ItemCount() >= a.limit {
			a.queries.DeleteExpired()
		}
		if a.queries.ItemCount() < a.limit {
			a.queries.SetDefault(texts[0], vectors[0])
		}
	}
	return vectors, nil
}

// compile-time check to ensure Adapter implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Adapter)(nil)
