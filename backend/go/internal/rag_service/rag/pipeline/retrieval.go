package pipeline

import (
	"context"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/internal/rag_service/rag/storages/vectorstore"
	"pdfrag/backend/go/pkg/logger"
)

// RetrievalPipeline orchestrates the process of retrieving relevant documents for a given query.
type RetrievalPipeline struct {
	provider *vectorstore.Provider
	reranker interfaces.Reranker // Optional component to rerank results
	log      *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
// The reranker is optional and can be nil.
func NewRetrievalPipeline(provider *vectorstore.Provider, reranker interfaces.Reranker, log *logger.Logger) *RetrievalPipeline {
	return &RetrievalPipeline{
		provider: provider,
		reranker: reranker,
		log:      log,
	}
}

// Run returns at most k chunks ordered by relevance.
func (p *RetrievalPipeline) Run(ctx context.Context, query string, k int) ([]*schema.Document, error) {
	store, err := p.provider.Get(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := store.Search(ctx, query, k)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrVectorIndex, err)
	}
	p.log.With("k", k).With("hits", len(docs)).Debug("Vector search finished")

	// Rerank the results if a reranker is configured
	if p.reranker != nil && len(docs) > 1 {
		reranked, err := p.reranker.Rerank(ctx, query, docs)
		if err != nil {
			p.log.WithError(models.NewErrorInfo(err, "rerank_error")).Warn("Reranker failed, returning documents without reranking")
		} else {
			docs = reranked
		}
	}
	return docs, nil
}
