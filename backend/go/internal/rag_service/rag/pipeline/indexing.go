package pipeline

import (
	"context"
	"errors"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/queue"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/storages/vectorstore"
	"pdfrag/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// Indexer embeds and stores the chunks of an IndexTask. It is the queue handler.
type Indexer struct {
	provider *vectorstore.Provider
	records  interfaces.RecordStore // optional
	log      *logger.Logger
}

// NewIndexer creates a new Indexer. When records is set, tasks whose record was deleted
// while they waited in the queue are skipped.
func NewIndexer(provider *vectorstore.Provider, records interfaces.RecordStore, log *logger.Logger) *Indexer {
	return &Indexer{provider: provider, records: records, log: log}
}

// Handle adds the task's chunks to the vector index. Re-delivery overwrites the same ids.
func (x *Indexer) Handle(ctx context.Context, task queue.IndexTask) error {
	log := x.log.With("filename", task.Filename).With("record_id", task.RecordID)

	if x.records != nil {
		if id, err := uuid.Parse(task.RecordID); err == nil {
			if _, err := x.records.Get(ctx, id); errors.Is(err, ragerr.ErrNotFound) {
				log.Warn("Record deleted before indexing, skipping task")
				return nil
			}
		}
	}

	store, err := x.provider.Get(ctx)
	if err != nil {
		return err
	}
	if err := store.Add(ctx, task.Documents()); err != nil {
		return ragerr.Wrap(ragerr.ErrVectorIndex, err)
	}
	log.With("chunks", len(task.Chunks)).Info("Indexed chunks")
	return nil
}
