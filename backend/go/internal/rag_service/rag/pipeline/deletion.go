package pipeline

import (
	"context"
	"errors"
	"fmt"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/internal/rag_service/rag/storages/vectorstore"
	"pdfrag/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// DeletionPipeline removes a file's vectors and then its metadata.
// Vectors go first: a failure afterwards leaves metadata pointing at missing vectors,
// which queries tolerate, instead of vectors nothing points at.
type DeletionPipeline struct {
	records  interfaces.RecordStore
	docs     interfaces.DocStore
	provider *vectorstore.Provider
	archive  interfaces.Archive // optional
	log      *logger.Logger
}

// NewDeletionPipeline creates a new DeletionPipeline. archive may be nil.
func NewDeletionPipeline(records interfaces.RecordStore, docs interfaces.DocStore, provider *vectorstore.Provider, archive interfaces.Archive, log *logger.Logger) *DeletionPipeline {
	return &DeletionPipeline{records: records, docs: docs, provider: provider, archive: archive, log: log}
}

// DeletedMessage formats the success message of a delete.
func DeletedMessage(n int, filename string) string {
	return fmt.Sprintf("%d chunk(s) of the file '%s' deleted successfully.", n, filename)
}

// ByID deletes one relational record and its chunks. The filename mapping is removed only
// when it still points at this record's chunks, so a newer upload of the same name survives.
func (p *DeletionPipeline) ByID(ctx context.Context, id uuid.UUID) (*schema.DeletionResult, error) {
	rec, err := p.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := []string(rec.ChunkIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("document record %s has no chunks: %w", id, ragerr.ErrNotFound)
	}

	store, err := p.provider.Get(ctx)
	if err != nil {
		return nil, err
	}

	log := p.log.With("record_id", id.String()).With("filename", rec.Filename)
	err = p.records.InTx(ctx, func(tx interfaces.RecordStore) error {
		if err := store.Delete(ctx, ids); err != nil {
			return ragerr.Wrap(ragerr.ErrVectorIndex, err)
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		current, err := p.docs.Get(ctx, rec.Filename)
		switch {
		case errors.Is(err, ragerr.ErrNotFound):
			return nil
		case err != nil:
			return ragerr.Wrap(ragerr.ErrStore, err)
		case sameIDs(current, ids):
			if err := p.docs.Delete(ctx, rec.Filename); err != nil {
				return ragerr.Wrap(ragerr.ErrStore, err)
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(models.NewErrorInfo(err, "deletion_error")).Error("Failed to delete document")
		return nil, err
	}

	p.removeArchived(ctx, log, ArchiveKey(id.String(), rec.Filename))
	log.With("chunks", len(ids)).Info("Deleted document")
	return &schema.DeletionResult{
		Message:       DeletedMessage(len(ids), rec.Filename),
		DeletedChunks: len(ids),
		Filename:      rec.Filename,
	}, nil
}

// ByFilename deletes every chunk known for filename: the document store mapping plus the
// chunks of every relational record with that name.
func (p *DeletionPipeline) ByFilename(ctx context.Context, filename string) (*schema.DeletionResult, error) {
	mapped, err := p.docs.Get(ctx, filename)
	if err != nil && !errors.Is(err, ragerr.ErrNotFound) {
		return nil, ragerr.Wrap(ragerr.ErrStore, err)
	}
	recs, err := p.records.ListByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}

	ids := unionIDs(mapped, recs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("file %q: %w", filename, ragerr.ErrNotFound)
	}

	store, err := p.provider.Get(ctx)
	if err != nil {
		return nil, err
	}

	log := p.log.With("filename", filename)
	err = p.records.InTx(ctx, func(tx interfaces.RecordStore) error {
		if err := store.Delete(ctx, ids); err != nil {
			return ragerr.Wrap(ragerr.ErrVectorIndex, err)
		}
		if _, err := tx.DeleteByFilename(ctx, filename); err != nil {
			return err
		}
		if err := p.docs.Delete(ctx, filename); err != nil {
			return ragerr.Wrap(ragerr.ErrStore, err)
		}
		return nil
	})
	if err != nil {
		log.WithError(models.NewErrorInfo(err, "deletion_error")).Error("Failed to delete document")
		return nil, err
	}

	for _, r := range recs {
		p.removeArchived(ctx, log, ArchiveKey(r.ID.String(), filename))
	}
	log.With("chunks", len(ids)).Info("Deleted document")
	return &schema.DeletionResult{
		Message:       DeletedMessage(len(ids), filename),
		DeletedChunks: len(ids),
		Filename:      filename,
	}, nil
}

func (p *DeletionPipeline) removeArchived(ctx context.Context, log *logger.Logger, key string) {
	if p.archive == nil {
		return
	}
	if err := p.archive.Remove(ctx, key); err != nil {
		log.WithError(models.NewErrorInfo(err, "archive_error")).Warn("Failed to remove archived upload")
	}
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// unionIDs keeps first-seen order: the mapping first, then each record.
func unionIDs(mapped []string, recs []*models.DocumentRecord) []string {
	seen := make(map[string]struct{}, len(mapped))
	out := make([]string, 0, len(mapped))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range mapped {
		add(id)
	}
	for _, r := range recs {
		for _, id := range r.ChunkIDs {
			add(id)
		}
	}
	return out
}
