package pipeline

import (
	"context"
	"fmt"
	"math"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/chunkid"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/loaders"
	"pdfrag/backend/go/internal/rag_service/rag/queue"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/pkg/logger"

	"gorm.io/datatypes"
)

// UploadMessage is the status message of a successful batch.
const UploadMessage = "Files processed and chunks sent for indexing."

// IngestionPipeline turns uploaded PDFs into committed metadata plus a queued index task.
// Metadata is committed before the task is enqueued, so a chunk id never reaches the vector
// index without a record that owns it.
type IngestionPipeline struct {
	loader   interfaces.Loader
	splitter interfaces.Splitter
	records  interfaces.RecordStore
	docs     interfaces.DocStore
	queue    queue.Queue
	archive  interfaces.Archive // optional
	log      *logger.Logger
}

// NewIngestionPipeline creates a new IngestionPipeline. archive may be nil.
func NewIngestionPipeline(
	loader interfaces.Loader,
	splitter interfaces.Splitter,
	records interfaces.RecordStore,
	docs interfaces.DocStore,
	q queue.Queue,
	archive interfaces.Archive,
	log *logger.Logger,
) *IngestionPipeline {
	return &IngestionPipeline{
		loader:   loader,
		splitter: splitter,
		records:  records,
		docs:     docs,
		queue:    q,
		archive:  archive,
		log:      log,
	}
}

// Run ingests files in order and stops at the first failure. Files committed before the
// failing one stay committed. The returned error is a *ragerr.FileError naming the file.
func (p *IngestionPipeline) Run(ctx context.Context, files []schema.UploadFile) (*schema.UploadResult, error) {
	result := &schema.UploadResult{
		Filenames: make([]string, 0, len(files)),
		Message:   UploadMessage,
	}

	for _, f := range files {
		if err := loaders.ValidatePDF(f.Filename, f.ContentType); err != nil {
			p.log.With("filename", f.Filename).With("content_type", f.ContentType).Warn("Rejected non-PDF upload")
			return nil, err
		}

		n, err := p.ingest(ctx, f)
		if err != nil {
			p.log.WithError(models.NewErrorInfo(err, "ingestion_error")).With("filename", f.Filename).Error("Failed to ingest file")
			return nil, ragerr.NewFileError(f.Filename, err)
		}

		result.Filenames = append(result.Filenames, f.Filename)
		result.TotalFiles++
		result.TotalChunks += n
	}
	return result, nil
}

func (p *IngestionPipeline) ingest(ctx context.Context, f schema.UploadFile) (int, error) {
	log := p.log.With("filename", f.Filename)
	if !loaders.SniffPDF(f.Data) {
		log.Warn("Upload declared as PDF but its content does not look like one")
	}

	// 1. Extract and split
	pages, err := p.loader.Load(ctx, f.Filename, f.Data)
	if err != nil {
		return 0, ragerr.Wrap(ragerr.ErrProcessing, err)
	}
	chunks, err := p.splitter.Split(ctx, pages)
	if err != nil {
		return 0, ragerr.Wrap(ragerr.ErrProcessing, err)
	}
	if len(chunks) == 0 {
		return 0, ragerr.Wrap(ragerr.ErrProcessing, fmt.Errorf("no text could be extracted"))
	}

	// 2. Mint ids once. They are reused as vector keys by the index task.
	ids := chunkid.Generate(f.Filename, len(chunks))
	rec := &models.DocumentRecord{
		Filename: f.Filename,
		SizeMB:   sizeMB(len(f.Data)),
		ChunkIDs: datatypes.JSONSlice[string](ids),
	}

	// 3. Commit the relational row and the filename mapping together
	err = p.records.InTx(ctx, func(tx interfaces.RecordStore) error {
		if err := tx.Create(ctx, rec); err != nil {
			return err
		}
		if err := p.docs.Upsert(ctx, f.Filename, ids); err != nil {
			return ragerr.Wrap(ragerr.ErrStore, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log = log.With("record_id", rec.ID.String())
	log.With("chunks", len(ids)).Info("Committed document record")

	if p.archive != nil {
		if err := p.archive.Put(ctx, ArchiveKey(rec.ID.String(), f.Filename), f.Data, loaders.PDFContentType); err != nil {
			log.WithError(models.NewErrorInfo(err, "archive_error")).Warn("Failed to archive original upload")
		}
	}

	// 4. Schedule embedding with the same ids
	task := queue.IndexTask{RecordID: rec.ID.String(), Filename: f.Filename, Chunks: make([]queue.Chunk, len(chunks))}
	for i, c := range chunks {
		md := make(map[string]interface{}, len(c.Metadata)+3)
		for k, v := range c.Metadata {
			md[k] = v
		}
		md[schema.MetadataKeySource] = f.Filename
		md[schema.MetadataKeyChunkIndex] = i
		md[schema.MetadataKeyRecordID] = rec.ID.String()
		task.Chunks[i] = queue.Chunk{ID: ids[i], Text: c.Text, Metadata: md}
	}
	if err := p.queue.Enqueue(ctx, task); err != nil {
		return 0, ragerr.Wrap(ragerr.ErrQueue, err)
	}
	return len(ids), nil
}

// ArchiveKey is the object key of an archived upload.
func ArchiveKey(recordID, filename string) string {
	return recordID + "/" + filename
}

func sizeMB(n int) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}
