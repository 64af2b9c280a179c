// Package service combines the pipelines into the document and question operations used by the HTTP and MCP entry points.
package service

import (
	"context"
	"fmt"
	"strings"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/pipeline"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// MaxK is the largest number of chunks a single question may retrieve.
const MaxK = 20

// Service is the facade of the RAG service.
type Service struct {
	ingestion *pipeline.IngestionPipeline
	deletion  *pipeline.DeletionPipeline
	retrieval *pipeline.RetrievalPipeline
	qa        *pipeline.QAPipeline
	records   interfaces.RecordStore
	docs      interfaces.DocStore
	topK      int
	log       *logger.Logger
}

// Deps holds the components a Service is built from.
type Deps struct {
	Ingestion *pipeline.IngestionPipeline
	Deletion  *pipeline.DeletionPipeline
	Retrieval *pipeline.RetrievalPipeline
	QA        *pipeline.QAPipeline
	Records   interfaces.RecordStore
	Docs      interfaces.DocStore
	TopK      int
	Log       *logger.Logger
}

// New creates a Service. A TopK of 0 or less defaults to 5.
func New(d Deps) *Service {
	topK := d.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		ingestion: d.Ingestion,
		deletion:  d.Deletion,
		retrieval: d.Retrieval,
		qa:        d.QA,
		records:   d.Records,
		docs:      d.Docs,
		topK:      topK,
		log:       d.Log,
	}
}

// Upload processes a batch of files and stops at the first failure.
func (s *Service) Upload(ctx context.Context, files []schema.UploadFile) (*schema.UploadResult, error) {
	return s.ingestion.Run(ctx, files)
}

// ListRecords returns every upload, newest first.
func (s *Service) ListRecords(ctx context.Context) ([]schema.FileRecord, error) {
	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]schema.FileRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, toFileRecord(r))
	}
	return out, nil
}

// GetRecord returns one record or ragerr.ErrNotFound.
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*schema.FileRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fr := toFileRecord(rec)
	return &fr, nil
}

// ListFilenames returns every filename in the document store.
func (s *Service) ListFilenames(ctx context.Context) ([]schema.FilenameEntry, error) {
	names, err := s.docs.ListFilenames(ctx)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, err)
	}
	out := make([]schema.FilenameEntry, 0, len(names))
	for _, n := range names {
		out = append(out, schema.FilenameEntry{Filename: n})
	}
	return out, nil
}

// DeleteByID deletes one record and all of its vectors.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) (*schema.DeletionResult, error) {
	return s.deletion.ByID(ctx, id)
}

// DeleteByFilename deletes every record and vector stored under filename.
func (s *Service) DeleteByFilename(ctx context.Context, filename string) (*schema.DeletionResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("empty filename: %w", ragerr.ErrNotFound)
	}
	return s.deletion.ByFilename(ctx, filename)
}

// Ask retrieves the chunks relevant to question and answers it. k <= 0 uses the configured topK and k is capped at MaxK.
func (s *Service) Ask(ctx context.Context, question string, k int) (*schema.AnswerResult, error) {
	if k <= 0 {
		k = s.topK
	}
	if k > MaxK {
		k = MaxK
	}

	docs, err := s.retrieval.Run(ctx, question, k)
	if err != nil {
		return nil, err
	}
	res, err := s.qa.Run(ctx, question, docs)
	if err != nil {
		return nil, err
	}
	s.log.With("k", k).With("retrieved", len(docs)).With("sources", len(res.Sources)).Info("Answered question")
	return res, nil
}

func toFileRecord(r *models.DocumentRecord) schema.FileRecord {
	ids := []string(r.ChunkIDs)
	if ids == nil {
		ids = []string{}
	}
	return schema.FileRecord{
		ID:        r.ID,
		Filename:  r.Filename,
		SizeMB:    r.SizeMB,
		ChunkIDs:  ids,
		CreatedAt: r.CreatedAt,
	}
}
