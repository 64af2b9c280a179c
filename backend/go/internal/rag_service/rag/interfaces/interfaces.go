package interfaces

import (
	"context"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/schema"

	"github.com/google/uuid"
)

// Loader is the interface for extracting page documents from raw file bytes.
// Every returned document carries the source filename and its 1-based page in metadata.
type Loader interface {
	Load(ctx context.Context, filename string, data []byte) ([]*schema.Document, error)
}

// Splitter is the interface for splitting a list of Documents into smaller chunks.
// Chunks keep the metadata of the page they came from and appear in page order.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error)
}

// DocStore is the key-value store holding the filename -> chunk ids mapping.
type DocStore interface {
	// Upsert replaces the chunk ids stored for filename.
	Upsert(ctx context.Context, filename string, chunkIDs []string) error
	// Get returns ragerr.ErrNotFound when the filename is unknown.
	Get(ctx context.Context, filename string) ([]string, error)
	ListFilenames(ctx context.Context) ([]string, error)
	// Delete is a no-op for unknown filenames.
	Delete(ctx context.Context, filename string) error
	Ping(ctx context.Context) error
}

// VectorStore is the interface for storing and querying chunk embeddings keyed by chunk id.
type VectorStore interface {
	// Add upserts docs by ID, so re-delivering the same chunks is safe.
	Add(ctx context.Context, docs []*schema.Document) error
	// Search returns at most k chunks ordered by decreasing relevance.
	Search(ctx context.Context, query string, k int) ([]*schema.Document, error)
	// Delete removes the given ids. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
}

// RecordStore is the relational store of one row per uploaded file.
type RecordStore interface {
	Create(ctx context.Context, rec *models.DocumentRecord) error
	List(ctx context.Context) ([]*models.DocumentRecord, error)
	// Get returns ragerr.ErrNotFound when the id is unknown.
	Get(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error)
	ListByFilename(ctx context.Context, filename string) ([]*models.DocumentRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByFilename(ctx context.Context, filename string) (int64, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	// InTx runs fn against a store bound to one transaction. A non-nil error from fn rolls it back.
	InTx(ctx context.Context, fn func(tx RecordStore) error) error
}

// Reranker is the interface for re-ordering a list of retrieved documents to improve relevance.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []*schema.Document) ([]*schema.Document, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Archive stores the original uploaded bytes. Failures are never fatal to the caller.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
}
