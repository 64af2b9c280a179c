package schema

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MetadataKeySource is the key for the source file name of a chunk.
	MetadataKeySource = "source"
	// MetadataKeyPage is the key for the 1-based page number the chunk was extracted from.
	MetadataKeyPage = "page"
	// MetadataKeyChunkIndex is the key for the zero-based position of the chunk within its file.
	MetadataKeyChunkIndex = "chunk_index"
	// MetadataKeyRecordID is the key for the relational record that owns the chunk.
	MetadataKeyRecordID = "record_id"
)

// Document is the central data structure representing a piece of text and its associated data.
// It is the primary data carrier throughout the RAG pipeline.
type Document struct {
	// ID is the chunk id. Empty until the ingestion pipeline assigns one.
	ID string `json:"id"`

	// Text is the string content of the document chunk.
	Text string `json:"text"`

	// Embedding is the vector representation of the text. Only vector stores fill it.
	Embedding []float32 `json:"-"`

	// Score is the similarity reported by the vector store for search results.
	Score float32 `json:"score,omitempty"`

	// Metadata holds source, page and chunk_index.
	Metadata map[string]interface{} `json:"metadata"`
}

// Source returns the source filename stored in metadata.
func (d *Document) Source() string {
	if d == nil || d.Metadata == nil {
		return ""
	}
	s, _ := d.Metadata[MetadataKeySource].(string)
	return s
}

// Page returns the page number stored in metadata. Values decoded from JSON arrive as float64.
func (d *Document) Page() int {
	if d == nil || d.Metadata == nil {
		return 0
	}
	switch v := d.Metadata[MetadataKeyPage].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// FileRecord is the API view of a stored upload.
type FileRecord struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	SizeMB    float64   `json:"size_mb"`
	ChunkIDs  []string  `json:"chunks_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResult is the aggregate response of a batch upload.
type UploadResult struct {
	Filenames   []string `json:"filenames"`
	TotalFiles  int      `json:"total_files"`
	TotalChunks int      `json:"total_chunks"`
	Message     string   `json:"message"`
}

// DeletionResult reports a successful delete.
type DeletionResult struct {
	Message       string `json:"message"`
	DeletedChunks int    `json:"deleted_chunks"`
	Filename      string `json:"filename"`
}

// Source is one (filename, page) pair cited by an answer.
type Source struct {
	Filename string `json:"filename"`
	Page     int    `json:"page"`
}

// AnswerResult is the structured answer to a question. Confidence is nil when the model gave no marker.
type AnswerResult struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence *string  `json:"confidence"`
}

// FilenameEntry is one entry of the document store listing.
type FilenameEntry struct {
	Filename string `json:"filename"`
}
