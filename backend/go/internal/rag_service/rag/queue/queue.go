// Package queue schedules vector index insertion after the metadata of an upload is committed.
// Delivery is at-least-once, so handlers must be idempotent per chunk id.
package queue

import (
	"context"
	"errors"
	"time"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/pkg/logger"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("queue is closed")

// Chunk is one chunk to embed, keyed by the id already stored in the metadata stores.
type Chunk struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// IndexTask carries every chunk of one uploaded file.
type IndexTask struct {
	RecordID string  `json:"record_id"`
	Filename string  `json:"filename"`
	Chunks   []Chunk `json:"chunks"`
}

// ChunkIDs returns the ids of the task's chunks in order.
func (t IndexTask) ChunkIDs() []string {
	ids := make([]string, len(t.Chunks))
	for i, c := range t.Chunks {
		ids[i] = c.ID
	}
	return ids
}

// Documents converts the task back into pipeline documents.
func (t IndexTask) Documents() []*schema.Document {
	docs := make([]*schema.Document, len(t.Chunks))
	for i, c := range t.Chunks {
		docs[i] = &schema.Document{ID: c.ID, Text: c.Text, Metadata: c.Metadata}
	}
	return docs
}

// Handler processes one task. A returned error triggers a retry.
type Handler func(ctx context.Context, task IndexTask) error

// Queue is the background indexing queue.
type Queue interface {
	Enqueue(ctx context.Context, task IndexTask) error
	// Start launches the consumers. Calling it more than once has no effect.
	Start(ctx context.Context) error
	// Wait blocks until every task enqueued by this process has been handled or given up on.
	Wait()
	Close() error
}

// RetryPolicy bounds how often a task is attempted.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// run calls handler until it succeeds, attempts are exhausted or ctx ends.
// The wait before attempt n is n-1 times the backoff.
func run(ctx context.Context, handler Handler, task IndexTask, policy RetryPolicy, log *logger.Logger) error {
	var err error
	for attempt := 1; attempt <= policy.attempts(); attempt++ {
		if err = handler(ctx, task); err == nil {
			return nil
		}
		log.WithError(models.NewErrorInfo(err, "index_error")).WithPayload(map[string]interface{}{
			"filename": task.Filename,
			"attempt":  attempt,
		}).Warn("Index task failed")

		if attempt == policy.attempts() {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * policy.Backoff):
		}
	}

	log.WithError(models.NewErrorInfo(err, "index_error")).WithPayload(map[string]interface{}{
		"filename":  task.Filename,
		"record_id": task.RecordID,
		"chunk_ids": task.ChunkIDs(),
	}).Error("Index task gave up, metadata is committed but vectors were not written")
	return err
}
