package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pdfrag/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id string, chunks ...string) IndexTask {
	t := IndexTask{RecordID: id, Filename: id + ".pdf"}
	for _, c := range chunks {
		t.Chunks = append(t.Chunks, Chunk{ID: c, Text: "text of " + c})
	}
	return t
}

func TestMemoryQueueProcessesAllTasks(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	handler := func(_ context.Context, tk IndexTask) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, tk.RecordID)
		return nil
	}
	q := NewMemoryQueue(handler, 3, 4, RetryPolicy{MaxAttempts: 1}, logger.Nop())
	require.NoError(t, q.Start(context.Background()))
	defer q.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), task(string(rune('a'+i)), "c")))
	}
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 10)
}

func TestMemoryQueueRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	handler := func(context.Context, IndexTask) error {
		if calls.Add(1) < 3 {
			return errors.New("vector store unavailable")
		}
		return nil
	}
	q := NewMemoryQueue(handler, 1, 1, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, logger.Nop())
	require.NoError(t, q.Start(context.Background()))
	defer q.Close()

	require.NoError(t, q.Enqueue(context.Background(), task("r1", "c0", "c1")))
	q.Wait()
	assert.EqualValues(t, 3, calls.Load())
}

func TestMemoryQueueGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	handler := func(context.Context, IndexTask) error {
		calls.Add(1)
		return errors.New("permanent")
	}
	q := NewMemoryQueue(handler, 1, 1, RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}, logger.Nop())
	require.NoError(t, q.Start(context.Background()))

	require.NoError(t, q.Enqueue(context.Background(), task("r1", "c0")))
	q.Wait()
	assert.EqualValues(t, 2, calls.Load())

	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Enqueue(context.Background(), task("r2")), ErrClosed)
}

func TestMemoryQueueEnqueueHonoursContext(t *testing.T) {
	q := NewMemoryQueue(func(context.Context, IndexTask) error { return nil }, 1, 0, RetryPolicy{}, logger.Nop())
	// not started: an unbuffered send cannot complete
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, task("r1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	q.Wait()
}

func TestIndexTaskHelpers(t *testing.T) {
	tk := task("r", "a", "b")
	assert.Equal(t, []string{"a", "b"}, tk.ChunkIDs())
	docs := tk.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "text of b", docs[1].Text)
}
