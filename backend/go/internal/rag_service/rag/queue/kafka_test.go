package queue

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pdfrag/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTopic is an in-memory stand-in for one kafka partition.
type fakeTopic struct {
	msgs     chan kafka.Message
	failNext atomic.Bool

	mu        sync.Mutex
	committed []int64
	offset    int64
}

func newFakeTopic() *fakeTopic {
	return &fakeTopic{msgs: make(chan kafka.Message, 16)}
}

func (f *fakeTopic) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.failNext.CompareAndSwap(true, false) {
		return errors.New("broker down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		m.Offset = f.offset
		f.offset++
		f.msgs <- m
	}
	return nil
}

func (f *fakeTopic) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m, ok := <-f.msgs:
		if !ok {
			return kafka.Message{}, io.EOF
		}
		return m, nil
	}
}

func (f *fakeTopic) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeTopic) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func TestKafkaQueueRoundTrip(t *testing.T) {
	topic := newFakeTopic()
	var got []IndexTask
	var mu sync.Mutex
	handler := func(_ context.Context, tk IndexTask) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, tk)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := NewKafkaQueue(topic, topic, handler, RetryPolicy{MaxAttempts: 1}, logger.Nop())
	require.NoError(t, q.Start(ctx))

	require.NoError(t, q.Enqueue(ctx, task("rec-1", "a.pdf_chunk_0_x")))
	require.NoError(t, q.Enqueue(ctx, task("rec-2", "b.pdf_chunk_0_y")))
	q.Wait()

	mu.Lock()
	require.Len(t, got, 2)
	assert.Equal(t, "rec-1", got[0].RecordID)
	assert.Equal(t, []string{"a.pdf_chunk_0_x"}, got[0].ChunkIDs())
	mu.Unlock()
	assert.Equal(t, []int64{0, 1}, topic.commits())

	cancel()
	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestKafkaQueueCommitsAfterRetriesExhausted(t *testing.T) {
	topic := newFakeTopic()
	var calls atomic.Int32
	handler := func(context.Context, IndexTask) error {
		calls.Add(1)
		return errors.New("embedding quota")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewKafkaQueue(topic, topic, handler, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, logger.Nop())
	require.NoError(t, q.Start(ctx))

	require.NoError(t, q.Enqueue(ctx, task("rec-1", "c")))
	q.Wait()
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []int64{0}, topic.commits())
}

func TestKafkaQueuePublishFailure(t *testing.T) {
	topic := newFakeTopic()
	topic.failNext.Store(true)
	q := NewKafkaQueue(topic, topic, func(context.Context, IndexTask) error { return nil }, RetryPolicy{}, logger.Nop())

	err := q.Enqueue(context.Background(), task("rec-1"))
	assert.Error(t, err)
	q.Wait() // nothing left pending

	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Enqueue(context.Background(), task("rec-2")), ErrClosed)
}

func TestKafkaQueueDropsUndecodableMessages(t *testing.T) {
	topic := newFakeTopic()
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewKafkaQueue(topic, topic, func(context.Context, IndexTask) error {
		calls.Add(1)
		return nil
	}, RetryPolicy{}, logger.Nop())
	require.NoError(t, q.Start(ctx))

	topic.msgs <- kafka.Message{Key: []byte("junk"), Value: []byte("{not json"), Offset: 41}
	require.NoError(t, q.Enqueue(ctx, task("rec-ok", "c")))
	q.Wait()

	assert.EqualValues(t, 1, calls.Load())
	assert.Contains(t, topic.commits(), int64(41))
}
