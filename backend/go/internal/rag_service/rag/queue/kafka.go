package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the producing half of a kafka-go client.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageReader is the consuming half of a kafka-go consumer group reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaQueue publishes tasks as JSON messages keyed by record id.
// When a reader is set it also consumes the topic, committing each message only after
// the handler succeeded or the retry policy gave up.
type KafkaQueue struct {
	writer  MessageWriter
	reader  MessageReader
	handler Handler
	policy  RetryPolicy
	log     *logger.Logger

	started sync.Once
	done    chan struct{}

	mu      sync.Mutex
	closed  bool
	local   map[string]int
	pending sync.WaitGroup
}

// NewKafkaQueue creates a KafkaQueue. reader may be nil for producer-only processes.
func NewKafkaQueue(writer MessageWriter, reader MessageReader, handler Handler, policy RetryPolicy, log *logger.Logger) *KafkaQueue {
	return &KafkaQueue{
		writer:  writer,
		reader:  reader,
		handler: handler,
		policy:  policy,
		log:     log,
		done:    make(chan struct{}),
		local:   make(map[string]int),
	}
}

// Enqueue publishes task. The write is synchronous, so a nil error means the broker accepted it.
func (q *KafkaQueue) Enqueue(ctx context.Context, task IndexTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode index task: %w", err)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	tracked := q.reader != nil
	if tracked {
		q.local[task.RecordID]++
		q.pending.Add(1)
	}
	q.mu.Unlock()

	err = q.writer.WriteMessages(ctx, kafka.Message{Key: []byte(task.RecordID), Value: payload})
	if err != nil {
		if tracked {
			q.settle(task.RecordID)
		}
		return fmt.Errorf("failed to publish index task: %w", err)
	}
	return nil
}

// settle marks one locally produced task with key as finished.
func (q *KafkaQueue) settle(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n, ok := q.local[key]
	if !ok {
		return
	}
	if n <= 1 {
		delete(q.local, key)
	} else {
		q.local[key] = n - 1
	}
	q.pending.Done()
}

// Start launches the consumer loop if a reader is configured.
func (q *KafkaQueue) Start(ctx context.Context) error {
	q.started.Do(func() {
		if q.reader == nil {
			close(q.done)
			return
		}
		go q.consume(ctx)
	})
	return nil
}

func (q *KafkaQueue) consume(ctx context.Context) {
	defer close(q.done)
	for {
		msg, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				q.log.Info("Stopping Kafka index consumer...")
				return
			}
			q.log.WithError(models.NewErrorInfo(err, "kafka_error")).Error("Error fetching message from Kafka")
			continue
		}

		q.handle(ctx, msg)

		if err := q.reader.CommitMessages(ctx, msg); err != nil {
			q.log.WithError(models.NewErrorInfo(err, "kafka_error")).Error("Failed to commit Kafka message")
		}
		q.settle(string(msg.Key))
	}
}

func (q *KafkaQueue) handle(ctx context.Context, msg kafka.Message) {
	var task IndexTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		// undecodable messages are committed without retry
		q.log.WithError(models.NewErrorInfo(err, "decode_error")).WithPayload(map[string]interface{}{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Error("Dropping undecodable index task")
		return
	}
	_ = run(ctx, q.handler, task, q.policy, q.log.WithPayload(map[string]interface{}{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	}))
}

// Wait blocks until every task published by this process has been consumed.
// It returns immediately for producer-only queues.
func (q *KafkaQueue) Wait() {
	q.pending.Wait()
}

// Close stops accepting tasks. The consumer loop ends when the ctx passed to Start is cancelled.
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}

// Done is closed once the consumer loop has exited.
func (q *KafkaQueue) Done() <-chan struct{} {
	return q.done
}
