package queue

import (
	"context"
	"sync"

	"pdfrag/backend/go/pkg/logger"
)

// MemoryQueue is a bounded channel drained by a fixed pool of workers.
type MemoryQueue struct {
	tasks   chan IndexTask
	handler Handler
	workers int
	policy  RetryPolicy
	log     *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started sync.Once
	pending sync.WaitGroup
	running sync.WaitGroup
}

// NewMemoryQueue creates a queue with a buffer of size buffer and workers goroutines.
func NewMemoryQueue(handler Handler, workers, buffer int, policy RetryPolicy, log *logger.Logger) *MemoryQueue {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &MemoryQueue{
		tasks:   make(chan IndexTask, buffer),
		handler: handler,
		workers: workers,
		policy:  policy,
		log:     log,
	}
}

// Enqueue blocks while the buffer is full, until ctx ends.
func (q *MemoryQueue) Enqueue(ctx context.Context, task IndexTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	q.pending.Add(1)
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		q.pending.Done()
		return ctx.Err()
	}
}

// Start launches the workers. Handlers receive ctx.
func (q *MemoryQueue) Start(ctx context.Context) error {
	q.started.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.running.Add(1)
			go q.work(ctx, i)
		}
		q.log.With("workers", q.workers).Info("Index queue started")
	})
	return nil
}

func (q *MemoryQueue) work(ctx context.Context, id int) {
	defer q.running.Done()
	for task := range q.tasks {
		_ = run(ctx, q.handler, task, q.policy, q.log.With("worker", id))
		q.pending.Done()
	}
}

// Wait blocks until every accepted task has been processed.
func (q *MemoryQueue) Wait() {
	q.pending.Wait()
}

// Close stops accepting tasks and waits for the workers to drain the buffer.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.running.Wait()
	return nil
}
