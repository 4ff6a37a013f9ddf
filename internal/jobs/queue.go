// Package jobs runs deferred units of work on a fixed worker pool. Each
// submission returns a handle so callers can observe completion; clients of
// the HTTP API still only observe jobs through the temp-marker protocol.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Submit after Shutdown has begun
var ErrQueueClosed = errors.New("job queue is shut down")

// Handle tracks one submitted job
type Handle struct {
	name string
	done chan struct{}
	err  error
}

// Done is closed when the job has finished
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the job's error. Only valid after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx expires
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type task struct {
	handle *Handle
	fn     func(context.Context) error
}

// Queue is a fixed-size worker pool for background jobs
type Queue struct {
	logger *zap.Logger
	tasks  chan *task
	wg     sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	submitters sync.WaitGroup
}

// NewQueue starts workers goroutines consuming submitted jobs
func NewQueue(workers int, logger *zap.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{
		logger: logger,
		tasks:  make(chan *task),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(t)
	}
}

func (q *Queue) run(t *task) {
	defer close(t.handle.done)
	start := time.Now()
	q.logger.Info("background job started", zap.String("job", t.handle.name))

	defer func() {
		if r := recover(); r != nil {
			t.handle.err = fmt.Errorf("job panic: %v", r)
			q.logger.Error("background job panicked",
				zap.String("job", t.handle.name),
				zap.Any("panic", r))
		}
	}()

	// jobs run to completion; there is no client-initiated cancel
	t.handle.err = t.fn(context.Background())
	if t.handle.err != nil {
		q.logger.Error("background job failed",
			zap.String("job", t.handle.name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(t.handle.err))
		return
	}
	q.logger.Info("background job finished",
		zap.String("job", t.handle.name),
		zap.Duration("duration", time.Since(start)))
}

// Submit enqueues fn and returns its handle. Submission blocks until a worker
// accepts the task, which keeps the queue unbounded-work free: admission
// throttling happens inside the job itself.
func (q *Queue) Submit(name string, fn func(context.Context) error) (*Handle, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.submitters.Add(1)
	q.mu.Unlock()
	defer q.submitters.Done()

	h := &Handle{name: name, done: make(chan struct{})}
	q.tasks <- &task{handle: h, fn: fn}
	return h, nil
}

// Shutdown stops accepting jobs and waits for in-flight work to drain or ctx
// to expire
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	alreadyClosed := q.closed
	q.closed = true
	q.mu.Unlock()

	if !alreadyClosed {
		// submitters that passed the closed check may still be blocked handing
		// their task to a worker; the channel stays open until they finish
		q.submitters.Wait()
		close(q.tasks)
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
