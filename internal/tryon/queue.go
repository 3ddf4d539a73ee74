// Package tryon stages inputs for the external try-on program, runs it, and
// schedules runs on a bounded worker pool.
package tryon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("try-on queue is closed")

// Task is one unit of work. It must honor ctx cancellation.
type Task func(ctx context.Context) error

// Handle tracks a submitted task.
type Handle struct {
	done   chan struct{}
	err    error
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	finished bool
}

// Done is closed when the task has finished, failed, or been cancelled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task result once Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx ends. Abandoning the wait does
// not cancel the task; call Cancel for that.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the task if it is queued or running. A task that has not
// started yet finishes at once with context.Canceled and is never run.
func (h *Handle) Cancel() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started && !h.finished {
		h.finished = true
		h.err = context.Canceled
		close(h.done)
	}
}

// start marks the task running. It reports false if the task was already
// cancelled.
func (h *Handle) start() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return false
	}
	h.started = true
	return true
}

func (h *Handle) finish(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = true
	h.err = err
	close(h.done)
}

type queuedTask struct {
	task   Task
	handle *Handle
}

// Queue runs tasks on a fixed number of workers with a per-task timeout.
type Queue struct {
	tasks   chan queuedTask
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts workers goroutines. size bounds how many tasks may wait.
func NewQueue(workers, size int, timeout time.Duration) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	q := &Queue{
		tasks:   make(chan queuedTask, size),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// Submit enqueues task. It blocks while the queue is full until ctx ends.
// The task's own context is independent of ctx.
func (q *Queue) Submit(ctx context.Context, task Task) (*Handle, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	h := &Handle{done: make(chan struct{}), ctx: taskCtx, cancel: cancel}

	select {
	case q.tasks <- queuedTask{task: task, handle: h}:
		return h, nil
	case <-ctx.Done():
		cancel()
		return nil, fmt.Errorf("try-on queue full: %w", ctx.Err())
	}
}

// Close stops accepting tasks and waits for queued ones to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) worker(n int) {
	defer q.wg.Done()
	for qt := range q.tasks {
		q.run(n, qt)
	}
}

func (q *Queue) run(n int, qt queuedTask) {
	h := qt.handle
	if !h.start() {
		return
	}
	defer h.cancel()

	if err := h.ctx.Err(); err != nil {
		h.finish(err)
		return
	}
	h.finish(q.execute(h.ctx, n, qt.task))
}

func (q *Queue) execute(ctx context.Context, n int, task Task) (err error) {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("try-on worker %d: task panicked: %v", n, r)
			err = fmt.Errorf("try-on task panicked: %v", r)
		}
	}()
	return task(ctx)
}
