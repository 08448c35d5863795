// Package inmemory provides channel-based job transport and an in-memory
// task store for single-process deployments and tests.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"budgetapp/internal/jobs"
	"budgetapp/internal/logger"
)

// Queue is an in-memory Dispatcher and Consumer backed by a buffered channel.
type Queue struct {
	msgs      chan jobs.Message
	closeChan chan struct{}
	workers   int
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	drain     jobs.MessageHandler
}

// NewQueue creates a queue. Dispatch blocks once bufferSize messages are waiting.
func NewQueue(bufferSize, workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		msgs:      make(chan jobs.Message, bufferSize),
		closeChan: make(chan struct{}),
		workers:   workers,
	}
}

// Dispatch implements jobs.Dispatcher.
func (q *Queue) Dispatch(ctx context.Context, msg jobs.Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	select {
	case q.msgs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// OnStop sets the handler that receives messages still buffered when the
// queue stops. Without one they are logged and dropped.
func (q *Queue) OnStop(h jobs.MessageHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.drain = h
}

// Start implements jobs.Consumer. Workers exit when ctx is done or the queue stops.
func (q *Queue) Start(ctx context.Context, handler jobs.MessageHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.MessageHandler) {
	defer q.wg.Done()

	for {
		// select picks randomly among ready cases, so check for shutdown
		// first to leave buffered messages to the drain.
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case msg := <-q.msgs:
			// The registry claims tasks, so a failed handler is not retried here.
			if err := handler(ctx, msg); err != nil {
				logger.Get().Errorw("Job handler failed", "task_id", msg.TaskID, "error", err)
			}
		}
	}
}

// Stop implements jobs.Consumer. It waits for in-flight messages, then hands
// every message left in the buffer to the OnStop handler.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	drain := q.drain
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	q.drainBuffered(context.WithoutCancel(ctx), drain)
	return err
}

func (q *Queue) drainBuffered(ctx context.Context, drain jobs.MessageHandler) {
	for {
		select {
		case msg := <-q.msgs:
			if drain == nil {
				logger.Get().Warnw("Dropping queued job on shutdown", "task_id", msg.TaskID, "kind", msg.Kind)
				continue
			}
			if err := drain(ctx, msg); err != nil {
				logger.Get().Errorw("Failed to drain queued job", "task_id", msg.TaskID, "error", err)
			}
		default:
			return
		}
	}
}

// Close implements jobs.Dispatcher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Dispatcher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
