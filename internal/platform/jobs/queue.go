// Package jobs runs fire-and-forget persistence work in the background.
// Tasks sharing a key execute strictly in FIFO order, so background writes
// for one review record can never overtake each other or a foreground
// submission queued behind them.
package jobs

import (
	"context"
	"log/slog"
	"sync"
)

type Task struct {
	Key  string
	Type string
	Run  func(context.Context) error
}

// ErrorFunc receives failures from background tasks. Background work is
// never retried and never re-acknowledged; the callback is the only surface
// a failure reaches.
type ErrorFunc func(taskType, key string, err error)

type Queue struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	lanes   map[string]chan Task
	wg      sync.WaitGroup
	onError ErrorFunc
	buffer  int
}

func New(onError ErrorFunc) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		ctx:     ctx,
		cancel:  cancel,
		lanes:   make(map[string]chan Task),
		onError: onError,
		buffer:  64,
	}
}

// Enqueue schedules a task on the lane for its key, creating the lane's
// worker on first use. A full lane drops the task with a warning rather
// than blocking the dispatcher.
func (q *Queue) Enqueue(key, taskType string, run func(context.Context) error) {
	q.mu.Lock()
	lane, ok := q.lanes[key]
	if !ok {
		lane = make(chan Task, q.buffer)
		q.lanes[key] = lane
		q.wg.Add(1)
		go q.worker(lane)
	}
	q.mu.Unlock()

	select {
	case lane <- Task{Key: key, Type: taskType, Run: run}:
	default:
		slog.Warn("job lane full, task dropped", "key", key, "taskType", taskType)
	}
}

func (q *Queue) worker(lane chan Task) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-lane:
			if err := task.Run(q.ctx); err != nil {
				slog.Warn("background task failed", "key", task.Key, "taskType", task.Type, "err", err)
				if q.onError != nil {
					q.onError(task.Type, task.Key, err)
				}
			}
		}
	}
}

// Flush blocks until every task queued before the call has run. Relies on
// the lanes being FIFO: a sentinel enqueued now runs after everything ahead
// of it.
func (q *Queue) Flush() {
	q.mu.Lock()
	lanes := make([]chan Task, 0, len(q.lanes))
	for _, lane := range q.lanes {
		lanes = append(lanes, lane)
	}
	q.mu.Unlock()

	var flush sync.WaitGroup
	for _, lane := range lanes {
		flush.Add(1)
		done := flush.Done
		select {
		case lane <- Task{Type: "flush", Run: func(context.Context) error { done(); return nil }}:
		case <-q.ctx.Done():
			flush.Done()
		}
	}
	flush.Wait()
}

// Drain flushes outstanding work and stops the workers. Used on shutdown.
func (q *Queue) Drain() {
	q.Flush()
	q.cancel()
	q.wg.Wait()
}
