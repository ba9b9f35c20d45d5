package hook

import (
	"context"
	"sync/atomic"
)

// Queue runs jobs one at a time on a worker goroutine and drops jobs when full.
type Queue struct {
	runner *Runner
	ch     chan Job

	Sent    atomic.Int64
	Dropped atomic.Int64
	Failed  atomic.Int64
}

// NewQueue returns a queue holding up to size pending jobs.
func NewQueue(r *Runner, size int) *Queue {
	return &Queue{runner: r, ch: make(chan Job, max(1, size))}
}

// Enqueue adds a job without blocking and reports whether it was accepted.
func (q *Queue) Enqueue(job Job) bool {
	select {
	case q.ch <- job:
		return true
	default:
		q.Dropped.Add(1)
		q.runner.logger.Warn("hook queue full, dropping job")
		return false
	}
}

// Work runs queued jobs until ctx is done.
func (q *Queue) Work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.ch:
			if err := q.runner.Run(ctx, job); err != nil {
				q.Failed.Add(1)
				q.runner.logger.Errorf("hook: %v", err)
				continue
			}
			q.Sent.Add(1)
		}
	}
}
