// Package queue bounds how many translation calls run at once. Tasks are
// admitted in FIFO order; when too many are waiting the oldest are shed and
// their callers told so.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrShed is delivered to tasks removed from the queue by the overflow trim.
var ErrShed = errors.New("too many pending, skipped")

// Limits configures a Queue.
type Limits struct {
	// Concurrency is the number of tasks allowed to run at once.
	Concurrency int
	// MaxPending is the waiting length above which the queue is trimmed.
	MaxPending int
	// TrimTo is the waiting length kept after a trim; the oldest excess
	// tasks are shed.
	TrimTo int
}

// DefaultLimits returns 4 concurrent, trim above 80 down to 40.
func DefaultLimits() Limits {
	return Limits{Concurrency: 4, MaxPending: 80, TrimTo: 40}
}

func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.Concurrency <= 0 {
		l.Concurrency = d.Concurrency
	}
	if l.MaxPending <= 0 {
		l.MaxPending = d.MaxPending
	}
	if l.TrimTo <= 0 || l.TrimTo > l.MaxPending {
		l.TrimTo = l.MaxPending / 2
	}
	return l
}

// Outcome is the settled result of one task.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending int
	Running int
	Shed    uint64
}

type item[T any] struct {
	task func() (T, error)
	done chan Outcome[T]
}

// Queue is a bounded FIFO admission queue. The zero value is not usable;
// create one with New.
type Queue[T any] struct {
	limits Limits

	mu      sync.Mutex
	pending []*item[T]
	running int
	shed    uint64
}

// New returns an empty queue with the given limits. Zero fields take the
// defaults.
func New[T any](l Limits) *Queue[T] {
	return &Queue[T]{limits: l.normalized()}
}

// Enqueue appends task and returns a channel that receives exactly one
// Outcome: the task's result, or ErrShed if the task was trimmed before it
// was admitted.
func (q *Queue[T]) Enqueue(task func() (T, error)) <-chan Outcome[T] {
	it := &item[T]{task: task, done: make(chan Outcome[T], 1)}

	q.mu.Lock()
	q.pending = append(q.pending, it)
	var shed []*item[T]
	if len(q.pending) > q.limits.MaxPending {
		cut := len(q.pending) - q.limits.TrimTo
		shed = make([]*item[T], cut)
		copy(shed, q.pending[:cut])
		q.pending = append(q.pending[:0], q.pending[cut:]...)
		q.shed += uint64(cut)
	}
	admitted := q.admitLocked()
	q.mu.Unlock()

	for _, s := range shed {
		s.done <- Outcome[T]{Err: ErrShed}
	}
	for _, a := range admitted {
		go q.run(a)
	}
	return it.done
}

// Do enqueues task and waits for its outcome or for ctx to end. A task that
// was already admitted keeps running after ctx ends; only the wait stops.
func (q *Queue[T]) Do(ctx context.Context, task func() (T, error)) (T, error) {
	ch := q.Enqueue(task)
	select {
	case out := <-ch:
		return out.Value, out.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Stats returns the current queue occupancy.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Pending: len(q.pending), Running: q.running, Shed: q.shed}
}

// admitLocked pops tasks while there are free slots. q.mu must be held.
func (q *Queue[T]) admitLocked() []*item[T] {
	var out []*item[T]
	for q.running < q.limits.Concurrency && len(q.pending) > 0 {
		it := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.running++
		out = append(out, it)
	}
	return out
}

func (q *Queue[T]) run(it *item[T]) {
	it.done <- q.call(it.task)

	q.mu.Lock()
	q.running--
	next := q.admitLocked()
	q.mu.Unlock()

	for _, n := range next {
		go q.run(n)
	}
}

func (q *Queue[T]) call(task func() (T, error)) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{Err: fmt.Errorf("queued task panicked: %v", r)}
		}
	}()
	v, err := task()
	return Outcome[T]{Value: v, Err: err}
}
