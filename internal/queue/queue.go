package queue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Task performs one write action.
type Task[T any] func(ctx context.Context) (T, error)

// Continuation receives the result of exactly one task.
type Continuation[T any] func(value T, err error)

type item[T any] struct {
	ctx    context.Context
	action string
	task   Task[T]
	done   Continuation[T]
}

type runner[T any] struct {
	backlog []item[T]
}

// Queue runs write actions. When enabled, actions for one destination run one
// at a time in submission order while different destinations run
// concurrently. When disabled every action runs immediately on its own.
type Queue[T any] struct {
	mutex   sync.Mutex
	enabled bool
	runners map[int64]*runner[T]

	sugar    *zap.SugaredLogger
	observer func(action string, err error)
}

func New[T any](enabled bool, sugar *zap.SugaredLogger) *Queue[T] {
	return &Queue[T]{
		enabled: enabled,
		runners: make(map[int64]*runner[T]),
		sugar:   sugar,
	}
}

// Observe registers a hook called after every finished action.
func (q *Queue[T]) Observe(observer func(action string, err error)) {
	q.observer = observer
}

func (q *Queue[T]) Enabled() bool {
	return q.enabled
}

// Submit schedules the task for the destination. done is always called once.
func (q *Queue[T]) Submit(ctx context.Context, destination int64, action string, task Task[T], done Continuation[T]) {
	it := item[T]{ctx: ctx, action: action, task: task, done: done}

	if !q.enabled {
		go q.execute(destination, it)
		return
	}

	q.mutex.Lock()
	r, exists := q.runners[destination]
	if !exists {
		r = &runner[T]{}
		q.runners[destination] = r
	}
	r.backlog = append(r.backlog, it)
	q.mutex.Unlock()

	if !exists {
		q.sugar.Debugf("Starting queue runner for destination [%d]", destination)
		go q.drain(destination, r)
	}
}

// Do submits the task and waits for its result. Without queueing the task runs
// on the calling goroutine.
func (q *Queue[T]) Do(ctx context.Context, destination int64, action string, task Task[T]) (T, error) {
	if !q.enabled {
		value, err := q.run(ctx, destination, action, task)
		q.observe(action, err)
		return value, err
	}

	type result struct {
		value T
		err   error
	}

	results := make(chan result, 1)
	q.Submit(ctx, destination, action, task, func(value T, err error) {
		results <- result{value, err}
	})

	select {
	case r := <-results:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Pending returns how many actions wait behind the running one, or 0 when the
// destination has no runner.
func (q *Queue[T]) Pending(destination int64) int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if r, exists := q.runners[destination]; exists {
		return len(r.backlog)
	}
	return 0
}

func (q *Queue[T]) drain(destination int64, r *runner[T]) {
	for {
		q.mutex.Lock()
		if len(r.backlog) == 0 {
			// runner is discarded once its backlog is empty
			delete(q.runners, destination)
			q.mutex.Unlock()
			q.sugar.Debugf("Queue runner for destination [%d] is done", destination)
			return
		}
		it := r.backlog[0]
		r.backlog[0] = item[T]{}
		r.backlog = r.backlog[1:]
		q.mutex.Unlock()

		q.execute(destination, it)
	}
}

func (q *Queue[T]) execute(destination int64, it item[T]) {
	value, err := q.run(it.ctx, destination, it.action, it.task)
	q.observe(it.action, err)
	if it.done != nil {
		it.done(value, err)
	}
}

// run converts a panicking task into an error so the runner keeps going.
func (q *Queue[T]) run(ctx context.Context, destination int64, action string, task Task[T]) (value T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%s to destination [%d] panicked: %v", action, destination, recovered)
			q.sugar.Error(err)
		}
	}()

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	value, err = task(ctx)
	if err != nil {
		q.sugar.Debugf("%s to destination [%d] failed: %v", action, destination, err)
	}
	return value, err
}

func (q *Queue[T]) observe(action string, err error) {
	if q.observer != nil {
		q.observer(action, err)
	}
}
