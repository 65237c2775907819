// Package work provides the bounded worker pool that runs CPU-bound
// candidate evaluations off the caller's goroutine.
package work

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCandidateTimeout bounds a single candidate evaluation so one
// pathological estimator cannot stall a whole search.
const DefaultCandidateTimeout = 30 * time.Second

// Task is a single candidate evaluation producing a result of type T. The
// task must honor ctx; its result is published by the pool only when the
// task finishes inside its time budget.
type Task[T any] func(ctx context.Context) (T, error)

// ErrTimeout marks a candidate that exceeded its individual time budget.
// Callers treat it like any other skipped candidate.
var ErrTimeout = fmt.Errorf("candidate evaluation timed out")

// Pool runs candidate evaluations on a bounded set of workers.
type Pool struct {
	workers int
	timeout time.Duration
	log     zerolog.Logger
}

// NewPool creates a pool. workers < 1 defaults to 1; timeout <= 0 defaults to
// DefaultCandidateTimeout.
func NewPool(workers int, timeout time.Duration, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = DefaultCandidateTimeout
	}
	return &Pool{
		workers: workers,
		timeout: timeout,
		log:     log.With().Str("component", "eval_pool").Logger(),
	}
}

// Run evaluates all tasks and returns one result and one error slot per task
// (err nil = result valid). Each task gets its own timeout. A task that times
// out keeps its zero result slot: the abandoned evaluation hands its value to
// a channel nobody reads anymore, so nothing it does can surface after Run
// returns. When ctx is cancelled, tasks not yet started report ctx.Err()
// while running ones are interrupted via their task context; completed
// results are kept.
func Run[T any](ctx context.Context, p *Pool, tasks []Task[T]) ([]T, []error) {
	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, task Task[T]) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = runOne(ctx, p, i, task)
		}(i, task)
	}

	wg.Wait()
	return results, errs
}

func runOne[T any](ctx context.Context, p *Pool, i int, task Task[T]) (T, error) {
	taskCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error().Int("candidate", i).Interface("panic", r).Msg("Candidate evaluation panicked")
				var zero T
				done <- outcome{zero, fmt.Errorf("candidate %d panicked: %v", i, r)}
			}
		}()
		v, err := task(taskCtx)
		done <- outcome{v, err}
	}()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-taskCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		p.log.Warn().Int("candidate", i).Dur("timeout", p.timeout).Msg("Candidate evaluation timed out")
		return zero, ErrTimeout
	}
}
