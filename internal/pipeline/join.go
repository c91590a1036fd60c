package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// JoinResult is one task's terminal value or error.
type JoinResult[T any] struct {
	Value T
	Err   error
}

// Join runs every task concurrently and waits for all of them. Errors and
// panics are captured per task; siblings are never cancelled, so the result
// always has exactly len(tasks) entries in task order.
func Join[T any](ctx context.Context, tasks []func(context.Context) (T, error)) []JoinResult[T] {
	results := make([]JoinResult[T], len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = JoinResult[T]{Err: fmt.Errorf("task %d panicked: %v", i, r)}
				}
			}()
			value, err := task(ctx)
			results[i] = JoinResult[T]{Value: value, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
