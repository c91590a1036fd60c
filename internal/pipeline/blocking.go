package pipeline

import (
	"context"
	"fmt"
	"sync"
)

const progressQueueSize = 16

// RunBlocking runs fn on a dedicated goroutine and relays its progress ticks
// to onProgress from the calling goroutine. Ticks are dropped rather than
// blocking fn when the queue is full, and non-increasing ticks are ignored.
func RunBlocking[T any](ctx context.Context, fn func(ctx context.Context, report func(float64)) (T, error), onProgress func(float64)) (T, error) {
	ticks := make(chan float64, progressQueueSize)
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	var mu sync.Mutex
	last := -1.0
	report := func(p float64) {
		mu.Lock()
		defer mu.Unlock()
		if p <= last {
			return
		}
		last = p
		select {
		case ticks <- p:
		default:
		}
	}

	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out.err = fmt.Errorf("blocking task panicked: %v", r)
			}
			done <- out
		}()
		out.value, out.err = fn(ctx, report)
	}()

	relay := func(p float64) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	for {
		select {
		case p := <-ticks:
			relay(p)
		case out := <-done:
			for {
				select {
				case p := <-ticks:
					relay(p)
				default:
					return out.value, out.err
				}
			}
		}
	}
}
