package catalog

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cell lazily builds a value once and hands the same value to every caller.
// Concurrent first callers share a single build, and each of them stops
// waiting when its own context is done. The build itself runs detached from
// caller cancellation. A failed build is not cached, so the next caller
// retries.
type Cell[T any] struct {
	build func(ctx context.Context) (T, error)
	group singleflight.Group

	mu    sync.RWMutex
	done  bool
	value T
}

// NewCell returns a cell that fills itself with build.
func NewCell[T any](build func(ctx context.Context) (T, error)) *Cell[T] {
	return &Cell[T]{build: build}
}

// Get returns the cached value, building it on first use.
func (c *Cell[T]) Get(ctx context.Context) (T, error) {
	if v, ok := c.load(); ok {
		return v, nil
	}

	ch := c.group.DoChan("build", func() (any, error) {
		if v, ok := c.load(); ok {
			return v, nil
		}

		v, err := c.build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.value, c.done = v, true
		c.mu.Unlock()

		return v, nil
	})

	var zero T

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}

		v, _ := res.Val.(T)

		return v, nil
	}
}

func (c *Cell[T]) load() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.value, c.done
}
