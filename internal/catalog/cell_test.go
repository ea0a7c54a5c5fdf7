package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	var builds atomic.Int32

	cell := NewCell(func(context.Context) (int, error) {
		builds.Add(1)
		time.Sleep(10 * time.Millisecond)

		return 42, nil
	})

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			v, err := cell.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
}

func TestCell_FailureIsNotCached(t *testing.T) {
	calls := 0
	cell := NewCell(func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("unavailable")
		}

		return "ok", nil
	})

	_, err := cell.Get(context.Background())
	assert.Error(t, err)

	v, err := cell.Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestCell_WaiterReturnsOnItsOwnCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	var buildErr error

	cell := NewCell(func(ctx context.Context) (int, error) {
		close(started)
		<-release

		buildErr = ctx.Err()

		return 7, nil
	})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())

	leader := make(chan error, 1)

	go func() {
		_, err := cell.Get(leaderCtx)
		leader <- err
	}()

	<-started

	waiterCtx, cancelWaiter := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelWaiter()

	_, err := cell.Get(waiterCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded, "a waiter stops at its own deadline while the build runs")

	cancelLeader()
	require.ErrorIs(t, <-leader, context.Canceled)

	close(release)

	assert.Eventually(t, func() bool {
		v, err := cell.Get(context.Background())
		return err == nil && v == 7
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, buildErr, "the build does not inherit caller cancellation")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := cell.Get(cancelled)
	require.NoError(t, err, "a built value is served even to a cancelled caller")
	assert.Equal(t, 7, v)
}
