package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()
	pool, err := New(&Config{Workers: workers}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return pool
}

func TestSubmitRunsTasks(t *testing.T) {
	pool := newTestPool(t, 4)

	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			mu.Lock()
			count++
			mu.Unlock()
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, 20, count)
	assert.Equal(t, int64(20), pool.Stats().Submitted)
}

func TestSubmitWaitReturnsTaskError(t *testing.T) {
	pool := newTestPool(t, 1)

	taskErr := errors.New("task blew up")
	err := pool.SubmitWait(context.Background(), func() error {
		return taskErr
	})
	assert.Equal(t, taskErr, err)
	assert.Equal(t, int64(1), pool.Stats().Failed)
}

func TestSubmitWaitSuccess(t *testing.T) {
	pool := newTestPool(t, 1)

	ran := false
	err := pool.SubmitWait(context.Background(), func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int64(1), pool.Stats().Completed)
}

func TestSubmitWaitRespectsContext(t *testing.T) {
	pool := newTestPool(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	err := pool.SubmitWait(ctx, func() error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitAfterRelease(t *testing.T) {
	pool, err := New(&Config{Workers: 1}, zap.NewNop())
	require.NoError(t, err)
	pool.Release()

	assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolClosed)
	assert.ErrorIs(t, pool.SubmitWait(context.Background(), func() error { return nil }), ErrPoolClosed)
}
