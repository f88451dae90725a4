package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesSubmittedItems(t *testing.T) {
	var count atomic.Int64
	p := NewPool(2, 16, func(_ context.Context, n int) error {
		count.Add(int64(n))
		return nil
	})
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop(time.Second)

	for i := 1; i <= 5; i++ {
		require.NoError(t, p.Submit(i))
	}

	require.Eventually(t, func() bool {
		return count.Load() == 15
	}, time.Second, time.Millisecond)

	stats := p.Stats()
	assert.Equal(t, int64(5), stats.Submitted)
}

func TestPoolSubmitBeforeStart(t *testing.T) {
	p := NewPool(1, 1, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, p.Submit(1), ErrPoolNotStarted)
}

func TestPoolDoubleStart(t *testing.T) {
	p := NewPool(1, 1, func(context.Context, int) error { return nil })
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop(time.Second)
	assert.ErrorIs(t, p.Start(context.Background()), ErrPoolAlreadyStarted)
}

func TestPoolQueueFull(t *testing.T) {
	block := make(chan struct{})
	p := NewPool(1, 1, func(context.Context, int) error {
		<-block
		return nil
	})
	require.NoError(t, p.Start(context.Background()))
	defer func() {
		close(block)
		p.Stop(time.Second)
	}()

	require.NoError(t, p.Submit(1)) // picked up by the one worker, which blocks
	require.Eventually(t, func() bool {
		return p.Submit(2) == nil
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, p.Submit(3), ErrQueueFull)
}

func TestPoolStopIdempotent(t *testing.T) {
	p := NewPool(1, 1, func(context.Context, int) error { return nil })
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop(time.Second))
	require.NoError(t, p.Stop(time.Second))
}
