package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	var runs int32
	q := NewQueue("test", func(_ context.Context, job Job) error {
		assert.Equal(t, "sweep", job.Kind)
		atomic.AddInt32(&runs, 1)
		return nil
	}, Config{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{Kind: "sweep"}))
	}
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 3 }, time.Second, 10*time.Millisecond)
}

func TestQueueRetriesUntilLimit(t *testing.T) {
	var attempts int32
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, Config{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Kind: "cleanup"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, Config{})
	assert.Error(t, q.Enqueue(Job{Kind: "x"}))
}

func TestEnqueueAfterStop(t *testing.T) {
	q := NewQueue("stopped", func(context.Context, Job) error { return nil }, Config{})
	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{Kind: "x"}))
}

func TestEveryEnqueuesImmediately(t *testing.T) {
	var runs int32
	q := NewQueue("tick", func(context.Context, Job) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	q.Every(ctx, time.Hour, "sweep")
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 5*time.Millisecond)
}
