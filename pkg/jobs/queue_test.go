package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]int
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[string]int), fail: make(map[string]int)}
}

func (r *recorder) handle(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[jobID]++
	if r.fail[jobID] > 0 {
		r.fail[jobID]--
		return errors.New("delivery failed")
	}
	return nil
}

func (r *recorder) count(jobID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[jobID]
}

func TestQueueDeliversEnqueuedIDs(t *testing.T) {
	rec := newRecorder()
	q := NewQueue("test", rec.handle, QueueConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	defer func() {
		cancel()
		q.Stop()
	}()

	require.NoError(t, q.Enqueue("job-1"))
	require.NoError(t, q.Enqueue("job-2"))

	require.Eventually(t, func() bool {
		return rec.count("job-1") == 1 && rec.count("job-2") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailedDelivery(t *testing.T) {
	rec := newRecorder()
	rec.fail["job-1"] = 1
	q := NewQueue("test", rec.handle, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	defer func() {
		cancel()
		q.Stop()
	}()

	require.NoError(t, q.Enqueue("job-1"))

	require.Eventually(t, func() bool {
		return rec.count("job-1") == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	rec := newRecorder()
	rec.fail["job-1"] = 10
	q := NewQueue("test", rec.handle, QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	defer func() {
		cancel()
		q.Stop()
	}()

	require.NoError(t, q.Enqueue("job-1"))

	// One initial delivery plus one retry, then the row is left to the sweep.
	require.Eventually(t, func() bool {
		return rec.count("job-1") == 2
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, rec.count("job-1"))
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", newRecorder().handle, QueueConfig{})
	require.Error(t, q.Enqueue("job-1"))
}
