package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueEnqueueDequeue(t *testing.T) {
	q := NewMemoryJobQueue(4)
	defer q.Close()

	require.NoError(t, q.Enqueue(context.Background(), "job-1"))
	require.NoError(t, q.Enqueue(context.Background(), "job-2"))

	claim, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-1", claim.JobID)

	claim, err = q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-2", claim.JobID)

	require.NoError(t, q.Ack(context.Background(), claim))
}

func TestMemoryQueueFullRejectsEnqueue(t *testing.T) {
	q := NewMemoryJobQueue(1)
	defer q.Close()

	require.NoError(t, q.Enqueue(context.Background(), "job-1"))
	err := q.Enqueue(context.Background(), "job-2")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestMemoryQueueDequeueRespectsContext(t *testing.T) {
	q := NewMemoryJobQueue(1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueueRemoveSkipsCancelledJob(t *testing.T) {
	q := NewMemoryJobQueue(4)
	defer q.Close()

	require.NoError(t, q.Enqueue(context.Background(), "job-1"))
	require.NoError(t, q.Enqueue(context.Background(), "job-2"))

	removed, err := q.Remove(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, removed)

	// The cancelled id stays in the channel but is discarded on dequeue.
	claim, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-2", claim.JobID)
}

func TestMemoryQueueRemoveRefusedOnceClaimed(t *testing.T) {
	q := NewMemoryJobQueue(4)
	defer q.Close()

	require.NoError(t, q.Enqueue(context.Background(), "job-1"))

	claim, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-1", claim.JobID)

	// The id has left the queue into a worker's hands; removal must report a
	// miss so cancellation cannot race the in-flight run.
	removed, err := q.Remove(context.Background(), "job-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryQueueRemoveUnknownID(t *testing.T) {
	q := NewMemoryJobQueue(4)
	defer q.Close()

	removed, err := q.Remove(context.Background(), "no-such-job")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryQueueCloseUnblocksConsumers(t *testing.T) {
	q := NewMemoryJobQueue(1)

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()

	// Give the consumer time to block on the channel.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock on Close")
	}

	assert.ErrorIs(t, q.Enqueue(context.Background(), "job-1"), ErrQueueClosed)
}

func TestMemoryQueueMetrics(t *testing.T) {
	q := NewMemoryJobQueue(4)
	defer q.Close()

	require.NoError(t, q.Enqueue(context.Background(), "job-1"))
	_, err := q.Dequeue(context.Background())
	require.NoError(t, err)

	m := q.GetMetrics()
	assert.Equal(t, uint64(1), m.EnqueueCount)
	assert.Equal(t, uint64(1), m.DequeueCount)
	assert.Equal(t, 4, m.MaxSize)
	assert.Equal(t, 0, m.CurrentSize)
}
