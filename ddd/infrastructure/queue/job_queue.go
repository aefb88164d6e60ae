package queue

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull reports that the queue rejected a new job at capacity.
	ErrQueueFull = errors.New("job queue is full")
	// ErrQueueClosed reports use of a queue after Close.
	ErrQueueClosed = errors.New("job queue is closed")
)

// Claim is a dequeued job held under a lease. The worker must Ack the claim
// when processing finishes, or let the lease lapse so the job is retried.
type Claim struct {
	JobID string
}

// JobQueue hands submitted jobs to workers exactly once per lease.
type JobQueue interface {
	// Enqueue adds a job id to the pending queue.
	Enqueue(ctx context.Context, jobID string) error

	// Dequeue blocks until a job is available or ctx is done, returning a
	// leased claim.
	Dequeue(ctx context.Context) (*Claim, error)

	// Ack marks a claimed job as finished, releasing its lease.
	Ack(ctx context.Context, claim *Claim) error

	// Extend renews the claim's lease while long work is still in flight.
	Extend(ctx context.Context, claim *Claim) error

	// Remove drops a still-pending job, reporting whether it was found.
	Remove(ctx context.Context, jobID string) (bool, error)

	// Size reports how many jobs are waiting.
	Size(ctx context.Context) (int, error)

	// Close shuts the queue down.
	Close() error
}

// MemoryJobQueue is a channel-backed queue for single-process deployments.
// Leases are not needed here: a job handed to a worker dies with the process,
// and a restarted process starts from an empty queue anyway.
type MemoryJobQueue struct {
	queue     chan string
	pending   map[string]struct{}
	cancelled map[string]struct{}
	closed    bool
	mu        sync.RWMutex
	metrics   *QueueMetrics
}

// QueueMetrics counts queue traffic for stats endpoints and logs.
type QueueMetrics struct {
	EnqueueCount uint64
	DequeueCount uint64
	MaxSize      int
	CurrentSize  int
	mu           sync.RWMutex
}

// NewMemoryJobQueue creates an in-memory queue with the given capacity.
func NewMemoryJobQueue(capacity int) *MemoryJobQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryJobQueue{
		queue:     make(chan string, capacity),
		pending:   make(map[string]struct{}),
		cancelled: make(map[string]struct{}),
		metrics:   &QueueMetrics{MaxSize: capacity},
	}
}

func (q *MemoryJobQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.queue <- jobID:
		q.pending[jobID] = struct{}{}
		q.updateEnqueueMetrics()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryJobQueue) Dequeue(ctx context.Context) (*Claim, error) {
	for {
		q.mu.RLock()
		if q.closed {
			q.mu.RUnlock()
			return nil, ErrQueueClosed
		}
		ch := q.queue
		q.mu.RUnlock()

		select {
		case jobID, ok := <-ch:
			if !ok {
				return nil, ErrQueueClosed
			}
			if q.claimPending(jobID) {
				continue
			}
			q.updateDequeueMetrics()
			return &Claim{JobID: jobID}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Ack is a no-op for the memory queue; the claim left the channel on Dequeue.
func (q *MemoryJobQueue) Ack(_ context.Context, _ *Claim) error {
	return nil
}

// Extend is a no-op for the memory queue; there is no lease to renew.
func (q *MemoryJobQueue) Extend(_ context.Context, _ *Claim) error {
	return nil
}

// Remove marks a pending job as cancelled. The id stays in the channel and is
// discarded when a worker reaches it. Once a worker has claimed the id the
// removal is refused, matching the LREM miss on the redis queue.
func (q *MemoryJobQueue) Remove(_ context.Context, jobID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrQueueClosed
	}
	if _, ok := q.pending[jobID]; !ok {
		return false, nil
	}
	delete(q.pending, jobID)
	q.cancelled[jobID] = struct{}{}
	return true, nil
}

func (q *MemoryJobQueue) Size(_ context.Context) (int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return 0, nil
	}
	return len(q.queue), nil
}

func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.queue)
	return nil
}

// GetMetrics returns a snapshot of the queue counters.
func (q *MemoryJobQueue) GetMetrics() QueueMetrics {
	q.metrics.mu.RLock()
	defer q.metrics.mu.RUnlock()

	metrics := QueueMetrics{
		EnqueueCount: q.metrics.EnqueueCount,
		DequeueCount: q.metrics.DequeueCount,
		MaxSize:      q.metrics.MaxSize,
	}
	q.mu.RLock()
	if !q.closed {
		metrics.CurrentSize = len(q.queue)
	}
	q.mu.RUnlock()
	return metrics
}

// claimPending transfers the id from pending to the caller, reporting true if
// the id was cancelled and must be discarded instead.
func (q *MemoryJobQueue) claimPending(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, jobID)
	if _, ok := q.cancelled[jobID]; ok {
		delete(q.cancelled, jobID)
		return true
	}
	return false
}

func (q *MemoryJobQueue) updateEnqueueMetrics() {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.EnqueueCount++
}

func (q *MemoryJobQueue) updateDequeueMetrics() {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.DequeueCount++
}
