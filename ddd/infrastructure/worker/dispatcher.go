package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/service"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/vo"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/queue"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// Dispatcher drains the job queue with a fixed pool of worker goroutines,
// running the pipeline for each claimed job.
type Dispatcher interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	GetStats() DispatcherStats
}

// DispatcherStats counts work handled by the pool since Start.
type DispatcherStats struct {
	ProcessedJobs    uint64
	SucceededJobs    uint64
	FailedJobs       uint64
	CurrentlyRunning int
	StartTime        time.Time
	LastJobTime      time.Time
}

// Options tunes the dispatcher pool.
type Options struct {
	// WorkerID labels this process in logs.
	WorkerID string
	// Count is the number of concurrent worker goroutines.
	Count int
	// LeaseRenewInterval is how often a busy worker extends its claim's
	// lease; zero disables renewal (memory queue).
	LeaseRenewInterval time.Duration
}

type dispatcherImpl struct {
	opts     Options
	jobQueue queue.JobQueue
	executor service.PipelineExecutor

	running bool
	cancel  context.CancelFunc
	stats   DispatcherStats
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// NewDispatcher creates the worker pool over a queue and executor.
func NewDispatcher(opts Options, jobQueue queue.JobQueue, executor service.PipelineExecutor) Dispatcher {
	if opts.Count <= 0 {
		opts.Count = 1
	}
	return &dispatcherImpl{
		opts:     opts,
		jobQueue: jobQueue,
		executor: executor,
	}
}

// Name implements task.BackgroundTask.
func (d *dispatcherImpl) Name() string {
	return fmt.Sprintf("dispatcher-%s", d.opts.WorkerID)
}

func (d *dispatcherImpl) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("dispatcher %s is already running", d.opts.WorkerID)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.stats = DispatcherStats{StartTime: time.Now()}

	logger.Infof("starting dispatcher worker_id=%s goroutines=%d", d.opts.WorkerID, d.opts.Count)

	for i := 0; i < d.opts.Count; i++ {
		d.wg.Add(1)
		go d.workerLoop(workerCtx, i)
	}
	return nil
}

func (d *dispatcherImpl) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	logger.Infof("stopping dispatcher worker_id=%s", d.opts.WorkerID)
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.running = false
	return nil
}

func (d *dispatcherImpl) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

func (d *dispatcherImpl) GetStats() DispatcherStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

func (d *dispatcherImpl) workerLoop(ctx context.Context, slot int) {
	defer d.wg.Done()

	for {
		claim, err := d.jobQueue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			logger.Warnf("dequeue failed worker_id=%s slot=%d error=%v", d.opts.WorkerID, slot, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		d.handleClaim(ctx, slot, claim)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (d *dispatcherImpl) handleClaim(ctx context.Context, slot int, claim *queue.Claim) {
	d.noteStarted()
	defer d.noteFinished()

	logger.Infof("job claimed worker_id=%s slot=%d job_id=%s", d.opts.WorkerID, slot, claim.JobID)

	// Keep the lease alive while long ffmpeg work runs.
	renewDone := d.startLeaseRenewal(ctx, claim)

	job, err := d.executor.Run(ctx, claim.JobID)
	renewDone()

	if err != nil {
		// Store failure: leave the claim leased so the lease lapses and the
		// job is reclaimed for another attempt.
		logger.Errorf("job attempt abandoned worker_id=%s job_id=%s error=%v", d.opts.WorkerID, claim.JobID, err)
		d.noteOutcome(false)
		return
	}

	if ackErr := d.jobQueue.Ack(ctx, claim); ackErr != nil {
		logger.Warnf("ack failed worker_id=%s job_id=%s error=%v", d.opts.WorkerID, claim.JobID, ackErr)
	}

	d.noteOutcome(job != nil && job.Status == vo.JobStatusCompleted)
}

// startLeaseRenewal extends the claim periodically until the returned stop
// function is called.
func (d *dispatcherImpl) startLeaseRenewal(ctx context.Context, claim *queue.Claim) func() {
	if d.opts.LeaseRenewInterval <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(d.opts.LeaseRenewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := d.jobQueue.Extend(ctx, claim); err != nil {
					logger.Warnf("lease renewal failed job_id=%s error=%v", claim.JobID, err)
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}

func (d *dispatcherImpl) noteStarted() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.CurrentlyRunning++
	d.stats.LastJobTime = time.Now()
}

func (d *dispatcherImpl) noteFinished() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.CurrentlyRunning--
}

func (d *dispatcherImpl) noteOutcome(succeeded bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.ProcessedJobs++
	if succeeded {
		d.stats.SucceededJobs++
	} else {
		d.stats.FailedJobs++
	}
}
