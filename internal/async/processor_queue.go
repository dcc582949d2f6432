package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown started.
var ErrQueueClosed = common.NewAppError("QUEUE_CLOSED", "queue is shutting down", nil)

// Processor runs one evidence request (pipeline.Processor).
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	done    func(Outcome)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback invoked from the worker goroutine for every
// finished job. Callbacks from different workers may run concurrently.
func WithOnDone(fn func(Outcome)) Option {
	return func(q *ProcessorQueue) { q.done = fn }
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.start", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithRequestID(ctx, job.TraceID)

	start := time.Now()
	res, err := q.proc.Process(ctx, job.Request)
	out := Outcome{Job: job, Result: res, Err: err, WorkerID: workerID, Elapsed: time.Since(start)}

	if err != nil {
		q.logger.Error("queue.job.failed",
			"worker_id", workerID,
			"job_id", job.ID,
			"objective", job.Request.ObjectiveCode,
			"error", err,
			"elapsed_ms", out.Elapsed.Milliseconds(),
		)
	} else {
		q.logger.Info("queue.job.ok",
			"worker_id", workerID,
			"job_id", job.ID,
			"objective", job.Request.ObjectiveCode,
			"documents", len(res.Documents),
			"elapsed_ms", out.Elapsed.Milliseconds(),
		)
	}
	if q.done != nil {
		q.done(out)
	}
}

// Enqueue hands job to the workers, blocking while the buffer is full until
// ctx is done. Missing ID, trace ID and submission time are filled in.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.TraceID == "" {
		job.TraceID = job.ID.String()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "job_id", job.ID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", "job_id", job.ID, "objective", job.Request.ObjectiveCode)
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "job_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. It returns
// ctx's error when ctx ends first; workers keep draining in the background.
func (q *ProcessorQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
		return ctx.Err()
	case <-done:
		q.logger.Info("queue.shutdown.ok")
		return nil
	}
}
