package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler delivers one persisted outbox job identified by its row ID.
type Handler func(context.Context, string) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

type delivery struct {
	jobID   string
	attempt int
}

// Queue fans persisted outbox job IDs out to a fixed worker pool. The
// database row is the source of truth; the queue carries only row IDs, so a
// dropped or lost ID is repaired by the periodic sweep rather than retried
// here indefinitely.
type Queue struct {
	name    string
	handler Handler

	workers    int
	bufferSize int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	deliveries chan delivery
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		deliveries: make(chan delivery, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue pushes an outbox row ID onto the queue.
func (q *Queue) Enqueue(jobID string) error {
	return q.push(delivery{jobID: jobID})
}

func (q *Queue) push(d delivery) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.deliveries <- d:
		return nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case d := <-q.deliveries:
			if err := q.handler(q.ctx, d.jobID); err != nil {
				q.handleFailure(d, err)
			}
		}
	}
}

func (q *Queue) handleFailure(d delivery, err error) {
	d.attempt++
	if d.attempt > q.maxRetries {
		q.logger.Sugar().Errorw("delivery exceeded in-process retries, leaving row to the sweep",
			"queue", q.name, "job_id", d.jobID, "error", err)
		return
	}
	q.logger.Sugar().Warnw("delivery failed, retrying",
		"queue", q.name, "job_id", d.jobID, "attempt", d.attempt, "error", err)

	go func(d delivery) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.push(d); err != nil {
				q.logger.Sugar().Errorw("failed to requeue delivery", "queue", q.name, "job_id", d.jobID, "error", err)
			}
		}
	}(d)
}
