package pipeline

import (
	"context"
	"log/slog"
	"sync"

	apperrors "voxledger/internal/app/errors"
)

// Processor runs one job to a terminal state. Satisfied by Orchestrator.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

// Pool is the in-process queue backend: a fixed set of workers draining
// a buffered channel of job ids. Each job is held by exactly one worker
// at a time; the job id is the mutual-exclusion key.
type Pool struct {
	processor Processor
	jobs      chan string
	workers   int
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
	closed   bool

	wg sync.WaitGroup
}

// NewPool creates a pool with the given worker count and queue depth.
func NewPool(processor Processor, workers, depth int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if depth < workers {
		depth = workers * 4
	}
	return &Pool{
		processor: processor,
		jobs:      make(chan string, depth),
		workers:   workers,
		inflight:  make(map[string]bool),
		logger:    slog.Default().With("component", "worker_pool"),
	}
}

// Start launches the workers. ctx cancellation propagates into job
// processing but the pool itself drains via Shutdown.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for jobID := range p.jobs {
		if err := p.processor.Process(ctx, jobID); err != nil {
			p.logger.Error("job processing returned retryable error",
				"worker", id, "job_id", jobID, "error", err)
		}
		p.release(jobID)
	}
}

// Enqueue schedules a job. A job already queued or in flight is not
// scheduled twice. Returns an error when the queue is full or shutting
// down rather than blocking the admission path.
func (p *Pool) Enqueue(_ context.Context, jobID string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return apperrors.New("worker pool is shut down")
	}
	if p.inflight[jobID] {
		p.mu.Unlock()
		return nil
	}
	p.inflight[jobID] = true
	p.mu.Unlock()

	select {
	case p.jobs <- jobID:
		return nil
	default:
		p.release(jobID)
		return apperrors.New("worker queue is full")
	}
}

func (p *Pool) release(jobID string) {
	p.mu.Lock()
	delete(p.inflight, jobID)
	p.mu.Unlock()
}

// Shutdown stops accepting jobs and waits for queued work to drain.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
}
