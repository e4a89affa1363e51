package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"scribe/internal/logging"
)

// ErrQueueFull is returned when a submission cannot be accepted.
var ErrQueueFull = errors.New("job queue full")

// defaultQueueDepth bounds pending submissions waiting for a worker.
const defaultQueueDepth = 64

// Pool runs job pipelines on a fixed set of worker goroutines so
// blocking collaborator calls never run on the request path.
type Pool struct {
	orchestrator *Orchestrator
	submissions  chan string
	workers      int
	logger       *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewPool creates a pool of the given size around an orchestrator.
func NewPool(orchestrator *Orchestrator, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		orchestrator: orchestrator,
		submissions:  make(chan string, defaultQueueDepth),
		workers:      workers,
		logger:       logger,
	}
}

// Start launches the workers. They exit when the context is canceled
// or the pool is stopped.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx, i)
		}
	})
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(logging.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-p.submissions:
			if !ok {
				return
			}
			log.Debug("starting job", logging.String(logging.FieldJobID, jobID))
			p.orchestrator.Run(ctx, jobID)
		}
	}
}

// Submit queues a job for execution without blocking the caller.
func (p *Pool) Submit(jobID string) error {
	select {
	case p.submissions <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the submission queue and waits for in-flight jobs.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.submissions) })
	p.wg.Wait()
}
