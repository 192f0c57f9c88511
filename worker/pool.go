package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aajunior43/bottelegramvideo/id"
	"github.com/aajunior43/bottelegramvideo/item"
)

// Queue is the pool's view of the item queue. The manager implements
// it.
type Queue interface {
	// Claim dequeues the next eligible item and marks it running. The
	// returned context is cancelled when the item's cancellation is
	// requested. ok is false when no item is eligible right now.
	Claim(ctx context.Context) (it *item.Item, runCtx context.Context, ok bool)

	// Finish reports the processing outcome for a claimed item. A nil
	// err means success; the queue decides between retry and terminal
	// failure otherwise.
	Finish(ctx context.Context, it *item.Item, err error)

	// Wake returns a channel that receives a signal when new work may
	// be available, so parked workers do not wait out the full poll
	// interval.
	Wake() <-chan struct{}
}

// Pool manages a set of concurrent worker goroutines that claim items
// and execute them through the Executor.
type Pool struct {
	queue        Queue
	executor     *Executor
	concurrency  int
	pollInterval time.Duration
	workerID     id.WorkerID
	logger       *slog.Logger

	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
	activeItems map[string]context.CancelFunc
	activeMu    sync.Mutex
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPollInterval sets the fallback interval at which parked workers
// re-check for eligible items. The interval bounds how late aging
// promotions and backoff expiries are noticed.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// NewPool creates a worker pool.
func NewPool(queue Queue, executor *Executor, logger *slog.Logger, opts ...PoolOption) *Pool {
	p := &Pool{
		queue:        queue,
		executor:     executor,
		concurrency:  4,
		pollInterval: time.Second,
		workerID:     id.NewWorkerID(),
		logger:       logger,
		stopCh:       make(chan struct{}),
		activeItems:  make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.claimLoop()
	}

	return nil
}

// Stop signals all workers to stop and waits for in-flight items to
// finish. If the context has a deadline, active items are cancelled
// when time runs out; their processors see ctx.Done and the items are
// finished as interrupted.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active items")
		p.cancelActiveItems()
		p.wg.Wait()
	}

	return nil
}

// claimLoop is run by each worker goroutine.
func (p *Pool) claimLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		it, runCtx, ok := p.queue.Claim(context.Background())
		if !ok {
			p.sleep()
			continue
		}

		ctx, cancel := context.WithCancel(runCtx)
		p.track(it.ID.String(), cancel)

		execErr := p.executor.Execute(ctx, it)
		if execErr != nil {
			p.logger.Debug("item execution failed",
				slog.String("item_id", it.ID.String()),
				slog.String("error", execErr.Error()),
			)
		}

		p.untrack(it.ID.String())
		cancel()

		p.queue.Finish(context.Background(), it, execErr)
	}
}

// sleep parks the worker until new work is signalled, the poll interval
// elapses, or the pool stops.
func (p *Pool) sleep() {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-p.queue.Wake():
	case <-p.stopCh:
	}
}

func (p *Pool) track(itemID string, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.activeItems[itemID] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrack(itemID string) {
	p.activeMu.Lock()
	delete(p.activeItems, itemID)
	p.activeMu.Unlock()
}

func (p *Pool) cancelActiveItems() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for itemID, cancel := range p.activeItems {
		p.logger.Warn("cancelling active item", slog.String("item_id", itemID))
		cancel()
	}
}
