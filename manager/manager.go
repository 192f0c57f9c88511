// Package manager wires the queue subsystems together: the priority
// index, worker pool, retry policy, statistics, event bus, quota guard,
// and snapshot persistence. It is the single coordination point; every
// state change to an item happens under the manager's lock.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	botqueue "github.com/aajunior43/bottelegramvideo"
	"github.com/aajunior43/bottelegramvideo/event"
	"github.com/aajunior43/bottelegramvideo/index"
	"github.com/aajunior43/bottelegramvideo/item"
	"github.com/aajunior43/bottelegramvideo/middleware"
	"github.com/aajunior43/bottelegramvideo/quota"
	"github.com/aajunior43/bottelegramvideo/retry"
	"github.com/aajunior43/bottelegramvideo/stats"
	"github.com/aajunior43/bottelegramvideo/store"
	"github.com/aajunior43/bottelegramvideo/task"
	"github.com/aajunior43/bottelegramvideo/worker"
)

// Manager owns the queue state and coordinates all subsystems.
type Manager struct {
	cfg    botqueue.Config
	logger *slog.Logger
	policy retry.Policy

	mu      sync.Mutex
	idx     *index.Index
	items   map[string]*item.Item // every non-purged item, by ID string
	cancels map[string]context.CancelFunc
	seq     uint64
	dirty   int
	started bool
	closed  bool

	agg       *stats.Aggregator
	bus       *event.Bus
	guard     *quota.Guard
	snapStore store.Store
	processor worker.Processor
	registry  *task.Registry
	extraMws  []middleware.Middleware
	pool      *worker.Pool

	wake    chan struct{}
	snapCh  chan struct{}
	stopCh  chan struct{}
	janitor *cron.Cron
	bg      sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager and its subsystems.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithProcessor sets the processing callback invoked for every claimed
// item. Mutually exclusive with WithRegistry; the processor set last
// wins.
func WithProcessor(p worker.Processor) Option {
	return func(m *Manager) { m.processor = p }
}

// WithRegistry routes item payloads through a task registry instead of
// a single processor callback.
func WithRegistry(r *task.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// WithSnapshotStore enables crash-safe persistence. Without it the
// queue is purely in-memory.
func WithSnapshotStore(s store.Store) Option {
	return func(m *Manager) { m.snapStore = s }
}

// WithQuota enables per-chat submission limits.
func WithQuota(cfg quota.Config) Option {
	return func(m *Manager) { m.guard = quota.NewGuard(cfg) }
}

// WithMiddleware appends middleware to the default processing chain.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(m *Manager) { m.extraMws = append(m.extraMws, mws...) }
}

// New creates a Manager. Call Start to launch the workers.
func New(cfg botqueue.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:    cfg,
		logger: slog.Default(),
		policy: retry.Policy{
			MaxRetries: cfg.MaxRetries,
			Base:       cfg.BaseBackoff,
			Max:        cfg.MaxBackoff,
		},
		idx:     index.New(cfg.AgingThreshold),
		items:   make(map[string]*item.Item),
		cancels: make(map[string]context.CancelFunc),
		agg:     stats.New(),
		wake:    make(chan struct{}, 1),
		snapCh:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.bus = event.NewBus(event.WithLogger(m.logger))

	// Aging promotions happen while the index is read under the manager
	// lock; the bus publish is non-blocking so this is safe there.
	m.idx.OnPromote(func(it *item.Item) {
		m.bus.Publish(event.FromItem(event.KindAged, it, item.StatePending, time.Now().UTC()))
	})

	if m.processor == nil && m.registry != nil {
		reg := m.registry
		m.processor = func(ctx context.Context, it *item.Item) error {
			return reg.Process(ctx, it.Payload)
		}
	}
	if m.processor == nil {
		return nil, botqueue.ErrNoProcessor
	}

	// Default chain mirrors the execution stack: recover outermost,
	// then tracing, metrics, logging; caller middleware runs innermost.
	mws := []middleware.Middleware{
		middleware.Recover(m.logger),
		middleware.Tracing(),
		middleware.Metrics(),
		middleware.Logging(m.logger),
	}
	mws = append(mws, m.extraMws...)

	executor := worker.NewExecutor(m.processor, m.logger, mws...)
	m.pool = worker.NewPool(m, executor, m.logger,
		worker.WithPoolConcurrency(cfg.WorkerCount),
		worker.WithPollInterval(cfg.PollInterval),
	)

	return m, nil
}

// Start recovers persisted state, launches the worker pool, and begins
// the snapshot and cleanup loops.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return botqueue.ErrManagerClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if m.snapStore != nil {
		m.recoverFromSnapshot(ctx)
	}

	if err := m.pool.Start(ctx); err != nil {
		return err
	}

	if m.snapStore != nil && m.cfg.SnapshotInterval > 0 {
		m.bg.Add(1)
		go m.snapshotLoop()
	}

	if m.cfg.CleanupInterval > 0 {
		m.janitor = cron.New()
		spec := fmt.Sprintf("@every %s", m.cfg.CleanupInterval)
		if _, err := m.janitor.AddFunc(spec, func() {
			if n := m.Purge(time.Now()); n > 0 {
				m.logger.Info("retention purge", slog.Int("removed", n))
			}
		}); err != nil {
			return fmt.Errorf("manager: schedule cleanup: %w", err)
		}
		m.janitor.Start()
	}

	m.logger.Info("queue manager started",
		slog.Int("workers", m.cfg.WorkerCount),
		slog.Bool("persistence", m.snapStore != nil),
	)
	return nil
}

// Stop drains the queue: no new submissions are accepted, in-flight
// items get ShutdownTimeout to finish (interrupted ones return to
// pending), a final snapshot is written, and the event bus closes.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	wasStarted := m.started
	m.mu.Unlock()

	m.logger.Info("queue manager stopping")

	if !wasStarted {
		m.bus.Close()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		poolCtx := gctx
		if m.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			poolCtx, cancel = context.WithTimeout(gctx, m.cfg.ShutdownTimeout)
			defer cancel()
		}
		return m.pool.Stop(poolCtx)
	})

	if m.janitor != nil {
		g.Go(func() error {
			<-m.janitor.Stop().Done()
			return nil
		})
	}

	err := g.Wait()

	close(m.stopCh)
	m.bg.Wait()

	if m.snapStore != nil {
		if snapErr := m.writeSnapshot(context.Background(), true); snapErr != nil {
			m.logger.Error("final snapshot failed", slog.String("error", snapErr.Error()))
			if err == nil {
				err = snapErr
			}
		}
		if closeErr := m.snapStore.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}

	m.bus.Close()
	m.logger.Info("queue manager stopped")
	return err
}

// Subscribe registers a listener for queue lifecycle events. See
// event.Bus.Subscribe.
func (m *Manager) Subscribe(fn event.Listener, kinds ...event.Kind) (unsubscribe func()) {
	return m.bus.Subscribe(fn, kinds...)
}

// Statistics returns a point-in-time view of queue counters and
// latency figures.
func (m *Manager) Statistics() stats.Snapshot {
	return m.agg.Snapshot()
}
