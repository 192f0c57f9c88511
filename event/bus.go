package event

import (
	"log/slog"
	"sync"
)

// defaultBuffer is the per-subscriber channel depth. When a listener
// falls this far behind, further events for it are dropped.
const defaultBuffer = 64

// Listener receives events for the kinds it subscribed to. Listeners
// run on a dedicated goroutine per subscription; a panicking listener
// is logged and its subscription keeps running.
type Listener func(Event)

type subscription struct {
	ch    chan Event
	kinds map[Kind]bool // nil means all kinds
	done  chan struct{}
}

func (s *subscription) wants(k Kind) bool {
	return s.kinds == nil || s.kinds[k]
}

// Bus fans queue lifecycle events out to subscribers. Safe for
// concurrent use.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
	closed bool
	logger *slog.Logger
	buffer int
	wg     sync.WaitGroup
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used for drop and panic reports.
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBuffer sets the per-subscriber channel depth.
func WithBuffer(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// NewBus creates an event bus with no subscribers.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subs:   make(map[int]*subscription),
		logger: slog.Default(),
		buffer: defaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers fn for the given kinds, or for every kind when
// none are named. The returned function cancels the subscription and
// waits for in-flight deliveries to that listener to finish.
func (b *Bus) Subscribe(fn Listener, kinds ...Kind) (unsubscribe func()) {
	sub := &subscription{
		ch:   make(chan Event, b.buffer),
		done: make(chan struct{}),
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	key := b.nextID
	b.nextID++
	b.subs[key] = sub
	b.mu.Unlock()

	b.wg.Add(1)
	go b.deliver(sub, fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[key]; ok {
				delete(b.subs, key)
				close(sub.ch)
			}
			b.mu.Unlock()
			<-sub.done
		})
	}
}

func (b *Bus) deliver(sub *subscription, fn Listener) {
	defer b.wg.Done()
	defer close(sub.done)
	for ev := range sub.ch {
		b.invoke(fn, ev)
	}
}

// invoke shields the bus from listener panics.
func (b *Bus) invoke(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				"kind", ev.Kind,
				"item_id", ev.ItemID,
				"panic", r)
		}
	}()
	fn(ev)
}

// Publish delivers ev to every matching subscriber without blocking.
// Events for a full subscriber buffer are dropped and logged.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if !sub.wants(ev.Kind) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("event dropped, subscriber buffer full",
				"kind", ev.Kind,
				"item_id", ev.ItemID)
		}
	}
}

// Close tears down all subscriptions and waits for pending deliveries
// to drain. Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for key, sub := range b.subs {
		delete(b.subs, key)
		close(sub.ch)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
