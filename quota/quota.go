// Package quota enforces per-chat submission limits: a token-bucket
// rate on new submissions plus a cap on items a single chat may have
// in flight (pending or running) at once. It keeps one noisy group
// chat from monopolizing the download queue.
package quota

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines the limits applied to each chat.
type Config struct {
	// MaxInFlight caps pending plus running items per chat. Zero means
	// unlimited.
	MaxInFlight int

	// RateLimit is the maximum sustained submissions per second per
	// chat. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the token-bucket burst size. Defaults to 1 when
	// RateLimit is set and RateBurst is zero.
	RateBurst int
}

// chatState tracks runtime state for one chat.
type chatState struct {
	limiter  *rate.Limiter
	inFlight int
}

// Guard applies Config per chat. Safe for concurrent use. Chat state is
// created lazily on first submission and dropped when the chat has
// nothing in flight.
type Guard struct {
	mu    sync.Mutex
	cfg   Config
	chats map[int64]*chatState
}

// NewGuard creates a guard applying cfg to every chat.
func NewGuard(cfg Config) *Guard {
	if cfg.RateLimit > 0 && cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	return &Guard{
		cfg:   cfg,
		chats: make(map[int64]*chatState),
	}
}

// Acquire checks the chat's rate and in-flight limits. On success the
// in-flight counter is incremented and the caller must pair it with
// Release when the item reaches a terminal state.
func (g *Guard) Acquire(chatID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cs := g.chats[chatID]
	if cs == nil {
		cs = &chatState{}
		if g.cfg.RateLimit > 0 {
			cs.limiter = rate.NewLimiter(rate.Limit(g.cfg.RateLimit), g.cfg.RateBurst)
		}
		g.chats[chatID] = cs
	}

	// Cap check first: an over-cap rejection must not spend a rate
	// token the chat could use after a Release.
	if g.cfg.MaxInFlight > 0 && cs.inFlight >= g.cfg.MaxInFlight {
		return false
	}
	if cs.limiter != nil && !cs.limiter.Allow() {
		return false
	}

	cs.inFlight++
	return true
}

// Release decrements the chat's in-flight count. Idle chats without a
// limiter are evicted to keep the map bounded by active chats.
func (g *Guard) Release(chatID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cs := g.chats[chatID]
	if cs == nil {
		return
	}
	if cs.inFlight > 0 {
		cs.inFlight--
	}
	if cs.inFlight == 0 && cs.limiter == nil {
		delete(g.chats, chatID)
	}
}

// InFlight returns the chat's current pending-plus-running count.
func (g *Guard) InFlight(chatID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cs := g.chats[chatID]; cs != nil {
		return cs.inFlight
	}
	return 0
}
