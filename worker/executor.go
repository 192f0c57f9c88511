// Package worker provides the item execution engine: an Executor that
// invokes the processor through middleware, and a Pool of goroutines
// that claim items from the queue and run them.
package worker

import (
	"context"
	"log/slog"

	"github.com/aajunior43/bottelegramvideo/item"
	"github.com/aajunior43/bottelegramvideo/middleware"
	"github.com/aajunior43/bottelegramvideo/retry"
)

// Processor performs the actual work for one claimed item. It must
// honor ctx cancellation and classify failures with retry.Transient or
// retry.Permanent; unclassified errors are treated as transient.
type Processor func(ctx context.Context, it *item.Item) error

// Executor runs a single item through the middleware chain and the
// processor. Retry decisions and state updates belong to the queue; the
// executor only reports the outcome.
type Executor struct {
	process Processor
	mw      middleware.Middleware
	logger  *slog.Logger
}

// NewExecutor creates an Executor wrapping process with the given
// middleware.
func NewExecutor(process Processor, logger *slog.Logger, mws ...middleware.Middleware) *Executor {
	return &Executor{
		process: process,
		mw:      middleware.Chain(mws...),
		logger:  logger,
	}
}

// Execute runs the item. A panic escaping the middleware chain is
// converted to a worker fault here so a broken processor can never kill
// the pool goroutine.
func (e *Executor) Execute(ctx context.Context, it *item.Item) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic escaped middleware chain",
				slog.String("item_id", it.ID.String()),
				slog.Any("panic", r),
			)
			retErr = retry.Faultf("panic processing item %s: %v", it.ID, r)
		}
	}()

	terminal := func(ctx context.Context) error {
		return e.process(ctx, it)
	}
	return e.mw(ctx, it, terminal)
}
