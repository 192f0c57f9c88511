package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/aajunior43/bottelegramvideo/item"
	"github.com/aajunior43/bottelegramvideo/retry"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are logged with a stack trace and converted to worker
// faults, which fail the item without consuming retry budget.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, it *item.Item, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("item processor panicked",
					slog.String("item_id", it.ID.String()),
					slog.Int("attempt", it.Attempts),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = retry.Faultf("panic processing item %s: %v", it.ID, r)
			}
		}()
		return next(ctx)
	}
}
