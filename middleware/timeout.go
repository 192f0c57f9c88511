package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/aajunior43/bottelegramvideo/item"
)

// Timeout returns middleware that enforces a per-item execution
// deadline. A zero duration disables the deadline. When the deadline is
// exceeded the context is cancelled and the processor should return
// context.DeadlineExceeded, which counts as a transient failure.
func Timeout(d time.Duration, logger *slog.Logger) Middleware {
	return func(ctx context.Context, it *item.Item, next Handler) error {
		if d > 0 {
			logger.Debug("item deadline set",
				slog.String("item_id", it.ID.String()),
				slog.Duration("timeout", d),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
