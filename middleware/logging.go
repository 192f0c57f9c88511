package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/aajunior43/bottelegramvideo/item"
)

// Logging returns middleware that logs item start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, it *item.Item, next Handler) error {
		logger.Info("item started",
			slog.String("item_id", it.ID.String()),
			slog.String("priority", string(it.Priority)),
			slog.Int("attempt", it.Attempts),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("item failed",
				slog.String("item_id", it.ID.String()),
				slog.Int("attempt", it.Attempts),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("item completed",
				slog.String("item_id", it.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
