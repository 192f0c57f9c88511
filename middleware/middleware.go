// Package middleware provides composable wrappers around item
// processing. Middleware runs synchronously inside the worker and can
// recover from panics, log, enforce deadlines, and record telemetry.
package middleware

import (
	"context"

	"github.com/aajunior43/bottelegramvideo/item"
)

// Handler is the terminal function that processes the item payload.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the item being processed, and the next handler to
// call. Middleware must call next to continue the chain unless
// short-circuiting on error.
type Middleware func(ctx context.Context, it *item.Item, next Handler) error

// Chain composes multiple middleware into one. Middleware are applied
// right-to-left: the first middleware in the list is the outermost
// wrapper.
//
// Example: Chain(logging, recoverMW, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, it *item.Item, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, it, prev)
			}
		}
		return h(ctx)
	}
}
