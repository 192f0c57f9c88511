package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	botqueue "github.com/aajunior43/bottelegramvideo"
)

// HandlerFunc is a type-erased task handler that accepts the raw
// request body. Typed Definition[T] handlers are converted to
// HandlerFunc at registration time by closing over JSON unmarshal plus
// the typed handler.
type HandlerFunc func(ctx context.Context, body []byte) error

// Definition is a typed task definition with a handler function.
// T is the request body type and must be JSON-serializable.
type Definition[T any] struct {
	// Kind is the task type this definition handles.
	Kind Kind

	// Handler processes the decoded request body.
	Handler func(ctx context.Context, req T) error
}

// NewDefinition creates a typed task definition.
func NewDefinition[T any](kind Kind, handler func(ctx context.Context, req T) error) *Definition[T] {
	return &Definition[T]{Kind: kind, Handler: handler}
}

// Registry maps task kinds to type-erased handler functions.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]HandlerFunc
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]HandlerFunc)}
}

// RegisterDefinition registers a typed task definition. The generic
// handler is wrapped in a closure that unmarshals the body into T.
//
// Package-level generic function because Go does not allow generic
// methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	handler := func(ctx context.Context, body []byte) error {
		var req T
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return fmt.Errorf("task: unmarshal %q body: %w", def.Kind, err)
			}
		}
		return def.Handler(ctx, req)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[def.Kind] = handler
}

// Register registers a raw handler for a kind.
func (r *Registry) Register(kind Kind, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Get returns the handler for the given kind.
func (r *Registry) Get(kind Kind) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns all registered task kinds.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Process decodes an item payload and dispatches it to the registered
// handler for its kind.
func (r *Registry) Process(ctx context.Context, payload []byte) error {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return err
	}
	h, ok := r.Get(env.Kind)
	if !ok {
		return fmt.Errorf("%w: task kind %q", botqueue.ErrNoProcessor, env.Kind)
	}
	return h(ctx, env.Body)
}
