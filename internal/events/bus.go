package events

import (
	"context"
	"log"
	"sync"
)

// Handler receives events from the bus. Implementations must not panic;
// if they do, the bus recovers and logs, and sibling handlers still run.
type Handler interface {
	HandleEvent(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus is an asynchronous pub-sub event bus. Handlers subscribe to a specific
// event type or to Wildcard for all types. Publish dispatches to every
// matching handler concurrently and returns once all of them have settled.
// A handler error or panic is logged and never reaches the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]Handler // event type -> handlers in subscription order
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for the given event type.
// Pass Wildcard to receive every event regardless of type.
// Subscribing after Close is a no-op.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.subs[eventType] = append(b.subs[eventType], h)
}

// Publish dispatches the event to all handlers subscribed to its type and to
// all wildcard handlers. Handlers run concurrently; Publish returns only
// after every handler has returned or been recovered from a panic.
// Events with no subscribers are dropped silently.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	// Snapshot so handlers subscribed during dispatch don't see this event.
	handlers := make([]Handler, 0, len(b.subs[event.Type])+len(b.subs[Wildcard]))
	handlers = append(handlers, b.subs[event.Type]...)
	handlers = append(handlers, b.subs[Wildcard]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(handlers))

	for _, h := range handlers {
		go func(h Handler) {
			defer wg.Done()
			b.dispatch(ctx, h, event)
		}(h)
	}

	wg.Wait()
}

// dispatch invokes a single handler, recovering panics so one handler can
// never take down the publisher or its siblings.
func (b *Bus) dispatch(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for %s event: %v", event.Type, r)
		}
	}()

	if err := h.HandleEvent(ctx, event); err != nil {
		log.Printf("WARNING: event handler failed for %s event: %v", event.Type, err)
	}
}

// Close marks the bus closed. Subsequent Publish and Subscribe calls are
// no-ops. Safe to call multiple times (idempotent).
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	b.subs = make(map[string][]Handler)
}
