package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoEndpoint    = errors.New("no endpoint registered")
	ErrUnknownAction = errors.New("unknown action")
)

// Endpoint identifies a context that answers requests.
type Endpoint string

// ControllerEndpoint is the privileged controller context.
const ControllerEndpoint Endpoint = "controller"

// Handler answers requests addressed to one endpoint.
type Handler interface {
	HandleRequest(ctx context.Context, req Request) (Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

func (f HandlerFunc) HandleRequest(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Bus routes requests to registered endpoints and fans broadcasts out to
// subscribers. Handlers and subscribers run on the caller's goroutine.
type Bus struct {
	mu          sync.RWMutex
	handlers    map[Endpoint]Handler
	subscribers map[int]func(Broadcast)
	nextID      int
}

func NewBus() *Bus {
	return &Bus{
		handlers:    make(map[Endpoint]Handler),
		subscribers: make(map[int]func(Broadcast)),
	}
}

// Register binds handler to endpoint, replacing any previous binding.
func (b *Bus) Register(endpoint Endpoint, handler Handler) {
	b.mu.Lock()
	b.handlers[endpoint] = handler
	b.mu.Unlock()
}

func (b *Bus) Unregister(endpoint Endpoint) {
	b.mu.Lock()
	delete(b.handlers, endpoint)
	b.mu.Unlock()
}

// Send delivers req to endpoint and returns its single response.
func (b *Bus) Send(ctx context.Context, to Endpoint, req Request) (Response, error) {
	b.mu.RLock()
	handler, ok := b.handlers[to]
	b.mu.RUnlock()
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrNoEndpoint, to)
	}
	return handler.HandleRequest(ctx, req)
}

// Publish delivers msg to every current subscriber.
func (b *Bus) Publish(msg Broadcast) {
	b.mu.RLock()
	subs := make([]func(Broadcast), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// Subscribe registers fn for broadcasts and returns a function that removes
// it.
func (b *Bus) Subscribe(fn func(Broadcast)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
		})
	}
}
