package client

import (
	"context"
	"sync"
)

// DefaultQueueSize is the number of notifications an endpoint buffers before dropping.
const DefaultQueueSize = 256

// firstRegisteredMessage is the first id handed out by RegisterMessage.
const firstRegisteredMessage MessageType = 0xC000

// Bus is an in-process Transport. Broadcasts reach every open endpoint, the sender included.
type Bus struct {
	mu         sync.Mutex
	messages   map[string]MessageType
	endpoints  map[Handle]*busEndpoint
	nextHandle Handle
	queueSize  int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{
		messages:   make(map[string]MessageType),
		endpoints:  make(map[Handle]*busEndpoint),
		nextHandle: 1,
		queueSize:  DefaultQueueSize,
	}
}

// RegisterMessage implements Transport.
func (b *Bus) RegisterMessage(name string) (MessageType, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.messages[name]; ok {
		return id, nil
	}
	id := firstRegisteredMessage + MessageType(len(b.messages))
	b.messages[name] = id
	return id, nil
}

// Open implements Transport.
func (b *Bus) Open() (Endpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := b.nextHandle
	b.nextHandle++
	if b.nextHandle == BroadcastHandle {
		b.nextHandle++
	}
	result := &busEndpoint{
		bus:    b,
		handle: handle,
		queue:  make(chan Notification, b.queueSize),
		closed: make(chan struct{}),
	}
	b.endpoints[handle] = result
	return result, nil
}

// Endpoints returns the number of open endpoints.
func (b *Bus) Endpoints() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.endpoints)
}

func (b *Bus) remove(handle Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.endpoints, handle)
}

func (b *Bus) lookup(handle Handle) (*busEndpoint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.endpoints[handle]
	return e, ok
}

func (b *Bus) all() []*busEndpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]*busEndpoint, 0, len(b.endpoints))
	for _, e := range b.endpoints {
		result = append(result, e)
	}
	return result
}

type busEndpoint struct {
	bus       *Bus
	handle    Handle
	queue     chan Notification
	closed    chan struct{}
	closeOnce sync.Once
}

func (e *busEndpoint) Handle() Handle {
	return e.handle
}

func (e *busEndpoint) Broadcast(n Notification) error {
	if e.isClosed() {
		return ErrEndpointClosed
	}
	n.From = e.handle
	for _, target := range e.bus.all() {
		// a full receiver must not stop the broadcast
		_ = target.enqueue(n)
	}
	return nil
}

func (e *busEndpoint) Send(to Handle, n Notification) error {
	if to == BroadcastHandle {
		return e.Broadcast(n)
	}
	if e.isClosed() {
		return ErrEndpointClosed
	}
	target, ok := e.bus.lookup(to)
	if !ok {
		// like a message posted to a window that no longer exists
		return nil
	}
	n.From = e.handle
	return target.enqueue(n)
}

func (e *busEndpoint) Post(n Notification) error {
	n.From = e.handle
	return e.enqueue(n)
}

func (e *busEndpoint) enqueue(n Notification) error {
	if e.isClosed() {
		return ErrEndpointClosed
	}
	select {
	case e.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *busEndpoint) Receive(ctx context.Context) (Notification, error) {
	select {
	case n := <-e.queue:
		return n, nil
	case <-e.closed:
		return Notification{}, ErrEndpointClosed
	case <-ctx.Done():
		return Notification{}, ctx.Err()
	}
}

func (e *busEndpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.bus.remove(e.handle)
	})
	return nil
}

func (e *busEndpoint) isClosed() bool {
	select {
	case <-e.closed:
		return true
	default:
		return false
	}
}
