package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const subscriptionBufferSize = 256

// Subscription is a live feed of registry events. Consumers drain C;
// when the buffer fills, further events for this subscriber are dropped
// so a slow consumer can never stall the registry.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	kinds  map[Type]bool
	bus    *Bus
	closed bool
}

// Close detaches the subscription from the bus and closes C.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// Bus is the registry's event stream: a per-kind subscriber list with
// non-blocking fan-out. It is an explicitly constructed instance with an
// explicit lifecycle, never a package-level global.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped int64
	onDrop  func()
	logger  *zap.Logger
}

// NewBus creates an event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// OnDrop registers a callback invoked once per dropped event, e.g. to
// feed a metrics counter. Must be set before the bus is in use.
func (b *Bus) OnDrop(fn func()) {
	b.mu.Lock()
	b.onDrop = fn
	b.mu.Unlock()
}

// Subscribe registers interest in the given event kinds. With no kinds
// the subscription receives every event.
func (b *Bus) Subscribe(kinds ...Type) *Subscription {
	sub := &Subscription{
		ch:    make(chan Event, subscriptionBufferSize),
		kinds: make(map[Type]bool, len(kinds)),
		bus:   b,
	}
	sub.C = sub.ch
	for _, k := range kinds {
		sub.kinds[k] = true
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish fans the event out to every matching subscription. The send is
// non-blocking: a full subscriber buffer drops the event rather than
// holding up the publishing operation.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if len(sub.kinds) > 0 && !sub.kinds[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			atomic.AddInt64(&b.dropped, 1)
			if b.onDrop != nil {
				b.onDrop()
			}
			if b.logger != nil {
				b.logger.Warn("Dropping event for slow subscriber",
					zap.String("event_type", string(event.Type)),
					zap.String("component_id", event.ComponentID),
				)
			}
		}
	}
}

// Dropped returns how many events were discarded because a subscriber
// buffer was full.
func (b *Bus) Dropped() int64 {
	return atomic.LoadInt64(&b.dropped)
}

// Close detaches every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		sub.closed = true
		close(sub.ch)
	}
	b.subs = make(map[*Subscription]struct{})
}
