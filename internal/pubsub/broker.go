package pubsub

import (
	"context"
	"sync"
	"time"
)

// DefaultBuffer is how many undelivered events a subscription holds before
// Publish starts dropping events for it.
const DefaultBuffer = 64

// Broker fans each published event out to every live subscription. The
// zero value is not usable; create one with NewBroker.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]subscription[T]
	nextID uint64
	buffer int
	closed bool
}

type subscription[T any] struct {
	ch chan Event[T]
	// latest subscriptions replace their pending event instead of dropping
	// the new one.
	latest bool
}

var (
	_ LatestSubscriber[struct{}] = (*Broker[struct{}])(nil)
	_ Publisher[struct{}]        = (*Broker[struct{}])(nil)
)

func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](DefaultBuffer)
}

// NewBrokerWithBuffer sizes each subscription's channel; values below one
// are raised to one.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	return &Broker[T]{
		subs:   make(map[uint64]subscription[T]),
		buffer: max(size, 1),
	}
}

// Subscribe is registered by the time it returns, so nothing published
// afterwards is missed. The channel closes when ctx ends or the broker
// closes; subscribing to a closed broker yields an already-closed channel.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	return b.subscribe(ctx, b.buffer, false)
}

// SubscribeLatest is like Subscribe, but the channel holds a single event
// and a newer publish replaces one not yet received.
func (b *Broker[T]) SubscribeLatest(ctx context.Context) <-chan Event[T] {
	return b.subscribe(ctx, 1, true)
}

func (b *Broker[T]) subscribe(ctx context.Context, size int, latest bool) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event[T], size)
	b.subs[id] = subscription[T]{ch: ch, latest: latest}

	context.AfterFunc(ctx, func() { b.unsubscribe(id) })
	return ch
}

func (b *Broker[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish never blocks: a subscription with a full buffer misses the event,
// except a latest subscription, which gives up its pending event instead.
// It returns how many subscriptions received it.
func (b *Broker[T]) Publish(eventType EventType, payload T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}

	event := Event[T]{Type: eventType, Payload: payload, Timestamp: time.Now()}
	delivered := 0
	for _, sub := range b.subs {
		if offer(sub.ch, event) {
			delivered++
			continue
		}
		if !sub.latest {
			continue
		}
		select {
		case <-sub.ch:
		default:
		}
		// A concurrent Publish may refill the slot first; its event is as new.
		if offer(sub.ch, event) {
			delivered++
		}
	}
	return delivered
}

// Close ends every subscription. Later calls do nothing.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func offer[T any](ch chan Event[T], event Event[T]) bool {
	select {
	case ch <- event:
		return true
	default:
		return false
	}
}

// SubscriberCount reports the live subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
