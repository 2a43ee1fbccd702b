// Package bus provides the topic-keyed event bus every keydeck component
// communicates through.
//
// Dispatch is synchronous and ordered: listeners for a topic run in
// subscription order, in the publishing goroutine. A Publish issued while a
// dispatch pass is already running is queued and drained FIFO by the pass in
// progress, so nested publishes cannot recurse or deadlock. A listener that
// panics is recovered and logged; remaining listeners still run.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keydeck/keydeck/internal/log"
	"github.com/keydeck/keydeck/internal/tracing"
)

// Handler receives a published payload.
type Handler func(payload any)

// CancelFunc removes exactly one subscription.
type CancelFunc func()

type subscription struct {
	id        uint64
	topic     string
	fn        Handler
	once      bool
	delivered atomic.Bool // once-subscriptions: set on first delivery
	cancelled atomic.Bool
}

type envelope struct {
	topic   string
	payload any
}

// Bus routes published payloads to topic subscribers.
// The zero value is not usable; call New.
type Bus struct {
	mu          sync.Mutex
	nextID      uint64
	topics      map[string][]*subscription
	queue       []envelope
	dispatching bool
}

// maxPassEnvelopes bounds one dispatch pass. A listener that republishes its
// own topic on every invocation would otherwise keep the queue non-empty
// forever; past the limit the remaining queue is dropped and logged.
const maxPassEnvelopes = 1024

// New creates an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[string][]*subscription)}
}

// Subscribe registers fn for topic. Multiple subscriptions to the same topic
// are independent and fire in registration order. The returned cancel removes
// exactly this registration.
func (b *Bus) Subscribe(topic string, fn Handler) CancelFunc {
	return b.subscribe(topic, fn, false)
}

// SubscribeOnce registers fn for a single delivery; the subscription is
// removed after the first invocation.
func (b *Bus) SubscribeOnce(topic string, fn Handler) CancelFunc {
	return b.subscribe(topic, fn, true)
}

func (b *Bus) subscribe(topic string, fn Handler, once bool) CancelFunc {
	if fn == nil {
		log.Warn(log.CatBus, "subscribe with nil handler ignored", "topic", topic)
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	sub := &subscription{id: b.nextID, topic: topic, fn: fn, once: once}
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	return func() { b.remove(sub) }
}

// Publish delivers payload to every listener currently subscribed to topic,
// in subscription order. When called from inside a listener the delivery is
// deferred until the current dispatch pass finishes; the nested payloads run
// FIFO before the outermost Publish returns.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	b.queue = append(b.queue, envelope{topic: topic, payload: payload})
	if b.dispatching {
		// A pass is draining the queue already; it will pick this up.
		b.mu.Unlock()
		return
	}
	b.dispatching = true

	_, span := otel.Tracer("keydeck/bus").Start(context.Background(),
		tracing.SpanPrefixPublish+topic,
		trace.WithAttributes(attribute.String(tracing.AttrTopic, topic)))
	defer span.End()

	drained := 0
	for len(b.queue) > 0 {
		if drained++; drained > maxPassEnvelopes {
			dropped := len(b.queue)
			b.queue = nil
			span.AddEvent(tracing.EventQueueDropped,
				trace.WithAttributes(attribute.Int("bus.dropped", dropped)))
			log.Error(log.CatBus, "dispatch pass exceeded envelope limit, dropping queue",
				"dropped", dropped, "limit", maxPassEnvelopes)
			break
		}
		env := b.queue[0]
		b.queue = b.queue[1:]

		subs := make([]*subscription, len(b.topics[env.topic]))
		copy(subs, b.topics[env.topic])
		b.mu.Unlock()

		for _, sub := range subs {
			if sub.cancelled.Load() {
				continue
			}
			if sub.once && !sub.delivered.CompareAndSwap(false, true) {
				continue
			}
			b.invoke(sub, env)
			if sub.once {
				b.remove(sub)
			}
		}

		b.mu.Lock()
	}

	b.dispatching = false
	b.mu.Unlock()
}

// invoke runs one listener with panic isolation. One bad listener must not
// block the others.
func (b *Bus) invoke(sub *subscription, env envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatBus, "listener panicked",
				"topic", env.topic, "sub", sub.id, "panic", fmt.Sprintf("%v", r))
		}
	}()
	sub.fn(env.payload)
}

func (b *Bus) remove(sub *subscription) {
	if !sub.cancelled.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[sub.topic]
	for i, s := range subs {
		if s.id == sub.id {
			b.topics[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.topics[sub.topic]) == 0 {
		delete(b.topics, sub.topic)
	}
}

// UnsubscribeAll drops every subscription and any queued nested publishes.
// Test isolation only.
func (b *Bus) UnsubscribeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.topics {
		for _, sub := range subs {
			sub.cancelled.Store(true)
		}
	}
	b.topics = make(map[string][]*subscription)
	b.queue = nil
}

// SubscriberCount returns the number of live subscriptions for topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}
