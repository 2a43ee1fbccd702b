// Package rpc emulates point-to-point request/response on top of the
// broadcast bus abstraction, which has no addressed delivery.
//
// Topics name endpoints exactly as they name bus channels, but each topic
// has at most one responder. A request is a disciplined, discoverable call:
// it looks the responder up in the registry, tags the call with a UUID
// correlation id, and runs the handler off the caller's dispatch context so
// a request issued from inside a bus listener cannot deadlock the pass.
// Concurrently pending requests with different ids cannot cross-talk, and a
// request to a topic with no responder fails immediately instead of waiting
// forever.
package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keydeck/keydeck/internal/log"
	"github.com/keydeck/keydeck/internal/tracing"
)

// Handler answers requests for one topic. Errors propagate to the requester.
type Handler func(payload any) (any, error)

type responder struct {
	topic   string
	handler Handler
}

type reply struct {
	result any
	err    error
}

// Layer is the request/response registry. One Layer serves the whole
// process, alongside the bus it complements.
type Layer struct {
	mu         sync.Mutex
	responders map[string]*responder
	pending    map[string]string // correlation id -> topic
}

// New creates an empty request/response layer.
func New() *Layer {
	return &Layer{
		responders: make(map[string]*responder),
		pending:    make(map[string]string),
	}
}

// Respond registers the single handler answering requests for topic.
// Registering while the topic is occupied returns DuplicateResponderError.
// The returned detach frees the topic for a future responder.
func (l *Layer) Respond(topic string, handler Handler) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("nil handler for topic %q", topic)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.responders[topic]; exists {
		return nil, &DuplicateResponderError{Topic: topic}
	}

	r := &responder{topic: topic, handler: handler}
	l.responders[topic] = r
	log.Debug(log.CatRPC, "responder registered", "topic", topic)

	detach := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.responders[topic] == r {
			delete(l.responders, topic)
			log.Debug(log.CatRPC, "responder detached", "topic", topic)
		}
	}
	return detach, nil
}

// Request sends payload to the responder for topic and waits for its answer.
// Fails with NoResponderError when the topic has no responder at call time.
// ctx bounds the wait: on deadline the call is abandoned but the responder is
// not told to stop, it is in-process and effectively instantaneous.
func (l *Layer) Request(ctx context.Context, topic string, payload any) (any, error) {
	l.mu.Lock()
	r, exists := l.responders[topic]
	l.mu.Unlock()
	if !exists {
		return nil, &NoResponderError{Topic: topic}
	}

	id := l.begin(topic)
	defer l.finish(id)

	ctx, span := otel.Tracer("keydeck/rpc").Start(ctx, tracing.SpanPrefixRequest+topic,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrRequestTopic, topic),
			attribute.String(tracing.AttrRequestID, id),
		))
	defer span.End()

	done := make(chan reply, 1)
	go func() {
		result, err := invoke(r.handler, payload)
		done <- reply{result: result, err: err}
	}()

	select {
	case rep := <-done:
		if rep.err != nil {
			span.RecordError(rep.err)
			span.SetStatus(codes.Error, rep.err.Error())
			log.Debug(log.CatRPC, "request failed", "topic", topic, "id", id, "error", rep.err)
		}
		return rep.result, rep.err
	case <-ctx.Done():
		span.SetStatus(codes.Error, "abandoned")
		log.Warn(log.CatRPC, "request abandoned", "topic", topic, "id", id)
		return nil, ctx.Err()
	}
}

// invoke runs the handler, converting a panic into an error so the requester
// always gets an answer.
func invoke(handler Handler, payload any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("responder panicked: %v", r)
		}
	}()
	return handler(payload)
}

// begin records a fresh correlation id for an in-flight request.
// UUIDs make reuse among concurrently pending requests impossible; the
// pending map keeps the in-flight set observable.
func (l *Layer) begin(topic string) string {
	id := uuid.NewString()
	l.mu.Lock()
	l.pending[id] = topic
	l.mu.Unlock()
	return id
}

func (l *Layer) finish(id string) {
	l.mu.Lock()
	delete(l.pending, id)
	l.mu.Unlock()
}

// HasResponder reports whether topic currently has a responder.
func (l *Layer) HasResponder(topic string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.responders[topic]
	return ok
}

// PendingCount returns the number of in-flight requests.
func (l *Layer) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Reset detaches every responder and forgets pending bookkeeping.
// Test isolation only.
func (l *Layer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responders = make(map[string]*responder)
	l.pending = make(map[string]string)
}
