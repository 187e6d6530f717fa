// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// pending is one queued handler invocation.
type pending[S, D any] struct {
	event   string
	handler *Handler[S, D]
	sender  S
	data    D
}

// drainKey marks a context as running inside a publisher's drain loop.
type drainKey struct{ publisher any }

// drainSession is alive while its drain loop runs. Guarded by Publisher.mu.
type drainSession struct {
	active bool
}

// Stats holds dispatch counters of a Publisher.
type Stats struct {
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Panicked  uint64 `json:"panicked"`
}

// Publisher is a single subscription scope with its own pending-dispatch queue.
// The zero value is not usable; create one with NewPublisher.
type Publisher[S, D any] struct {
	opts options

	// mu guards names, registered, wildcard, queue and the active drain session.
	mu         sync.Mutex
	names      []string
	registered map[string][]*Handler[S, D]
	wildcard   []*Handler[S, D]
	queue      []pending[S, D]

	// dispatchMu is held by the goroutine draining the queue.
	dispatchMu sync.Mutex

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
}

// NewPublisher creates an empty scope.
func NewPublisher[S, D any](opts ...Option) *Publisher[S, D] {
	return &Publisher[S, D]{
		opts:       newOptions(opts),
		registered: make(map[string][]*Handler[S, D]),
	}
}

// RegisterEvent makes name known to the scope. Registering twice is a no-op.
func (p *Publisher[S, D]) RegisterEvent(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registerLocked(name)
}

func (p *Publisher[S, D]) registerLocked(name string) {
	if _, ok := p.registered[name]; ok {
		return
	}
	p.registered[name] = nil
	p.names = append(p.names, name)
}

// SubscribeToEvent registers name if needed and appends h to its handlers.
// A nil handler only registers the name.
//
// A handler that publishes must pass on the context it received. Publishing
// to the same publisher with an unrelated context, such as
// context.Background(), blocks forever on the dispatch lock held by the
// running drain.
func (p *Publisher[S, D]) SubscribeToEvent(name string, h *Handler[S, D]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registerLocked(name)
	if h == nil {
		return
	}
	p.registered[name] = append(p.registered[name], h)
}

// UnsubscribeToEvent removes the first subscription of h to name, if any.
func (p *Publisher[S, D]) UnsubscribeToEvent(name string, h *Handler[S, D]) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	handlers, ok := p.registered[name]
	if !ok {
		return
	}
	p.registered[name] = removeFirst(handlers, h)
}

// SubscribeToAllEvents appends h to the handlers run for every published event.
func (p *Publisher[S, D]) SubscribeToAllEvents(h *Handler[S, D]) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wildcard = append(p.wildcard, h)
}

// UnsubscribeToAllEvents removes the first wildcard subscription of h, if any.
func (p *Publisher[S, D]) UnsubscribeToAllEvents(h *Handler[S, D]) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wildcard = removeFirst(p.wildcard, h)
}

// GetRegisteredEvents returns the registered event names in registration order.
// Every iteration reads a fresh snapshot, so the sequence can be restarted and
// the publisher may be mutated while it is being consumed.
func (p *Publisher[S, D]) GetRegisteredEvents() iter.Seq[string] {
	return func(yield func(string) bool) {
		p.mu.Lock()
		names := slices.Clone(p.names)
		p.mu.Unlock()

		for _, name := range names {
			if !yield(name) {
				return
			}
		}
	}
}

// Subscribers lists named subscriptions in registration order followed by
// wildcard subscriptions.
func (p *Publisher[S, D]) Subscribers() []Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	var subs []Subscription
	for _, name := range p.names {
		for _, h := range p.registered[name] {
			subs = append(subs, Subscription{Event: name, Handler: h.name, HandlerID: h.id})
		}
	}
	for _, h := range p.wildcard {
		subs = append(subs, Subscription{Handler: h.name, HandlerID: h.id, Wildcard: true})
	}
	return subs
}

// Clear drops every registration and subscription of the scope.
// Entries already queued by an in-flight publish are still delivered.
func (p *Publisher[S, D]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = nil
	p.registered = make(map[string][]*Handler[S, D])
	p.wildcard = nil
}

// Stats returns a snapshot of the dispatch counters.
func (p *Publisher[S, D]) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// PublishEvent delivers the event to the handlers subscribed to name, then to
// the wildcard handlers, and returns once the queue is drained.
//
// When called from a handler of this publisher with the context that handler
// received, the invocations are only queued; the running drain loop executes
// them after the handlers already queued. Publishes from other goroutines wait
// for the running drain to finish before dispatching their own handlers.
func (p *Publisher[S, D]) PublishEvent(ctx context.Context, name string, sender S, data D) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := p.opts.tracer.Start(ctx, "event.PublishEvent",
		trace.WithAttributes(attribute.String("event.name", name)))
	defer span.End()

	p.published.Add(1)

	if session, ok := ctx.Value(drainKey{p}).(*drainSession); ok {
		p.mu.Lock()
		if session.active {
			queued := p.enqueueLocked(name, sender, data)
			p.mu.Unlock()
			span.SetAttributes(attribute.Int("event.handlers", queued), attribute.Bool("event.reentrant", true))
			p.opts.logger.Trace().Str("event", name).Int("handlers", queued).Msg("queued re-entrant publish")
			return
		}
		p.mu.Unlock()
	}

	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	session := &drainSession{active: true}
	p.mu.Lock()
	queued := p.enqueueLocked(name, sender, data)
	p.mu.Unlock()

	span.SetAttributes(attribute.Int("event.handlers", queued), attribute.Bool("event.reentrant", false))
	p.opts.logger.Trace().Str("event", name).Int("handlers", queued).Msg("publishing event")

	p.drain(context.WithValue(ctx, drainKey{p}, session), session)
}

// enqueueLocked snapshots the handlers of name and the wildcard handlers onto
// the queue and returns how many entries were added.
func (p *Publisher[S, D]) enqueueLocked(name string, sender S, data D) int {
	handlers := p.registered[name]
	for _, h := range handlers {
		p.queue = append(p.queue, pending[S, D]{event: name, handler: h, sender: sender, data: data})
	}
	for _, h := range p.wildcard {
		p.queue = append(p.queue, pending[S, D]{event: name, handler: h, sender: sender, data: data})
	}
	return len(handlers) + len(p.wildcard)
}

func (p *Publisher[S, D]) drain(ctx context.Context, session *drainSession) {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.queue = nil
			session.active = false
			p.mu.Unlock()
			return
		}
		next := p.queue[0]
		p.queue[0] = pending[S, D]{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.invoke(ctx, next)
	}
}

func (p *Publisher[S, D]) invoke(ctx context.Context, job pending[S, D]) {
	err := job.handler.call(ctx, job.event, job.sender, job.data)
	if err == nil {
		p.delivered.Add(1)
		return
	}

	p.failed.Add(1)
	var herr *HandlerError
	if errors.As(err, &herr) && herr.Panicked {
		p.panicked.Add(1)
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "event handler failed")

	logEvent := p.opts.logger.Error().
		Err(err).
		Str("event", job.event).
		Str("handler", job.handler.name).
		Interface("sender", job.sender)
	if herr != nil && herr.Panicked {
		logEvent = logEvent.Bool("panicked", true).Bytes("stack", herr.Stack)
	}
	logEvent.Msg("event handler failed")

	if p.opts.errorHandler != nil {
		p.opts.errorHandler(err)
	}
}

func removeFirst[S, D any](handlers []*Handler[S, D], h *Handler[S, D]) []*Handler[S, D] {
	i := slices.Index(handlers, h)
	if i < 0 {
		return handlers
	}
	return slices.Delete(handlers, i, i+1)
}
