// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// stackKey marks a context as running inside a stack-wide publish.
type stackKey struct{ stack any }

// Stack is an ordered stack of Publisher scopes. It always holds at least the
// base scope created by NewStack.
//
// Registration and subscription target the top scope. PublishEvent and Clear
// visit every scope from top to bottom, so handlers of outer scopes keep
// observing events while an inner scope is active.
type Stack[S, D any] struct {
	opts []Option
	log  options

	mu     sync.RWMutex
	scopes []*Publisher[S, D] // scopes[0] is the base scope

	// dispatchMu serializes publishes coming from different goroutines.
	dispatchMu sync.Mutex
}

// NewStack creates a stack holding a single base scope. The options are
// applied to every scope, including those created later by Push.
func NewStack[S, D any](opts ...Option) *Stack[S, D] {
	return &Stack[S, D]{
		opts:   opts,
		log:    newOptions(opts),
		scopes: []*Publisher[S, D]{NewPublisher[S, D](opts...)},
	}
}

// Push places a new empty scope on top of the stack.
func (s *Stack[S, D]) Push() {
	s.mu.Lock()
	s.scopes = append(s.scopes, NewPublisher[S, D](s.opts...))
	depth := len(s.scopes)
	s.mu.Unlock()

	s.log.logger.Debug().Int("depth", depth).Msg("pushed event scope")
}

// Pop removes and returns the top scope together with all of its
// registrations and subscriptions. The base scope is never removed:
// popping it returns ErrStackUnderflow and leaves the stack unchanged.
func (s *Stack[S, D]) Pop() (*Publisher[S, D], error) {
	s.mu.Lock()
	if len(s.scopes) <= 1 {
		s.mu.Unlock()
		s.log.logger.Warn().Msg("refusing to pop the base event scope")
		return nil, ErrStackUnderflow
	}
	last := len(s.scopes) - 1
	top := s.scopes[last]
	s.scopes[last] = nil
	s.scopes = s.scopes[:last]
	depth := len(s.scopes)
	s.mu.Unlock()

	s.log.logger.Debug().Int("depth", depth).Msg("popped event scope")
	return top, nil
}

// Depth returns the number of scopes, base scope included.
func (s *Stack[S, D]) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scopes)
}

// Top returns the scope that receives new registrations.
func (s *Stack[S, D]) Top() *Publisher[S, D] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[len(s.scopes)-1]
}

// Base returns the bottom scope, which outlives every Push and Pop.
func (s *Stack[S, D]) Base() *Publisher[S, D] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[0]
}

// topDown returns a snapshot of the scopes ordered from top to base.
func (s *Stack[S, D]) topDown() []*Publisher[S, D] {
	s.mu.RLock()
	scopes := slices.Clone(s.scopes)
	s.mu.RUnlock()
	slices.Reverse(scopes)
	return scopes
}

func (s *Stack[S, D]) RegisterEvent(name string) {
	s.Top().RegisterEvent(name)
}

// SubscribeToEvent subscribes h to name in the top scope. As with
// Publisher.SubscribeToEvent, h must publish with the context it receives;
// an unrelated context deadlocks on the stack dispatch lock.
func (s *Stack[S, D]) SubscribeToEvent(name string, h *Handler[S, D]) {
	s.Top().SubscribeToEvent(name, h)
}

func (s *Stack[S, D]) UnsubscribeToEvent(name string, h *Handler[S, D]) {
	s.Top().UnsubscribeToEvent(name, h)
}

func (s *Stack[S, D]) SubscribeToAllEvents(h *Handler[S, D]) {
	s.Top().SubscribeToAllEvents(h)
}

func (s *Stack[S, D]) UnsubscribeToAllEvents(h *Handler[S, D]) {
	s.Top().UnsubscribeToAllEvents(h)
}

// GetRegisteredEvents yields the registered names of every scope, top scope
// first. A name registered in several scopes is yielded once per scope.
func (s *Stack[S, D]) GetRegisteredEvents() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, scope := range s.topDown() {
			for name := range scope.GetRegisteredEvents() {
				if !yield(name) {
					return
				}
			}
		}
	}
}

// Subscribers lists the subscriptions of every scope, top scope first.
func (s *Stack[S, D]) Subscribers() []Subscription {
	scopes := s.topDown()
	var subs []Subscription
	for i, scope := range scopes {
		index := len(scopes) - 1 - i
		for _, sub := range scope.Subscribers() {
			sub.Scope = index
			subs = append(subs, sub)
		}
	}
	return subs
}

// PublishEvent publishes the event on every scope, from top to base. Each
// scope drains its own queue before the next scope is visited.
func (s *Stack[S, D]) PublishEvent(ctx context.Context, name string, sender S, data D) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Value(stackKey{s}) == nil {
		s.dispatchMu.Lock()
		defer s.dispatchMu.Unlock()
		ctx = context.WithValue(ctx, stackKey{s}, struct{}{})
	}

	for _, scope := range s.topDown() {
		scope.PublishEvent(ctx, name, sender, data)
	}
}

// Clear empties every scope without changing the stack depth.
func (s *Stack[S, D]) Clear() {
	scopes := s.topDown()
	for _, scope := range scopes {
		scope.Clear()
	}
	s.log.logger.Debug().Int("depth", len(scopes)).Msg("cleared event scopes")
}

// Stats sums the dispatch counters of all scopes currently on the stack.
func (s *Stack[S, D]) Stats() Stats {
	var total Stats
	for _, scope := range s.topDown() {
		st := scope.Stats()
		total.Published += st.Published
		total.Delivered += st.Delivered
		total.Failed += st.Failed
		total.Panicked += st.Panicked
	}
	return total
}
