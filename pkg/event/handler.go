// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
)

// HandlerFunc is the callback invoked for a published event.
// Returning an error marks the invocation as failed; it is reported but does
// not stop dispatch to the remaining handlers.
type HandlerFunc[S, D any] func(ctx context.Context, event string, sender S, data D) error

// Handler is a subscribable callback. Handlers are matched by identity:
// unsubscribing removes the first subscription of the same *Handler, and
// subscribing one handler twice makes it run twice per event.
type Handler[S, D any] struct {
	id   string
	name string
	fn   HandlerFunc[S, D]
}

// NewHandler wraps fn in a Handler. An empty name defaults to the handler ID.
// It returns nil when fn is nil.
func NewHandler[S, D any](name string, fn HandlerFunc[S, D]) *Handler[S, D] {
	if fn == nil {
		return nil
	}
	id := uuid.NewString()
	if name == "" {
		name = id
	}
	return &Handler[S, D]{id: id, name: name, fn: fn}
}

// ID returns the unique handler identifier.
func (h *Handler[S, D]) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

// Name returns the display name used in logs and subscriber listings.
func (h *Handler[S, D]) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// call runs the handler, converting a returned error or a panic into a
// *HandlerError.
func (h *Handler[S, D]) call(ctx context.Context, event string, sender S, data D) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{
				Event:     event,
				Handler:   h.name,
				HandlerID: h.id,
				Sender:    sender,
				Err:       fmt.Errorf("panic: %v", r),
				Panicked:  true,
				Stack:     debug.Stack(),
			}
		}
	}()

	if cause := h.fn(ctx, event, sender, data); cause != nil {
		return &HandlerError{
			Event:     event,
			Handler:   h.name,
			HandlerID: h.id,
			Sender:    sender,
			Err:       cause,
		}
	}
	return nil
}

// Subscription describes one registered handler, as returned by
// Publisher.Subscribers and Stack.Subscribers.
type Subscription struct {
	// Scope is the stack index of the owning scope (0 is the base scope).
	Scope     int    `json:"scope"`
	Event     string `json:"event,omitempty"`
	Handler   string `json:"handler"`
	HandlerID string `json:"handler_id"`
	// Wildcard is set for handlers subscribed to all events.
	Wildcard bool `json:"wildcard"`
}
