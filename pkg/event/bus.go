// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"context"
	"iter"
)

// Bus is the inbound surface shared by a single scope and a scope stack.
type Bus[S, D any] interface {
	RegisterEvent(name string)
	SubscribeToEvent(name string, h *Handler[S, D])
	UnsubscribeToEvent(name string, h *Handler[S, D])
	SubscribeToAllEvents(h *Handler[S, D])
	UnsubscribeToAllEvents(h *Handler[S, D])
	PublishEvent(ctx context.Context, name string, sender S, data D)
	GetRegisteredEvents() iter.Seq[string]
	Subscribers() []Subscription
	Clear()
}

// ScopedBus is a Bus whose subscriptions can be scoped with Push and Pop.
type ScopedBus[S, D any] interface {
	Bus[S, D]
	Push()
	Pop() (*Publisher[S, D], error)
	Depth() int
}

var (
	_ Bus[any, any]       = (*Publisher[any, any])(nil)
	_ ScopedBus[any, any] = (*Stack[any, any])(nil)
)
