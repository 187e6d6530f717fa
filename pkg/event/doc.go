// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package event provides a nestable, named-event publish/subscribe bus for
// in-process communication.
//
// A [Publisher] owns one flat scope of subscriptions: event name to ordered
// handler list, plus handlers subscribed to every event. A [Stack] keeps an
// ordered stack of publishers. Writes (register, subscribe, unsubscribe) go to
// the top scope, while publishing and clearing fan out to every scope from top
// to bottom:
//
//	bus := event.NewStack[string, any]()
//	bus.SubscribeToEvent("level.loaded", event.NewHandler("hud", onLevelLoaded))
//
//	bus.Push() // enter a modal sub-context
//	bus.SubscribeToEvent("level.loaded", event.NewHandler("modal", onModal))
//	bus.PublishEvent(ctx, "level.loaded", "loader", level) // hud and modal run
//	_, _ = bus.Pop() // modal subscription is discarded
//
// # Dispatch order
//
// Publishing enqueues one entry per subscribed handler (named handlers first,
// then wildcard handlers) on the scope's pending queue and drains it in FIFO
// order. A handler that publishes with the context it was handed only
// enqueues; the outer drain loop runs those entries after the current event's
// remaining handlers. Given handlers [h1, h2] on A where h1 publishes B with
// handler h3, publishing A runs h1, h2, h3.
//
// Handlers must publish re-entrant events with the context they receive.
// Publishing from inside a handler with an unrelated context blocks on the
// dispatch lock held by the very goroutine running the handler.
//
// # Failures
//
// A handler that returns an error or panics is reported as a [*HandlerError]
// to the configured logger and [ErrorHandler]; dispatch continues with the
// next queued handler and PublishEvent never fails.
package event
