// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package eventlog logs every event published on a bus while enabled.
package eventlog

import (
	"context"
	"slices"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/vulntor/eventstack/pkg/event"
	"github.com/vulntor/eventstack/pkg/inspect"
)

// HandlerName is the display name of the logging subscription.
const HandlerName = "eventlog"

var tagStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("14")). // Cyan
	Bold(true)

// Logger owns a wildcard subscription that writes one log line per event.
type Logger[S, D any] struct {
	mu      sync.Mutex
	bus     event.Bus[S, D]
	handler *event.Handler[S, D]
	logger  zerolog.Logger
	styled  bool
	enabled bool
}

// New creates a disabled logger for bus. When styled is set the event tag in
// the message is rendered with lipgloss for console output.
func New[S, D any](bus event.Bus[S, D], logger zerolog.Logger, styled bool) *Logger[S, D] {
	l := &Logger[S, D]{
		bus:    bus,
		logger: logger.With().Str("component", HandlerName).Logger(),
		styled: styled,
	}
	l.handler = event.NewHandler(HandlerName, l.onEvent)
	return l
}

func (l *Logger[S, D]) onEvent(_ context.Context, name string, sender S, data D) error {
	tag := "[" + name + "]"
	if l.styled {
		tag = tagStyle.Render(tag)
	}
	l.logger.Info().
		Str("event", name).
		Str("sender", inspect.Value(sender)).
		Str("data", inspect.Value(data)).
		Msg(tag + " published")
	return nil
}

// SetEnabled subscribes or unsubscribes the logger. Enabling an enabled
// logger restores a subscription lost to Clear; an existing subscription
// keeps its place among the wildcard handlers.
func (l *Logger[S, D]) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := enabled != l.enabled
	l.enabled = enabled

	subscribed := l.subscribed()
	switch {
	case enabled && !subscribed:
		l.bus.SubscribeToAllEvents(l.handler)
	case !enabled && subscribed:
		l.bus.UnsubscribeToAllEvents(l.handler)
	}
	if changed {
		l.logger.Debug().Bool("enabled", enabled).Msg("event logging toggled")
	}
}

func (l *Logger[S, D]) subscribed() bool {
	return slices.ContainsFunc(l.bus.Subscribers(), func(sub event.Subscription) bool {
		return sub.Wildcard && sub.HandlerID == l.handler.ID()
	})
}

// Toggle flips the state and returns the new one.
func (l *Logger[S, D]) Toggle() bool {
	l.mu.Lock()
	next := !l.enabled
	l.mu.Unlock()
	l.SetEnabled(next)
	return next
}

// Enabled reports whether the logger is subscribed.
func (l *Logger[S, D]) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Resubscribe restores the subscription after the bus was cleared.
// It does nothing while the logger is disabled.
func (l *Logger[S, D]) Resubscribe() {
	if l.Enabled() {
		l.SetEnabled(true)
	}
}
