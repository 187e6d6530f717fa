package eventlog_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/eventstack/pkg/event"
	"github.com/vulntor/eventstack/pkg/eventlog"
)

func lines(buf *bytes.Buffer) []string {
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func newLogger(t *testing.T) (*event.Stack[string, any], *eventlog.Logger[string, any], *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	bus := event.NewStack[string, any]()
	return bus, eventlog.New[string, any](bus, zerolog.New(&buf).Level(zerolog.InfoLevel), false), &buf
}

func TestLogger_DisabledByDefault(t *testing.T) {
	bus, l, buf := newLogger(t)

	assert.False(t, l.Enabled())
	bus.PublishEvent(context.Background(), "a", "s", nil)
	assert.Empty(t, buf.String())
}

func TestLogger_LogsEveryEvent(t *testing.T) {
	bus, l, buf := newLogger(t)
	l.SetEnabled(true)

	bus.PublishEvent(context.Background(), "level.loaded", "loader", map[string]any{"id": 3})
	bus.PublishEvent(context.Background(), "unregistered", "x", 7)

	got := lines(buf)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], `"event":"level.loaded"`)
	assert.Contains(t, got[0], `"sender":"loader"`)
	assert.Contains(t, got[0], `"data":"{\"id\":3}"`)
	assert.Contains(t, got[0], `"message":"[level.loaded] published"`)
	assert.Contains(t, got[0], `"component":"eventlog"`)
	assert.Contains(t, got[1], `"data":"7"`)
}

func TestLogger_SetEnabledIsIdempotent(t *testing.T) {
	bus, l, buf := newLogger(t)
	l.SetEnabled(true)
	l.SetEnabled(true)

	assert.Len(t, bus.Subscribers(), 1)
	bus.PublishEvent(context.Background(), "a", "s", nil)
	assert.Len(t, lines(buf), 1)

	l.SetEnabled(false)
	l.SetEnabled(false)
	assert.Empty(t, bus.Subscribers())
}

func TestLogger_Toggle(t *testing.T) {
	bus, l, buf := newLogger(t)

	assert.True(t, l.Toggle())
	bus.PublishEvent(context.Background(), "a", "s", nil)
	assert.False(t, l.Toggle())
	bus.PublishEvent(context.Background(), "b", "s", nil)

	got := lines(buf)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"event":"a"`)
}

func TestLogger_ResubscribeAfterClear(t *testing.T) {
	bus, l, buf := newLogger(t)
	l.SetEnabled(true)

	bus.Clear()
	bus.PublishEvent(context.Background(), "lost", "s", nil)
	assert.Empty(t, buf.String())

	l.Resubscribe()
	l.Resubscribe()
	assert.Len(t, bus.Subscribers(), 1)

	bus.PublishEvent(context.Background(), "seen", "s", nil)
	assert.Len(t, lines(buf), 1)
}

func TestLogger_ResubscribeWhileDisabled(t *testing.T) {
	bus, l, _ := newLogger(t)
	l.Resubscribe()
	assert.Empty(t, bus.Subscribers())
}

func TestLogger_RunsAfterNamedHandlers(t *testing.T) {
	var buf bytes.Buffer
	bus := event.NewPublisher[string, any]()
	l := eventlog.New[string, any](bus, zerolog.New(&buf).Level(zerolog.InfoLevel), false)
	l.SetEnabled(true)

	bus.SubscribeToEvent("a", event.NewHandler("named", func(context.Context, string, string, any) error {
		buf.WriteString("named\n")
		return nil
	}))
	bus.PublishEvent(context.Background(), "a", "s", nil)

	got := lines(&buf)
	require.Len(t, got, 2)
	assert.Equal(t, "named", got[0])
	assert.Contains(t, got[1], `"event":"a"`)
}

func TestLogger_ReenableKeepsWildcardOrder(t *testing.T) {
	bus, l, _ := newLogger(t)
	l.SetEnabled(true)
	bus.SubscribeToAllEvents(event.NewHandler("other", func(context.Context, string, string, any) error {
		return nil
	}))

	l.SetEnabled(true)
	l.Resubscribe()

	subs := bus.Subscribers()
	require.Len(t, subs, 2)
	assert.Equal(t, eventlog.HandlerName, subs[0].Handler)
	assert.Equal(t, "other", subs[1].Handler)
}

func TestLogger_DebugLineOnToggle(t *testing.T) {
	var buf bytes.Buffer
	bus := event.NewStack[string, any]()
	l := eventlog.New[string, any](bus, zerolog.New(&buf), false)

	l.SetEnabled(true)
	l.SetEnabled(true)

	got := lines(&buf)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"level":"debug"`)
	assert.Contains(t, got[0], `"message":"event logging toggled"`)
}
