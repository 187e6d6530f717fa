package event_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vulntor/eventstack/pkg/event"
)

// recorder collects handler invocations in call order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// handler returns a handler that records its own name.
func (r *recorder) handler(name string) *event.Handler[string, any] {
	return event.NewHandler(name, func(ctx context.Context, ev string, sender string, data any) error {
		r.add(name)
		return nil
	})
}

// emitter returns a handler that records its name and then publishes next on bus.
func (r *recorder) emitter(name string, bus event.Bus[string, any], next string) *event.Handler[string, any] {
	return event.NewHandler(name, func(ctx context.Context, ev string, sender string, data any) error {
		r.add(name)
		bus.PublishEvent(ctx, next, name, nil)
		return nil
	})
}

func TestPublisher_UnsubscribeRemovesHandler(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}
	h := rec.handler("h")

	p.SubscribeToEvent("n", h)
	p.UnsubscribeToEvent("n", h)
	p.PublishEvent(context.Background(), "n", "test", nil)

	assert.Empty(t, rec.get())
}

func TestPublisher_DuplicateSubscriptionRunsTwice(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}
	h := rec.handler("h")

	p.SubscribeToEvent("n", h)
	p.SubscribeToEvent("n", h)
	p.PublishEvent(context.Background(), "n", "test", nil)
	assert.Equal(t, []string{"h", "h"}, rec.get())

	// Unsubscribe removes only the first occurrence.
	p.UnsubscribeToEvent("n", h)
	p.PublishEvent(context.Background(), "n", "test", nil)
	assert.Equal(t, []string{"h", "h", "h"}, rec.get())
}

func TestPublisher_ReentrantPublishRunsAfterCurrentEvent(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}

	p.SubscribeToEvent("A", rec.emitter("h1", p, "B"))
	p.SubscribeToEvent("A", rec.handler("h2"))
	p.SubscribeToEvent("B", rec.handler("h3"))

	p.PublishEvent(context.Background(), "A", "test", nil)

	assert.Equal(t, []string{"h1", "h2", "h3"}, rec.get())
}

func TestPublisher_NestedPublishesAreBreadthFirst(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}

	p.SubscribeToEvent("A", rec.emitter("a1", p, "B"))
	p.SubscribeToEvent("A", rec.emitter("a2", p, "C"))
	p.SubscribeToEvent("B", rec.emitter("b1", p, "D"))
	p.SubscribeToEvent("C", rec.handler("c1"))
	p.SubscribeToEvent("D", rec.handler("d1"))
	p.SubscribeToAllEvents(rec.handler("all"))

	p.PublishEvent(context.Background(), "A", "test", nil)

	assert.Equal(t, []string{
		"a1", "a2", "all", // A
		"b1", "all", // B
		"c1", "all", // C
		"d1", "all", // D
	}, rec.get())
}

func TestPublisher_WildcardRunsAfterNamedHandlers(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}

	var seen []string
	p.SubscribeToAllEvents(event.NewHandler("all", func(ctx context.Context, ev string, sender string, data any) error {
		seen = append(seen, ev)
		rec.add("all")
		return nil
	}))
	p.SubscribeToEvent("n", rec.handler("named"))

	p.PublishEvent(context.Background(), "n", "test", nil)
	p.PublishEvent(context.Background(), "unregistered", "test", nil)

	assert.Equal(t, []string{"named", "all", "all"}, rec.get())
	assert.Equal(t, []string{"n", "unregistered"}, seen)
}

func TestPublisher_UnsubscribeToAllEvents(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}
	h := rec.handler("all")

	p.SubscribeToAllEvents(h)
	p.UnsubscribeToAllEvents(h)
	p.PublishEvent(context.Background(), "n", "test", nil)

	assert.Empty(t, rec.get())
}

func TestPublisher_PassesSenderAndData(t *testing.T) {
	p := event.NewPublisher[string, int]()

	var gotSender string
	var gotData int
	p.SubscribeToEvent("score", event.NewHandler("h", func(ctx context.Context, ev string, sender string, data int) error {
		gotSender, gotData = sender, data
		return nil
	}))

	p.PublishEvent(context.Background(), "score", "player-1", 42)

	assert.Equal(t, "player-1", gotSender)
	assert.Equal(t, 42, gotData)
}

func TestPublisher_FailingHandlerDoesNotStopDispatch(t *testing.T) {
	var reported []error
	p := event.NewPublisher[string, any](event.WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))
	rec := &recorder{}

	boom := errors.New("boom")
	p.SubscribeToEvent("n", event.NewHandler("bad", func(ctx context.Context, ev string, sender string, data any) error {
		return boom
	}))
	p.SubscribeToEvent("n", rec.handler("good"))

	require.NotPanics(t, func() {
		p.PublishEvent(context.Background(), "n", "sender-1", nil)
	})

	assert.Equal(t, []string{"good"}, rec.get())
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], boom)

	var herr *event.HandlerError
	require.ErrorAs(t, reported[0], &herr)
	assert.Equal(t, "n", herr.Event)
	assert.Equal(t, "bad", herr.Handler)
	assert.Equal(t, "sender-1", herr.Sender)
	assert.False(t, herr.Panicked)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Delivered)
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestPublisher_PanickingHandlerIsContained(t *testing.T) {
	var reported []error
	p := event.NewPublisher[string, any](event.WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))
	rec := &recorder{}

	p.SubscribeToEvent("n", event.NewHandler("panicky", func(ctx context.Context, ev string, sender string, data any) error {
		panic("kaboom")
	}))
	p.SubscribeToEvent("n", rec.handler("good"))

	require.NotPanics(t, func() {
		p.PublishEvent(context.Background(), "n", "test", nil)
	})

	assert.Equal(t, []string{"good"}, rec.get())
	require.Len(t, reported, 1)

	var herr *event.HandlerError
	require.ErrorAs(t, reported[0], &herr)
	assert.True(t, herr.Panicked)
	assert.NotEmpty(t, herr.Stack)
	assert.Contains(t, herr.Error(), "kaboom")
	assert.Equal(t, uint64(1), p.Stats().Panicked)
}

func TestPublisher_LogsHandlerFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	p := event.NewPublisher[string, any](event.WithLogger(logger))

	p.SubscribeToEvent("n", event.NewHandler("bad", func(ctx context.Context, ev string, sender string, data any) error {
		return errors.New("broken")
	}))
	p.PublishEvent(context.Background(), "n", "sender-1", nil)

	out := buf.String()
	assert.Contains(t, out, "event handler failed")
	assert.Contains(t, out, `"event":"n"`)
	assert.Contains(t, out, `"handler":"bad"`)
	assert.Contains(t, out, `"sender":"sender-1"`)
	assert.Contains(t, out, "broken")
}

func TestPublisher_RegisteredEvents(t *testing.T) {
	p := event.NewPublisher[string, any]()

	p.RegisterEvent("x")
	p.RegisterEvent("x")
	p.SubscribeToEvent("y", nil)
	p.SubscribeToEvent("z", event.NewHandler("h", func(ctx context.Context, ev string, sender string, data any) error {
		return nil
	}))

	assert.Equal(t, []string{"x", "y", "z"}, slices.Collect(p.GetRegisteredEvents()))
	// The sequence is restartable.
	assert.Equal(t, []string{"x", "y", "z"}, slices.Collect(p.GetRegisteredEvents()))
}

func TestPublisher_RegistrationSurvivesUnsubscribe(t *testing.T) {
	p := event.NewPublisher[string, any]()
	h := event.NewHandler("h", func(ctx context.Context, ev string, sender string, data any) error { return nil })

	p.SubscribeToEvent("n", h)
	p.UnsubscribeToEvent("n", h)

	assert.Contains(t, slices.Collect(p.GetRegisteredEvents()), "n")
}

func TestPublisher_MutationDuringIteration(t *testing.T) {
	p := event.NewPublisher[string, any]()
	p.RegisterEvent("a")
	p.RegisterEvent("b")

	var seen []string
	require.NotPanics(t, func() {
		for name := range p.GetRegisteredEvents() {
			seen = append(seen, name)
			p.RegisterEvent(name + "-copy")
		}
	})

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []string{"a", "b", "a-copy", "b-copy"}, slices.Collect(p.GetRegisteredEvents()))
}

func TestPublisher_SubscribeDuringDispatchAffectsLaterPublishes(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}
	late := rec.handler("late")

	p.SubscribeToEvent("n", event.NewHandler("subscriber", func(ctx context.Context, ev string, sender string, data any) error {
		rec.add("subscriber")
		p.SubscribeToEvent("n", late)
		return nil
	}))

	p.PublishEvent(context.Background(), "n", "test", nil)
	assert.Equal(t, []string{"subscriber"}, rec.get())

	p.PublishEvent(context.Background(), "n", "test", nil)
	assert.Equal(t, []string{"subscriber", "subscriber", "late"}, rec.get())
}

func TestPublisher_UnsubscribeDuringDispatchKeepsSnapshot(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}
	second := rec.handler("second")

	p.SubscribeToEvent("n", event.NewHandler("first", func(ctx context.Context, ev string, sender string, data any) error {
		rec.add("first")
		p.UnsubscribeToEvent("n", second)
		return nil
	}))
	p.SubscribeToEvent("n", second)

	p.PublishEvent(context.Background(), "n", "test", nil)
	p.PublishEvent(context.Background(), "n", "test", nil)

	assert.Equal(t, []string{"first", "second", "first"}, rec.get())
}

func TestPublisher_NilHandlersAreIgnored(t *testing.T) {
	assert.Nil(t, event.NewHandler[string, any]("nil", nil))

	p := event.NewPublisher[string, any]()
	require.NotPanics(t, func() {
		p.SubscribeToEvent("n", nil)
		p.UnsubscribeToEvent("n", nil)
		p.SubscribeToAllEvents(nil)
		p.UnsubscribeToAllEvents(nil)
		p.UnsubscribeToEvent("unknown", nil)
		p.PublishEvent(context.Background(), "n", "test", nil)
	})
	assert.Empty(t, p.Subscribers())
}

func TestPublisher_UnknownEventPublishIsNoop(t *testing.T) {
	p := event.NewPublisher[string, any]()
	require.NotPanics(t, func() {
		//nolint:staticcheck
		p.PublishEvent(nil, "nobody-listens", "test", nil)
	})
	assert.Equal(t, uint64(0), p.Stats().Delivered)
}

func TestPublisher_Clear(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}
	p.SubscribeToEvent("n", rec.handler("h"))
	p.SubscribeToAllEvents(rec.handler("all"))

	p.Clear()
	p.PublishEvent(context.Background(), "n", "test", nil)

	assert.Empty(t, rec.get())
	assert.Empty(t, slices.Collect(p.GetRegisteredEvents()))
	assert.Empty(t, p.Subscribers())
}

func TestPublisher_Subscribers(t *testing.T) {
	p := event.NewPublisher[string, any]()
	rec := &recorder{}
	h1 := rec.handler("h1")
	all := rec.handler("all")

	p.RegisterEvent("empty")
	p.SubscribeToEvent("n", h1)
	p.SubscribeToAllEvents(all)

	subs := p.Subscribers()
	require.Len(t, subs, 2)
	assert.Equal(t, event.Subscription{Event: "n", Handler: "h1", HandlerID: h1.ID()}, subs[0])
	assert.Equal(t, event.Subscription{Handler: "all", HandlerID: all.ID(), Wildcard: true}, subs[1])
}

func TestHandler_DefaultNameIsID(t *testing.T) {
	h := event.NewHandler("", func(ctx context.Context, ev string, sender string, data any) error { return nil })
	require.NotNil(t, h)
	assert.NotEmpty(t, h.ID())
	assert.Equal(t, h.ID(), h.Name())

	var nilHandler *event.Handler[string, any]
	assert.Empty(t, nilHandler.Name())
	assert.Empty(t, nilHandler.ID())
}

func TestPublisher_ConcurrentPublishAndSubscribe(t *testing.T) {
	p := event.NewPublisher[string, any]()

	var calls atomic.Int64
	counter := event.NewHandler("counter", func(ctx context.Context, ev string, sender string, data any) error {
		calls.Add(1)
		return nil
	})
	p.SubscribeToEvent("n", counter)

	const publishers = 8
	const perPublisher = 50

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				p.PublishEvent(context.Background(), "n", "test", j)
			}
		}()
	}

	// Churn subscriptions of an unrelated handler while publishing.
	wg.Add(1)
	go func() {
		defer wg.Done()
		other := event.NewHandler("other", func(ctx context.Context, ev string, sender string, data any) error { return nil })
		for j := 0; j < perPublisher; j++ {
			p.SubscribeToEvent("m", other)
			p.UnsubscribeToEvent("m", other)
			_ = slices.Collect(p.GetRegisteredEvents())
		}
	}()

	wg.Wait()
	assert.Equal(t, int64(publishers*perPublisher), calls.Load())
}

func TestPublisher_ConcurrentPublishReturnsAfterOwnHandlers(t *testing.T) {
	p := event.NewPublisher[string, any]()

	var mu sync.Mutex
	done := make(map[int]bool)
	p.SubscribeToEvent("n", event.NewHandler("mark", func(ctx context.Context, ev string, sender string, data any) error {
		mu.Lock()
		done[data.(int)] = true
		mu.Unlock()
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.PublishEvent(context.Background(), "n", "test", i)
			mu.Lock()
			defer mu.Unlock()
			assert.True(t, done[i], "publish %d returned before its handler ran", i)
		}(i)
	}
	wg.Wait()
}

func TestPublisher_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	p := event.NewPublisher[string, any](event.WithTracer(tp.Tracer("test")))
	p.SubscribeToEvent("A", event.NewHandler("h1", func(ctx context.Context, ev string, sender string, data any) error {
		p.PublishEvent(ctx, "B", "h1", nil)
		return nil
	}))
	p.SubscribeToEvent("B", event.NewHandler("bad", func(ctx context.Context, ev string, sender string, data any) error {
		return errors.New("nope")
	}))

	p.PublishEvent(context.Background(), "A", "test", nil)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	byEvent := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		assert.Equal(t, "event.PublishEvent", s.Name())
		for _, kv := range s.Attributes() {
			if kv.Key == "event.name" {
				byEvent[kv.Value.AsString()] = s
			}
		}
	}
	require.Contains(t, byEvent, "A")
	require.Contains(t, byEvent, "B")

	assert.Contains(t, byEvent["B"].Attributes(), attribute.Bool("event.reentrant", true))
	assert.Contains(t, byEvent["A"].Attributes(), attribute.Bool("event.reentrant", false))
	// The nested publish span is a child of the outer one.
	assert.Equal(t, byEvent["A"].SpanContext().SpanID(), byEvent["B"].Parent().SpanID())
	// B's handler runs inside A's drain loop, so the failure lands on A's span.
	assert.NotEmpty(t, byEvent["A"].Events())
}
