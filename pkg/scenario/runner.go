package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vulntor/eventstack/pkg/event"
	"github.com/vulntor/eventstack/pkg/inspect"
)

// DefaultSender is used for publish steps without a sender.
const DefaultSender = "scenario"

// ErrMaxDepth is returned when a push step would exceed the configured depth.
var ErrMaxDepth = errors.New("scenario: maximum scope depth reached")

// Toggle switches event logging on and off.
type Toggle interface {
	SetEnabled(enabled bool)
}

// typedID names a typed event declared by a scenario.
type typedID string

func (id typedID) String() string { return string(id) }

// Runner executes scenarios against a stack.
type Runner struct {
	bus      *event.Stack[string, any]
	logger   zerolog.Logger
	eventLog Toggle
	maxDepth int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for step progress.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithEventLog lets log_events steps toggle t. Without it those steps are
// skipped with a warning.
func WithEventLog(t Toggle) Option {
	return func(r *Runner) { r.eventLog = t }
}

// WithMaxDepth limits the scopes pushed above the base scope. Zero means no limit.
func WithMaxDepth(n int) Option {
	return func(r *Runner) { r.maxDepth = n }
}

// NewRunner creates a runner driving bus.
func NewRunner(bus *event.Stack[string, any], opts ...Option) *Runner {
	r := &Runner{bus: bus, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run holds the state of a single Run call.
type run struct {
	*Runner
	sc       *Scenario
	typed    *event.Typed[typedID, string, any]
	handlers map[string]*event.Handler[string, any]
	result   Result
	step     int
}

// Run validates sc and executes its steps in order. Context cancellation is
// checked between steps, and once it is canceled handlers stop emitting so
// a running publish winds down. On failure the partial result is returned
// together with the error of the failing step.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := Validate(sc); err != nil {
		return nil, err
	}

	st := &run{
		Runner:   r,
		sc:       sc,
		handlers: make(map[string]*event.Handler[string, any], len(sc.Handlers)),
		result:   Result{Name: sc.Name, Trace: []Entry{}},
	}

	if len(sc.Typed) > 0 {
		ids := make([]typedID, len(sc.Typed))
		for i, name := range sc.Typed {
			ids[i] = typedID(name)
		}
		st.typed = event.NewTyped[typedID, string, any](r.bus, sc.Group, ids...)
	}
	for _, spec := range sc.Handlers {
		st.handlers[spec.Name] = event.NewHandler(spec.Name, st.handlerFunc(spec))
	}

	r.logger.Info().Str("scenario", sc.Name).Int("steps", len(sc.Steps)).Msg("Running scenario")

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			st.result.Depth = r.bus.Depth()
			return &st.result, err
		}
		st.step = i
		r.logger.Debug().Int("step", i).Str("op", string(step.Op)).Msg("Executing step")

		err := st.exec(ctx, step)
		if err == nil {
			// A step cut short by cancellation did not complete.
			err = ctx.Err()
		}
		if err != nil {
			st.result.Depth = r.bus.Depth()
			return &st.result, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		st.result.Steps++
	}

	st.result.Depth = r.bus.Depth()
	return &st.result, nil
}

func (st *run) exec(ctx context.Context, step Step) error {
	switch step.Op {
	case OpSubscribe, OpUnsubscribe, OpSubscribeAll, OpUnsubscribeAll:
		h, ok := st.handlers[step.Handler]
		if !ok {
			return fmt.Errorf("unknown handler %q", step.Handler)
		}
		return st.subscription(step, h)

	case OpRegister:
		name, err := st.name(step.Event, step.Typed)
		if err != nil {
			return err
		}
		st.bus.RegisterEvent(name)

	case OpPublish:
		sender := step.Sender
		if sender == "" {
			sender = DefaultSender
		}
		return st.publish(ctx, step.Event, step.Typed, sender, step.Data)

	case OpPush:
		if st.maxDepth > 0 && st.bus.Depth()-1 >= st.maxDepth {
			return fmt.Errorf("%w (%d)", ErrMaxDepth, st.maxDepth)
		}
		st.bus.Push()

	case OpPop:
		if _, err := st.bus.Pop(); err != nil {
			return err
		}

	case OpClear:
		st.bus.Clear()

	case OpLogEvents:
		if st.eventLog == nil {
			st.logger.Warn().Msg("Event logging is not available, skipping log_events step")
			return nil
		}
		st.eventLog.SetEnabled(step.Enabled != nil && *step.Enabled)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func (st *run) subscription(step Step, h *event.Handler[string, any]) error {
	switch step.Op {
	case OpSubscribeAll:
		st.bus.SubscribeToAllEvents(h)
	case OpUnsubscribeAll:
		st.bus.UnsubscribeToAllEvents(h)
	case OpSubscribe:
		if step.Typed != "" {
			return st.typedAdapter().SubscribeToEvent(typedID(step.Typed), h)
		}
		st.bus.SubscribeToEvent(step.Event, h)
	case OpUnsubscribe:
		if step.Typed != "" {
			return st.typedAdapter().UnsubscribeToEvent(typedID(step.Typed), h)
		}
		st.bus.UnsubscribeToEvent(step.Event, h)
	}
	return nil
}

func (st *run) publish(ctx context.Context, name, typed, sender string, data any) error {
	if typed != "" {
		return st.typedAdapter().PublishEvent(ctx, typedID(typed), sender, data)
	}
	st.bus.PublishEvent(ctx, name, sender, data)
	return nil
}

func (st *run) name(name, typed string) (string, error) {
	if typed == "" {
		return name, nil
	}
	return st.typedAdapter().Name(typedID(typed))
}

// typedAdapter returns the scenario's typed adapter, or an empty one that
// rejects every identifier when the scenario declares none.
func (st *run) typedAdapter() *event.Typed[typedID, string, any] {
	if st.typed == nil {
		st.typed = event.NewTyped[typedID, string, any](st.bus, st.sc.Group)
	}
	return st.typed
}

func (st *run) handlerFunc(spec HandlerSpec) event.HandlerFunc[string, any] {
	return func(ctx context.Context, name string, sender string, data any) error {
		entry := Entry{
			Seq:     len(st.result.Trace) + 1,
			Step:    st.step,
			Event:   name,
			Handler: spec.Name,
			Sender:  sender,
			Data:    inspect.Value(data),
			Outcome: OutcomeOK,
		}
		switch {
		case spec.Panic:
			entry.Outcome = OutcomePanic
		case spec.Fail:
			entry.Outcome = OutcomeError
		}
		st.result.Trace = append(st.result.Trace, entry)

		if ctx.Err() != nil {
			st.logger.Debug().Str("handler", spec.Name).Msg("Context done, skipping emits")
		} else {
			for _, e := range spec.Emits {
				emitSender := e.Sender
				if emitSender == "" {
					emitSender = spec.Name
				}
				if err := st.publish(ctx, e.Event, e.Typed, emitSender, e.Data); err != nil {
					return err
				}
			}
		}

		if spec.Panic {
			panic(fmt.Sprintf("handler %s panicked on %s", spec.Name, name))
		}
		if spec.Fail {
			return fmt.Errorf("handler %s failed on %s", spec.Name, name)
		}
		return nil
	}
}
