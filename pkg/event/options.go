package event

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of publish spans.
const TracerName = "github.com/vulntor/eventstack/pkg/event"

// ErrorHandler receives every handler failure. The error is always a *HandlerError.
type ErrorHandler func(err error)

// Option configures a Publisher or Stack. Options given to a Stack apply to
// every scope it creates.
type Option func(*options)

type options struct {
	logger       zerolog.Logger
	errorHandler ErrorHandler
	tracer       trace.Tracer
}

func newOptions(opts []Option) options {
	o := options{
		logger: zerolog.Nop(),
		tracer: otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for dispatch traces and handler failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithErrorHandler sets the diagnostic sink for handler failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.errorHandler = h }
}

// WithTracer sets the tracer used to record one span per PublishEvent call.
// Defaults to the global OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}
