// Package correlation tags a command run with an id shared by its logs and
// spans.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/propagation"
)

// TraceParentEnv names the environment variable holding a W3C traceparent
// set by whatever launched the run (a cron wrapper, a CI job).
const TraceParentEnv = "TRACEPARENT"

type idKey struct{}

// FromContext returns the run's correlation id, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(idKey{}).(string)
	return id
}

// WithID stores id on ctx. Blank ids leave ctx untouched.
func WithID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, idKey{}, id)
}

// Ensure returns ctx carrying a correlation id, minting a ULID when none is
// set yet.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return WithID(ctx, id), id
}

// WithTraceParent makes the span described by a W3C traceparent value the
// remote parent of spans started from ctx. Malformed values are ignored.
func WithTraceParent(ctx context.Context, traceparent string) context.Context {
	traceparent = strings.TrimSpace(traceparent)
	if traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": traceparent}
	return propagation.TraceContext{}.Extract(ctx, carrier)
}
