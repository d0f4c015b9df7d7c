package compiler

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/netintent/internal/logging"
	"github.com/signalsfoundry/netintent/internal/observability"
)

// startSpan opens a child span for one compiler stage, tagged with the run id
// when the context carries one.
func startSpan(ctx context.Context, stage string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(extra)+1)
	if id := logging.RunIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("run_id", id))
	}
	attrs = append(attrs, extra...)
	return observability.Tracer().Start(ctx, "netintent/"+stage, trace.WithAttributes(attrs...))
}
