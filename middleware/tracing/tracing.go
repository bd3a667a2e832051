// Package tracing opens one OpenTelemetry span per stage.
package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/ai-triage/middleware"
	"github.com/sweetpotato0/ai-triage/pkg/telemetry"
)

// Tracer starts a span named "triage.<stage>" around each stage.
type Tracer struct {
	tracer trace.Tracer
}

// New creates a tracing middleware. A nil tracer uses the global provider.
func New(tracer trace.Tracer) *Tracer {
	return &Tracer{tracer: tracer}
}

func (m *Tracer) Name() string {
	return "Tracer"
}

func (m *Tracer) Execute(ctx *middleware.Context, next middleware.Handler) error {
	tracer := m.tracer
	if tracer == nil {
		tracer = telemetry.Tracer()
	}
	spanCtx, span := tracer.Start(ctx.Context(), "triage."+ctx.Stage,
		trace.WithAttributes(
			attribute.String("triage.stage", ctx.Stage),
			attribute.String("triage.ticket_id", ctx.TicketID),
		))
	parent := ctx.Context()
	ctx.SetContext(spanCtx)

	err := next(ctx)

	ctx.SetContext(parent)
	telemetry.End(span, err)
	return err
}
