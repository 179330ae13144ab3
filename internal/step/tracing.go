package step

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/stepflow/stepflow/internal/step")

// Tracing wraps inner's execution in a span named for the Step, recording
// input/output events and errors. Not present in the teacher (opencode has
// no tracing package); grounded on the OpenTelemetry usage pattern shown
// by the rest of the retrieval pack (haasonsaas-nexus, kadirpekel-hector),
// per the process's "enrich from the rest of the pack" rule.
func Tracing[I, O any](inner Step[I, O], name string) Step[I, O] {
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		ctx, span := tracer.Start(ctx, name)
		defer span.End()

		span.AddEvent("input", trace.WithAttributes(attribute.String("value", fmt.Sprintf("%v", input))))

		out, err := inner.Run(ctx, input)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return out, err
		}

		span.AddEvent("output", trace.WithAttributes(attribute.String("value", fmt.Sprintf("%v", out))))
		span.SetStatus(codes.Ok, "")
		return out, nil
	})
}
