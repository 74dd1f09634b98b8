package main

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func startSpan(name string) (context.Context, trace.Span) {
	return otel.Tracer(intrumentationName).Start(context.Background(), "irrigation-cli/"+name)
}

func endWithError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, "irrigation-cli error")
		span.RecordError(err)
	}
	span.End()
}
