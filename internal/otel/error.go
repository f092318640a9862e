package otel

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordError marks the span as failed and attaches err as both an event and
// a recorded exception. A nil err is a no-op, so failure paths can call it
// unconditionally on already-wrapped errors.
func RecordError(err error, span trace.Span) {
	if err == nil {
		return
	}
	msg := err.Error()
	span.AddEvent(msg)
	span.SetStatus(codes.Error, msg)
	span.RecordError(err)
}
