package otelhelper

import (
	"errors"

	"github.com/dukex/demodeck/pkg/faults"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ErrorKindKey   = "demodeck.error.kind"
	ErrorReasonKey = "demodeck.error.reason"
)

// SetError marks span as failed. Classified errors also get their kind and reason
// recorded so failed syncs and runs can be grouped.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	var fault *faults.Error
	if errors.As(err, &fault) {
		attrs = append(attrs, attribute.String(ErrorKindKey, string(fault.Kind)))

		if fault.Reason != faults.ReasonNone {
			attrs = append(attrs, attribute.String(ErrorReasonKey, string(fault.Reason)))
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
}
