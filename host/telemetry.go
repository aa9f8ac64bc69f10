package host

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/wippyai/ffivalue/host")
var meter = otel.Meter("github.com/wippyai/ffivalue/host")

const (
	// attrFunction associates each record with the guest function called.
	attrFunction = "function"
	// attrDirection is "in" for argument text and "out" for result text.
	attrDirection = "direction"
)

var (
	// callDuration measures a boundary call from argument encoding to result
	// decoding, guest execution included.
	callDuration metric.Float64Histogram
	// callFailures counts calls that returned an error.
	callFailures metric.Int64Counter
	// textBytes counts text payload bytes crossing the boundary.
	textBytes metric.Int64Counter
)

func init() {
	var err error
	callDuration, err = meter.Float64Histogram(
		"ffivalue.call.duration",
		metric.WithDescription("The duration of a boundary call, including argument encoding, guest execution and result decoding."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("host: failed to init 'ffivalue.call.duration' instrument")
	}

	callFailures, err = meter.Int64Counter(
		"ffivalue.call.failures",
		metric.WithDescription("The number of boundary calls that have failed."),
	)
	if err != nil {
		panic("host: failed to init 'ffivalue.call.failures' instrument")
	}

	textBytes, err = meter.Int64Counter(
		"ffivalue.text.bytes",
		metric.WithDescription("The number of text payload bytes copied across the boundary."),
		metric.WithUnit("By"),
	)
	if err != nil {
		panic("host: failed to init 'ffivalue.text.bytes' instrument")
	}
}

func startCall(ctx context.Context, function string, argc int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ffivalue.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrFunction, function),
			attribute.Int("argc", argc),
		),
	)
}

// endCall records the outcome of a call on its span and in the call metrics.
// Successful calls record their duration; failed calls increment the
// failure counter.
func endCall(ctx context.Context, span trace.Span, function string, err error, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(attrFunction, function))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		callFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
	} else {
		callDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))
	}
	span.End()
}

func recordText(ctx context.Context, function, direction string, n uint64) {
	if n == 0 {
		return
	}
	attrs := attribute.NewSet(
		attribute.String(attrFunction, function),
		attribute.String(attrDirection, direction),
	)
	textBytes.Add(ctx, int64(n), metric.WithAttributeSet(attrs))
}
