package processor

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/maauso/newsvideo-api/internal/processor"

// Processor is a unit of work turning an input into an artifact (or a batch
// of artifacts).
type Processor[I, O any] interface {
	// Name identifies the processor in logs, spans and metrics.
	Name() string
	// Validate rejects inputs missing required fields before any work starts.
	Validate(in I) error
	// Process does the work, reporting progress on t.
	Process(ctx context.Context, in I, t *Tracker) (O, error)
}

type instruments struct {
	success metric.Int64Counter
	failure metric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	counters        instruments
)

func loadInstruments() instruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		// Errors only occur for invalid instrument names; the no-op
		// counters returned alongside are safe to use.
		counters.success, _ = meter.Int64Counter("processor.success",
			metric.WithDescription("Processor runs that completed"))
		counters.failure, _ = meter.Int64Counter("processor.error",
			metric.WithDescription("Processor runs that failed"))
	})
	return counters
}

// Execute runs p under the lifecycle recorded by t: pending → running, input
// validation, Process, then completed or failed. The error from validation or
// Process is recorded on t and returned unchanged in its chain.
func Execute[I, O any](ctx context.Context, p Processor[I, O], t *Tracker, in I) (O, error) {
	var zero O

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, p.Name(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("processor", p.Name())),
	)
	defer span.End()

	if err := t.start(); err != nil {
		return zero, fmt.Errorf("%s: %w", p.Name(), err)
	}

	out, err := run(ctx, p, t, in)
	t.finish(err)

	ins := loadInstruments()
	attrs := metric.WithAttributes(attribute.String("processor", p.Name()))
	if err != nil {
		ins.failure.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	ins.success.Add(ctx, 1, attrs)
	return out, nil
}

func run[I, O any](ctx context.Context, p Processor[I, O], t *Tracker, in I) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", p.Name(), r)
		}
	}()

	if err := p.Validate(in); err != nil {
		return out, fmt.Errorf("%s: %w: %w", p.Name(), ErrValidation, err)
	}
	return p.Process(ctx, in, t)
}
