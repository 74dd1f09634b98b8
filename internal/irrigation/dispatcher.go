package irrigation

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var instrumentationName = "github.com/jbuck2005/irrigation-ha/internal/irrigation"

// Dispatcher is the entry point of external callers: it resolves zones
// through the registry and forwards to their controller.
type Dispatcher struct {
	registry *Registry
	tracer   trace.Tracer
	logger   *logrus.Entry
}

func NewDispatcher(r *Registry) *Dispatcher {
	return &Dispatcher{
		registry: r,
		tracer:   otel.Tracer(instrumentationName),
		logger:   NewLogger("dispatch"),
	}
}

func endWithError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, "irrigation error")
		span.RecordError(err)
	}
	span.End()
}

func (d *Dispatcher) start(ctx context.Context, name string, zone int) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, "irrigation/"+name,
		trace.WithAttributes(attribute.Int("zone", zone)))
}

// Run starts zone for its configured default duration.
func (d *Dispatcher) Run(ctx context.Context, zone int) (err error) {
	ctx, span := d.start(ctx, "Run", zone)
	defer func() { endWithError(span, err) }()

	c, err := d.registry.Lookup(zone)
	if err != nil {
		return err
	}
	return c.Start(ctx, c.Config().DefaultDuration)
}

// RunFor starts zone for seconds. Zero seconds stops the zone.
func (d *Dispatcher) RunFor(ctx context.Context, zone, seconds int) (err error) {
	ctx, span := d.start(ctx, "RunFor", zone)
	span.SetAttributes(attribute.Int("duration", seconds))
	defer func() { endWithError(span, err) }()

	c, err := d.registry.Lookup(zone)
	if err != nil {
		return err
	}
	return c.Start(ctx, seconds)
}

// RunLevel starts zone for level/255 of its default duration.
func (d *Dispatcher) RunLevel(ctx context.Context, zone int, level uint8) (err error) {
	ctx, span := d.start(ctx, "RunLevel", zone)
	span.SetAttributes(attribute.Int("level", int(level)))
	defer func() { endWithError(span, err) }()

	c, err := d.registry.Lookup(zone)
	if err != nil {
		return err
	}
	return c.Start(ctx, LevelDuration(level, c.Config().DefaultDuration))
}

func (d *Dispatcher) Stop(ctx context.Context, zone int) (err error) {
	ctx, span := d.start(ctx, "Stop", zone)
	defer func() { endWithError(span, err) }()

	c, err := d.registry.Lookup(zone)
	if err != nil {
		return err
	}
	return c.Stop(ctx)
}

// StopAll stops every zone in ascending order and reports every failure,
// not only the first one.
func (d *Dispatcher) StopAll(ctx context.Context) (err error) {
	ctx, span := d.tracer.Start(ctx, "irrigation/StopAll")
	defer func() { endWithError(span, err) }()

	var errs []error
	for _, zone := range d.registry.Zones() {
		c, _ := d.registry.Lookup(zone)
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		d.logger.WithField("failures", len(errs)).Warn("some zones did not acknowledge stop")
	}
	return errors.Join(errs...)
}
