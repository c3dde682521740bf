package bridge

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/tomyan/mediactl/internal/bridge"

// Metrics counts bridge round trips.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics registers the bridge collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediactl",
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Bridge round trips by primitive and outcome.",
		}, []string{"primitive", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediactl",
			Subsystem: "bridge",
			Name:      "call_duration_seconds",
			Help:      "Bridge round trip latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"primitive"}),
	}
}

func (m *Metrics) observe(primitive string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calls.WithLabelValues(primitive, outcome).Inc()
	m.latency.WithLabelValues(primitive).Observe(time.Since(start).Seconds())
}

// Instrumented decorates a Bridge with logging, tracing and metrics. It
// never alters results or errors.
type Instrumented struct {
	next    Bridge
	log     *zap.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// InstrumentOption configures Instrument.
type InstrumentOption func(*Instrumented)

// WithLogger logs every call at debug level and failures at warn.
func WithLogger(log *zap.Logger) InstrumentOption {
	return func(i *Instrumented) {
		if log != nil {
			i.log = log
		}
	}
}

// WithTracerProvider takes spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) InstrumentOption {
	return func(i *Instrumented) {
		if tp != nil {
			i.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithMetrics records each call in m.
func WithMetrics(m *Metrics) InstrumentOption {
	return func(i *Instrumented) {
		i.metrics = m
	}
}

// Instrument wraps next.
func Instrument(next Bridge, opts ...InstrumentOption) *Instrumented {
	i := &Instrumented{
		next:   next,
		log:    zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.log = i.log.Named("bridge")
	return i
}

func (i *Instrumented) Execute(ctx context.Context, script string) error {
	ctx, span := i.tracer.Start(ctx, "bridge.Execute", trace.WithAttributes(
		attribute.String("bridge.script", script),
	))
	defer span.End()

	start := time.Now()
	err := i.next.Execute(ctx, script)
	i.metrics.observe("execute", start, err)
	i.finish(span, "execute", script, start, err)
	return err
}

func (i *Instrumented) Evaluate(ctx context.Context, script string) (Scalar, error) {
	ctx, span := i.tracer.Start(ctx, "bridge.Evaluate", trace.WithAttributes(
		attribute.String("bridge.script", script),
	))
	defer span.End()

	start := time.Now()
	v, err := i.next.Evaluate(ctx, script)
	i.metrics.observe("evaluate", start, err)
	if err == nil {
		span.SetAttributes(attribute.String("bridge.kind", v.Kind().String()))
	}
	i.finish(span, "evaluate", script, start, err)
	return v, err
}

func (i *Instrumented) finish(span trace.Span, primitive, script string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.log.Warn("call failed",
			zap.String("primitive", primitive),
			zap.String("script", script),
			zap.Error(err))
		return
	}
	i.log.Debug("call",
		zap.String("primitive", primitive),
		zap.String("script", script),
		zap.Duration("elapsed", time.Since(start)))
}
