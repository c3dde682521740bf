package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tomyan/mediactl/internal/bridge"
)

// setupObservability builds the logger and, with --trace, a tracer
// provider exporting spans to stderr. The returned func flushes both.
func setupObservability(cfg *Config) (func(), error) {
	cfg.log = newLogger(cfg)
	if !cfg.Trace {
		return func() { cfg.log.Sync() }, nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "mediactl"),
		attribute.String("mediactl.driver", cfg.Driver),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	cfg.tracer = tp

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tp.Shutdown(ctx)
		cfg.log.Sync()
	}, nil
}

// newLogger writes to cfg.Stderr so stdout carries only results. Quiet by
// default; --verbose switches to a human readable debug log.
func newLogger(cfg *Config) *zap.Logger {
	if cfg.Verbose {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, zapcore.AddSync(cfg.Stderr), zap.DebugLevel))
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(cfg.Stderr), zap.ErrorLevel))
}

func instrument(cfg *Config, b bridge.Bridge, m *bridge.Metrics) bridge.Bridge {
	opts := []bridge.InstrumentOption{bridge.WithLogger(cfg.log), bridge.WithMetrics(m)}
	if cfg.tracer != nil {
		opts = append(opts, bridge.WithTracerProvider(cfg.tracer))
	}
	return bridge.Instrument(b, opts...)
}
