// Package tracing wires OpenTelemetry for the sort commands. When disabled
// every tracer it hands out is a no-op.
package tracing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	DefaultServiceName  = "classwind"
	DefaultOTLPEndpoint = "localhost:4317"
)

// Exporter names accepted in Config.Exporter.
const (
	ExporterNone   = "none"
	ExporterFile   = "file"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config selects an exporter and a sample rate.
type Config struct {
	Enabled      bool
	Exporter     string
	FilePath     string
	OTLPEndpoint string
	// SampleRate is a fraction of root spans to keep; zero or less keeps all.
	SampleRate  float64
	ServiceName string
}

// Provider hands out the tracer the sort commands use.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

var noopTracer = noop.NewTracerProvider().Tracer("noop")

// Noop returns a disabled provider.
func Noop() *Provider {
	return &Provider{tracer: noopTracer}
}

type exporterFactory func(Config) (sdktrace.SpanExporter, error)

var exporters = map[string]exporterFactory{
	ExporterNone: func(Config) (sdktrace.SpanExporter, error) { return nil, nil },
	ExporterFile: func(cfg Config) (sdktrace.SpanExporter, error) {
		if cfg.FilePath == "" {
			return nil, errors.New("the file exporter needs a file path")
		}
		return NewFileExporter(cfg.FilePath)
	},
	ExporterStdout: func(Config) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	},
	ExporterOTLP: func(cfg Config) (sdktrace.SpanExporter, error) {
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = DefaultOTLPEndpoint
		}
		return otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
	},
}

// ExporterNames lists the accepted Config.Exporter values.
func ExporterNames() []string {
	names := make([]string, 0, len(exporters))
	for name := range exporters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewProvider builds the provider cfg describes and installs it as the
// global OpenTelemetry provider. A disabled cfg yields Noop.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	name := cfg.Exporter
	if name == "" {
		name = ExporterNone
	}
	factory, ok := exporters[name]
	if !ok {
		return nil, fmt.Errorf("unknown trace exporter %q (want one of %v)", cfg.Exporter, ExporterNames())
	}
	exporter, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s trace exporter: %w", name, err)
	}

	service := cmp.Or(cfg.ServiceName, DefaultServiceName)
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1
	}

	opts := []sdktrace.TracerProviderOption{
		// A schemaless resource cannot conflict with resource.Default()'s schema URL.
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	sdk := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(sdk)
	return &Provider{sdk: sdk, tracer: sdk.Tracer(service)}, nil
}

// Tracer is safe on a nil Provider.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return noopTracer
	}
	return p.tracer
}

func (p *Provider) Enabled() bool {
	return p != nil && p.sdk != nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
