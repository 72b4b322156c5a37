package telemetry

import (
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	defaultServiceName = "dittodrive"
	defaultEndpoint    = "localhost:4317"
)

// Config configures span export for dittodrive. Only `dittodrive serve`
// enables it; one-shot commands run with the no-op tracer.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector, host:port.
	Endpoint string
	Insecure bool

	// SampleRate in [0, 1]. Child spans follow their parent's decision.
	SampleRate float64

	// Drives names the drives being served. They are attached to the
	// resource so traces from different instances can be told apart.
	Drives []string
}

// withDefaults fills the zero fields that have a usable default.
func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	return c
}

func (c Config) sampler() sdktrace.Sampler {
	switch {
	case c.SampleRate >= 1.0:
		return sdktrace.AlwaysSample()
	case c.SampleRate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRate))
	}
}

func (c Config) resourceAttributes() []attribute.KeyValue {
	if len(c.Drives) == 0 {
		return nil
	}
	drives := append([]string(nil), c.Drives...)
	sort.Strings(drives)
	return []attribute.KeyValue{
		attribute.StringSlice("dittodrive.drives", drives),
		attribute.Int("dittodrive.drive_count", len(drives)),
	}
}
