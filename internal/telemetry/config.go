// Package telemetry wires OpenTelemetry tracing and metrics for gitsorted.
// Traces and metrics are pushed over OTLP/HTTP; metrics may additionally be
// exposed for scraping through a Prometheus registry.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName identifies the process in exported telemetry
	DefaultServiceName = "gitsorted"

	// DefaultEndpoint is the OTLP/HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the trace sampling ratio used when none is configured
	DefaultSampling = 0.05
)

// Config is the telemetry section of the gitsorted configuration.
type Config struct {
	// Enabled turns telemetry on. When false every provider is a no-op.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	ServiceName    string `mapstructure:"service_name" yaml:"service_name,omitempty"`
	ServiceVersion string `mapstructure:"service_version" yaml:"service_version,omitempty"`

	// Endpoint is the OTLP collector as host:port
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// Insecure sends OTLP over plain HTTP
	Insecure bool `mapstructure:"insecure" yaml:"insecure,omitempty"`

	Tracing *TracingConfig `mapstructure:"tracing" yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `mapstructure:"metrics" yaml:"metrics,omitempty"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Sampling is a ratio in [0, 1]. Zero selects DefaultSampling.
	Sampling float64 `mapstructure:"sampling" yaml:"sampling,omitempty"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	// Enabled pushes metrics to the OTLP endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Prometheus exposes metrics on the HTTP server's /metrics route
	Prometheus bool `mapstructure:"prometheus" yaml:"prometheus"`
}

// GetServiceName returns the service name or DefaultServiceName.
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version or "unknown".
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the collector endpoint or DefaultEndpoint.
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio. A zero value means unset.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// Validate checks the telemetry section. A nil or disabled config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && c.Tracing.Enabled {
		if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1.0 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
		}
	}
	return errors.Join(errs...)
}

// metricsEnabled reports whether any metric reader is requested.
func (c *MetricsConfig) metricsEnabled() bool {
	return c != nil && (c.Enabled || c.Prometheus)
}
