package config

import (
	"fmt"
	"time"
)

const (
	DefaultHookTimeout      = 10 * time.Second
	DefaultDiagnosticsAddr  = ":8081"
	DefaultDiagnosticsPath  = "/debug"
	DefaultTelemetryTarget  = "localhost:4318"
	DefaultMetricInterval   = 15 * time.Second
	DefaultTraceSampleRatio = 1.0
)

// WiringConfig controls how an application wires and runs its components.
type WiringConfig struct {
	// KeepWaiting leaves deferred resolution enabled after finalization, so
	// components submitted late may still wait for providers.
	KeepWaiting bool          `yaml:"keep_waiting" mapstructure:"keep_waiting"`
	HookTimeout time.Duration `yaml:"hook_timeout" mapstructure:"hook_timeout"`

	Diagnostics DiagnosticsConfig `yaml:"diagnostics" mapstructure:"diagnostics"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
}

// DiagnosticsConfig configures the debug HTTP endpoints.
type DiagnosticsConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
}

// TelemetryConfig configures OTLP export of wiring traces and metrics.
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRatio    float64       `yaml:"sample_ratio" mapstructure:"sample_ratio"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

// ApplyDefaults fills in unset values.
func (c *WiringConfig) ApplyDefaults() {
	if c.HookTimeout == 0 {
		c.HookTimeout = DefaultHookTimeout
	}
	if c.Diagnostics.Addr == "" {
		c.Diagnostics.Addr = DefaultDiagnosticsAddr
	}
	if c.Diagnostics.BasePath == "" {
		c.Diagnostics.BasePath = DefaultDiagnosticsPath
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = DefaultTelemetryTarget
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = DefaultTraceSampleRatio
	}
	if c.Telemetry.MetricInterval == 0 {
		c.Telemetry.MetricInterval = DefaultMetricInterval
	}
}

// Validate checks the wiring settings.
func (c *WiringConfig) Validate() error {
	if c.HookTimeout < 0 {
		return fmt.Errorf("wiring.hook_timeout must not be negative (got: %s)", c.HookTimeout)
	}
	if c.Diagnostics.Enabled && c.Diagnostics.Addr == "" {
		return fmt.Errorf("wiring.diagnostics.addr is required when diagnostics are enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("wiring.telemetry.sample_ratio must be within [0, 1] (got: %g)", c.Telemetry.SampleRatio)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("wiring.telemetry.endpoint is required when telemetry is enabled")
	}
	return nil
}
