// Package config provides the unified configuration system for Syphon
// connectors. Every source and destination embeds BaseConfig, so common
// concerns like timeouts, retries and credentials are configured the same
// way everywhere.
package config

import (
	"fmt"
	"time"
)

// BaseConfig is the configuration every connector shares.
type BaseConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name"`
	// Type specifies the connector type (e.g., "netsuite", "jsonfile")
	Type string `yaml:"type" json:"type"`
	// Version is the connector version
	Version string `yaml:"version" json:"version"`

	// Performance controls batching and concurrency
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	// Timeouts controls request and connection deadlines
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`
	// Reliability controls retries, rate limiting and circuit breaking
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`
	// Security holds credentials and TLS settings
	Security SecurityConfig `yaml:"security" json:"security"`
	// Observability controls logging, metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// PerformanceConfig controls throughput-related settings.
type PerformanceConfig struct {
	// BatchSize is the number of records per batch
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// BufferSize is the channel buffer between pipeline stages
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
	// MaxConcurrency caps parallel work where a connector supports it
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
	// FlushInterval is the maximum time a partial batch waits
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

// TimeoutConfig controls deadlines.
type TimeoutConfig struct {
	// Request is the per-request timeout
	Request time.Duration `yaml:"request" json:"request"`
	// Connection is the dial timeout
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Idle is the idle connection timeout
	Idle time.Duration `yaml:"idle" json:"idle"`
	// KeepAlive is the TCP keep-alive interval
	KeepAlive time.Duration `yaml:"keep_alive" json:"keep_alive"`
}

// ReliabilityConfig controls failure handling.
type ReliabilityConfig struct {
	// RetryAttempts is the maximum number of retries per request
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial backoff delay
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// RetryMultiplier is the backoff growth factor
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	// MaxRetryDelay caps the backoff delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
	// CircuitBreaker enables the circuit breaker
	CircuitBreaker bool `yaml:"circuit_breaker" json:"circuit_breaker"`
	// RateLimitPerSec caps outgoing requests per second (0 = unlimited)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// ExtraRetriableStatuses lists HTTP statuses retried beyond 5xx and 429
	ExtraRetriableStatuses []int `yaml:"extra_retriable_statuses" json:"extra_retriable_statuses"`
}

// SecurityConfig holds credentials and TLS settings.
type SecurityConfig struct {
	// EnableTLS enables TLS verification settings below
	EnableTLS bool `yaml:"enable_tls" json:"enable_tls"`
	// TLSSkipVerify disables certificate verification
	TLSSkipVerify bool `yaml:"tls_skip_verify" json:"tls_skip_verify"`
	// AuthType selects the authentication scheme (e.g., "oauth2_refresh")
	AuthType string `yaml:"auth_type" json:"auth_type"`
	// Credentials holds connector-specific secrets
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
}

// ObservabilityConfig controls logging, metrics and tracing.
type ObservabilityConfig struct {
	// EnableMetrics enables the Prometheus endpoint
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing enables OpenTelemetry tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets the minimum log level
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewBaseConfig creates a config with production defaults applied.
func NewBaseConfig(name, connectorType string) *BaseConfig {
	cfg := &BaseConfig{
		Name:    name,
		Type:    connectorType,
		Version: "1.0.0",
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with production defaults.
func (c *BaseConfig) ApplyDefaults() {
	if c.Performance.BatchSize == 0 {
		c.Performance.BatchSize = 1000
	}
	if c.Performance.BufferSize == 0 {
		c.Performance.BufferSize = 10000
	}
	if c.Performance.MaxConcurrency == 0 {
		c.Performance.MaxConcurrency = 8
	}
	if c.Performance.FlushInterval == 0 {
		c.Performance.FlushInterval = 5 * time.Second
	}

	if c.Timeouts.Request == 0 {
		c.Timeouts.Request = 30 * time.Second
	}
	if c.Timeouts.Connection == 0 {
		c.Timeouts.Connection = 10 * time.Second
	}
	if c.Timeouts.Idle == 0 {
		c.Timeouts.Idle = 90 * time.Second
	}
	if c.Timeouts.KeepAlive == 0 {
		c.Timeouts.KeepAlive = 30 * time.Second
	}

	if c.Reliability.RetryAttempts == 0 {
		c.Reliability.RetryAttempts = 3
	}
	if c.Reliability.RetryDelay == 0 {
		c.Reliability.RetryDelay = time.Second
	}
	if c.Reliability.RetryMultiplier == 0 {
		c.Reliability.RetryMultiplier = 2.0
	}
	if c.Reliability.MaxRetryDelay == 0 {
		c.Reliability.MaxRetryDelay = 30 * time.Second
	}

	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
}

// Validate checks the configuration for completeness.
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.Performance.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative")
	}
	if c.Reliability.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must not be negative")
	}
	return nil
}

// Credential returns a named credential, or an error naming the missing key.
func (c *BaseConfig) Credential(key string) (string, error) {
	v, ok := c.Security.Credentials[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing required credential %q", key)
	}
	return v, nil
}
