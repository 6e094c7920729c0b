// Package base provides the shared scaffolding connectors build on:
// lifecycle, retries, health checks and progress reporting.
package base

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/clients"
	"github.com/syphon-data/syphon/pkg/config"
	"github.com/syphon-data/syphon/pkg/errors"
	"github.com/syphon-data/syphon/pkg/logger"
)

// BaseConnector carries the machinery every connector needs. Concrete
// sources and destinations embed it and call its lifecycle methods from
// their own.
type BaseConnector struct {
	name          string
	connectorType string

	config      *config.BaseConfig
	log         *zap.Logger
	httpClient  *clients.HTTPClient
	retryPolicy *RetryPolicy
	health      *HealthChecker
	progress    *ProgressReporter

	recordsProcessed int64
	errorCount       int64
	startTime        time.Time
	initialized      bool
}

// NewBaseConnector creates the scaffolding for a named connector.
func NewBaseConnector(name, connectorType string) *BaseConnector {
	return &BaseConnector{
		name:          name,
		connectorType: connectorType,
	}
}

// Initialize wires the config-driven components: logger, HTTP client,
// retry policy, health checker and progress reporter.
func (bc *BaseConnector) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid connector config")
	}

	bc.config = cfg
	bc.log = logger.Get().With(
		zap.String("connector", bc.name),
		zap.String("type", bc.connectorType),
	)

	httpClient, err := clients.NewHTTPClient(clients.HTTPConfigFromBase(cfg), bc.log)
	if err != nil {
		return err
	}
	bc.httpClient = httpClient

	bc.retryPolicy = NewRetryPolicy(
		cfg.Reliability.RetryAttempts+1,
		cfg.Reliability.RetryDelay,
		cfg.Reliability.MaxRetryDelay,
		cfg.Reliability.RetryMultiplier,
		bc.log,
	)
	bc.health = NewHealthChecker(bc.name, bc.log)
	bc.progress = NewProgressReporter(bc.name, bc.log)

	bc.startTime = time.Now()
	bc.initialized = true

	bc.log.Info("connector initialized")
	return nil
}

// Close tears down the connector scaffolding.
func (bc *BaseConnector) Close(ctx context.Context) error {
	if !bc.initialized {
		return nil
	}
	bc.progress.Stop()
	bc.log.Info("connector closed",
		zap.Int64("records_processed", atomic.LoadInt64(&bc.recordsProcessed)),
		zap.Int64("errors", atomic.LoadInt64(&bc.errorCount)),
		zap.Duration("uptime", time.Since(bc.startTime)))
	bc.initialized = false
	return nil
}

// Health reports connector health.
func (bc *BaseConnector) Health(ctx context.Context) error {
	if !bc.initialized {
		return errors.New(errors.ErrorTypeHealth, "connector not initialized")
	}
	return bc.health.Check(ctx)
}

// Metrics returns connector-level counters.
func (bc *BaseConnector) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"records_processed": atomic.LoadInt64(&bc.recordsProcessed),
		"errors":            atomic.LoadInt64(&bc.errorCount),
		"uptime_seconds":    time.Since(bc.startTime).Seconds(),
	}
}

// RecordProcessed increments the processed counter by n.
func (bc *BaseConnector) RecordProcessed(n int64) {
	atomic.AddInt64(&bc.recordsProcessed, n)
	bc.progress.Add(n)
}

// RecordError increments the error counter.
func (bc *BaseConnector) RecordError() {
	atomic.AddInt64(&bc.errorCount, 1)
}

// Config returns the connector configuration.
func (bc *BaseConnector) Config() *config.BaseConfig { return bc.config }

// Logger returns the connector logger.
func (bc *BaseConnector) Logger() *zap.Logger { return bc.log }

// HTTPClient returns the shared HTTP client.
func (bc *BaseConnector) HTTPClient() *clients.HTTPClient { return bc.httpClient }

// RetryPolicy returns the configured retry policy.
func (bc *BaseConnector) RetryPolicy() *RetryPolicy { return bc.retryPolicy }

// HealthChecker returns the health checker for registering probes.
func (bc *BaseConnector) HealthChecker() *HealthChecker { return bc.health }

// Progress returns the progress reporter.
func (bc *BaseConnector) Progress() *ProgressReporter { return bc.progress }
