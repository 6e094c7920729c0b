package base

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/errors"
)

// HealthProbe is a named check a connector registers, e.g. "token" or
// "upstream".
type HealthProbe func(ctx context.Context) error

// HealthChecker runs registered probes and aggregates their results.
type HealthChecker struct {
	name   string
	logger *zap.Logger

	probes map[string]HealthProbe
	mu     sync.RWMutex
}

// NewHealthChecker creates a health checker with no probes.
func NewHealthChecker(name string, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		name:   name,
		logger: logger,
		probes: make(map[string]HealthProbe),
	}
}

// Register adds a named probe, replacing any existing probe of that name.
func (hc *HealthChecker) Register(name string, probe HealthProbe) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.probes[name] = probe
}

// Check runs all probes; the first failure is returned.
func (hc *HealthChecker) Check(ctx context.Context) error {
	hc.mu.RLock()
	probes := make(map[string]HealthProbe, len(hc.probes))
	for name, probe := range hc.probes {
		probes[name] = probe
	}
	hc.mu.RUnlock()

	for name, probe := range probes {
		if err := probe(ctx); err != nil {
			hc.logger.Warn("health probe failed",
				zap.String("probe", name),
				zap.Error(err))
			return errors.Wrap(err, errors.ErrorTypeHealth, "health probe "+name+" failed")
		}
	}
	return nil
}
