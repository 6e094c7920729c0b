// Package registry maps connector type names to factories. Connectors
// register themselves from init functions; the CLI looks them up by the
// type named in the pipeline config.
package registry

import (
	"sort"
	"sync"

	"github.com/syphon-data/syphon/pkg/config"
	"github.com/syphon-data/syphon/pkg/connector/core"
	"github.com/syphon-data/syphon/pkg/errors"
)

// SourceFactory creates a source from its configuration.
type SourceFactory func(cfg *config.BaseConfig) (core.Source, error)

// DestinationFactory creates a destination from its configuration.
type DestinationFactory func(cfg *config.BaseConfig) (core.Destination, error)

var (
	mu           sync.RWMutex
	sources      = make(map[string]SourceFactory)
	destinations = make(map[string]DestinationFactory)
)

// RegisterSource registers a source factory under a type name.
// Duplicate registrations panic; they indicate a wiring bug.
func RegisterSource(name string, factory SourceFactory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := sources[name]; exists {
		panic("duplicate source registration: " + name)
	}
	sources[name] = factory
}

// RegisterDestination registers a destination factory under a type name.
func RegisterDestination(name string, factory DestinationFactory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := destinations[name]; exists {
		panic("duplicate destination registration: " + name)
	}
	destinations[name] = factory
}

// CreateSource instantiates the named source type.
func CreateSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	mu.RLock()
	factory, ok := sources[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown source type: "+name)
	}
	return factory(cfg)
}

// CreateDestination instantiates the named destination type.
func CreateDestination(name string, cfg *config.BaseConfig) (core.Destination, error) {
	mu.RLock()
	factory, ok := destinations[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown destination type: "+name)
	}
	return factory(cfg)
}

// ListSources returns registered source type names, sorted.
func ListSources() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListDestinations returns registered destination type names, sorted.
func ListDestinations() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(destinations))
	for name := range destinations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
