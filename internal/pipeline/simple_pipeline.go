// Package pipeline connects a source to a destination and manages state
// persistence around the run.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/connector/core"
	"github.com/syphon-data/syphon/pkg/errors"
	"github.com/syphon-data/syphon/pkg/observability"
	"github.com/syphon-data/syphon/pkg/state"
)

// SimplePipeline streams records from one source into one destination.
// The source's record channel provides backpressure: extraction stalls
// when the destination falls behind.
type SimplePipeline struct {
	name   string
	source core.Source
	dest   core.Destination
	store  state.Store
	logger *zap.Logger
}

// NewSimplePipeline creates a pipeline. The state store is optional; a
// nil store means cursors are not persisted between runs.
func NewSimplePipeline(name string, source core.Source, dest core.Destination,
	store state.Store, logger *zap.Logger) *SimplePipeline {
	return &SimplePipeline{
		name:   name,
		source: source,
		dest:   dest,
		store:  store,
		logger: logger.With(zap.String("pipeline", name)),
	}
}

// Run executes the pipeline end to end: restore state, extract, write,
// persist the advanced cursors. State is saved even when the run partially
// failed, so completed streams do not re-extract next time.
func (p *SimplePipeline) Run(ctx context.Context) (*Result, error) {
	ctx, span := observability.StartPipelineSpan(ctx, p.name)
	defer span.End()

	start := time.Now()
	p.logger.Info("pipeline started")

	if p.store != nil {
		st, err := p.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if err := p.source.SetState(st); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to restore state")
		}
	}

	schema, err := p.source.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.dest.CreateSchema(ctx, schema); err != nil {
		return nil, err
	}

	stream, err := p.source.Read(ctx)
	if err != nil {
		return nil, err
	}

	writeErr := p.dest.Write(ctx, stream)

	if p.store != nil {
		if err := p.store.Save(ctx, p.source.GetState()); err != nil {
			p.logger.Error("failed to persist state", zap.Error(err))
			if writeErr == nil {
				writeErr = err
			}
		}
	}

	if writeErr != nil {
		return nil, writeErr
	}

	result := &Result{
		Streams:  len(schema.Streams),
		Duration: time.Since(start),
	}
	if m := p.dest.Metrics(); m != nil {
		if n, ok := m["records_processed"].(int64); ok {
			result.Records = n
		}
	}

	p.logger.Info("pipeline finished",
		zap.Int64("records", result.Records),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Close shuts down both connectors.
func (p *SimplePipeline) Close(ctx context.Context) error {
	var first error
	if err := p.dest.Close(ctx); err != nil {
		first = err
	}
	if err := p.source.Close(ctx); err != nil && first == nil {
		first = err
	}
	return first
}
