package netsuite

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/clients"
	"github.com/syphon-data/syphon/pkg/config"
	"github.com/syphon-data/syphon/pkg/connector/base"
	"github.com/syphon-data/syphon/pkg/connector/core"
	"github.com/syphon-data/syphon/pkg/errors"
	"github.com/syphon-data/syphon/pkg/metrics"
	"github.com/syphon-data/syphon/pkg/observability"
	"github.com/syphon-data/syphon/pkg/pool"
	"github.com/syphon-data/syphon/pkg/state"
)

// Source extracts NetSuite entities through the REST record API. Streams
// run sequentially; within a stream, pages are walked in strict offset
// order and every index record is fully expanded before the next one.
type Source struct {
	*base.BaseConnector

	cfg     *sourceConfig
	streams []StreamSpec
	tokens  clients.TokenProvider
	handler *base.ErrorHandler

	mu       sync.Mutex
	st       core.State
	position core.Position
}

// NewSource creates an uninitialized NetSuite source.
func NewSource(cfg *config.BaseConfig) (core.Source, error) {
	s := &Source{
		BaseConnector: base.NewBaseConnector(cfg.Name, "netsuite"),
		st:            core.State{},
	}
	return s, nil
}

// Initialize validates configuration and wires the token provider.
func (s *Source) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := s.BaseConnector.Initialize(ctx, cfg); err != nil {
		return err
	}

	sc, err := parseSourceConfig(cfg)
	if err != nil {
		return err
	}
	s.cfg = sc
	s.streams = selectStreams(sc.Streams)
	if len(s.streams) == 0 {
		return errors.New(errors.ErrorTypeConfig, "no known streams selected")
	}

	s.tokens = clients.NewRefreshTokenProvider(&clients.OAuth2Config{
		TokenURL:     sc.TokenURL,
		ClientID:     sc.ClientID,
		ClientSecret: sc.ClientSecret,
		RefreshToken: sc.RefreshToken,
	}, s.HTTPClient(), s.Logger())

	s.handler = base.NewErrorHandler(s.Logger(), 0)

	s.HealthChecker().Register("token", func(ctx context.Context) error {
		_, err := s.tokens.AccessToken(ctx)
		return err
	})

	s.Logger().Info("netsuite source ready",
		zap.String("account", sc.AccountID),
		zap.Int("streams", len(s.streams)))
	return nil
}

// Discover returns the schema of the configured streams.
func (s *Source) Discover(ctx context.Context) (*core.Schema, error) {
	schema := &core.Schema{Name: "netsuite"}
	for _, spec := range s.streams {
		schema.Streams = append(schema.Streams, core.StreamSchema{
			Name:           spec.Name,
			PrimaryKey:     spec.PrimaryKey,
			ReplicationKey: spec.ReplicationKey,
		})
	}
	return schema, nil
}

// Read starts extraction and returns the record stream. Extraction runs
// in a background goroutine; the stream closes when all entity streams
// finished or a run-fatal error occurred.
func (s *Source) Read(ctx context.Context) (*core.RecordStream, error) {
	stream := core.NewRecordStream(s.Config().Performance.BufferSize)
	go s.extract(ctx, stream)
	return stream, nil
}

// extract runs every configured stream in order. A stream-fatal error
// aborts only that stream; authentication failures abort the whole run.
func (s *Source) extract(ctx context.Context, out *core.RecordStream) {
	defer out.Close()

	for _, spec := range s.streams {
		metrics.Default().ActiveStreams.Inc()
		err := s.extractStream(ctx, spec, out)
		metrics.Default().ActiveStreams.Dec()

		if err == nil {
			continue
		}

		if errors.IsType(err, errors.ErrorTypeAuthentication) || ctx.Err() != nil {
			s.Logger().Error("aborting run", zap.String("stream", spec.Name), zap.Error(err))
			select {
			case out.Errors <- err:
			default:
			}
			return
		}

		// Stream-fatal: report and move on to sibling streams.
		s.RecordError()
		s.Logger().Error("stream aborted", zap.String("stream", spec.Name), zap.Error(err))
		select {
		case out.Errors <- err:
		default:
		}
	}
}

// extractStream walks one stream end to end. The cursor advances only
// after the stream completes, so a failed run re-extracts from the
// previous watermark.
func (s *Source) extractStream(ctx context.Context, spec StreamSpec, out *core.RecordStream) error {
	ctx, span := observability.StartStreamSpan(ctx, spec.Name)
	defer span.End()

	s.Progress().SetStream(spec.Name)
	cursor := s.cursorFor(spec)
	maxSeen := ""

	fetcher := NewIndexFetcher(spec, s.cfg.BaseURL, s.cfg.UserAgent, s.HTTPClient(),
		s.tokens, s.RetryPolicy(), s.Config().Reliability.ExtraRetriableStatuses, s.Logger())
	expander := NewDetailExpander(spec, s.cfg.BaseURL, s.cfg.UserAgent, s.HTTPClient(),
		s.tokens, s.RetryPolicy(), s.Config().Reliability.ExtraRetriableStatuses, s.Logger())

	s.Logger().Info("stream extraction started",
		zap.String("stream", spec.Name),
		zap.Time("cursor", cursor))

	err := fetcher.Fetch(ctx, cursor, func(idx IndexRecord) error {
		row, err := expander.Expand(ctx, idx)
		if err != nil {
			// Per-record isolation: only fatal classifications abort the
			// stream; exhausted transient failures skip the record.
			if s.handler.Handle(err, spec.Name) == base.ActionAbort {
				return err
			}
			metrics.Default().RecordsSkipped.WithLabelValues(spec.Name).Inc()
			s.Logger().Warn("detail fetch failed, skipping record",
				zap.String("stream", spec.Name),
				zap.String("id", idx.ID),
				zap.Error(err))
			return nil
		}
		if row == nil {
			metrics.Default().RecordsSkipped.WithLabelValues(spec.Name).Inc()
			return nil
		}

		if spec.ReplicationKey != "" {
			if v, ok := row[spec.ReplicationKey].(string); ok && v > maxSeen {
				maxSeen = v
			}
		}

		record := pool.NewRecordFromPool("netsuite")
		record.ID = idx.ID
		for k, v := range row {
			record.SetData(k, v)
		}
		record.SetStreamID(spec.Name)
		record.SetOffset(fetcher.Offset())
		record.SetTimestamp(time.Now().UTC())

		select {
		case <-ctx.Done():
			record.Release()
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "extraction cancelled")
		case out.Records <- record:
		}

		s.RecordProcessed(1)
		metrics.Default().RecordsExtracted.WithLabelValues(spec.Name).Inc()
		s.setPosition(spec.Name, fetcher.Offset(), fetcher.Records())
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.st = state.Advance(s.st, spec.Name, maxSeen)
	s.mu.Unlock()

	s.Logger().Info("stream extraction finished",
		zap.String("stream", spec.Name),
		zap.Int64("records", fetcher.Records()),
		zap.String("cursor", maxSeen))
	return nil
}

// cursorFor resolves the incremental lower bound for a stream: the
// persisted cursor when present, the configured start date otherwise.
func (s *Source) cursorFor(spec StreamSpec) time.Time {
	if spec.ReplicationKey == "" {
		return time.Time{}
	}

	s.mu.Lock()
	cur := s.st[spec.Name].Cursor
	s.mu.Unlock()

	if cur != "" {
		if t, err := parseTimestamp(cur); err == nil {
			return t
		}
		s.Logger().Warn("unparseable cursor, falling back to start date",
			zap.String("stream", spec.Name),
			zap.String("cursor", cur))
	}
	return s.cfg.StartDate
}

// GetState returns a copy of the per-stream cursors.
func (s *Source) GetState() core.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(core.State, len(s.st))
	for k, v := range s.st {
		out[k] = v
	}
	return out
}

// SetState restores cursors from a previous run.
func (s *Source) SetState(st core.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = make(core.State, len(st))
	for k, v := range st {
		s.st[k] = v
	}
	return nil
}

// GetPosition returns progress within the active stream.
func (s *Source) GetPosition() core.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Source) setPosition(stream string, offset, records int64) {
	s.mu.Lock()
	s.position = core.Position{Stream: stream, Offset: offset, Records: records}
	s.mu.Unlock()
}
