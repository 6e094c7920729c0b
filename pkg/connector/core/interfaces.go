// Package core defines the connector contracts every source and
// destination implements.
package core

import (
	"context"
	"time"

	"github.com/syphon-data/syphon/pkg/config"
	"github.com/syphon-data/syphon/pkg/pool"
)

// Connector is the base interface shared by sources and destinations.
type Connector interface {
	// Initialize prepares the connector with its configuration
	Initialize(ctx context.Context, cfg *config.BaseConfig) error
	// Close releases resources
	Close(ctx context.Context) error
	// Health reports connector health
	Health(ctx context.Context) error
	// Metrics returns connector-level counters
	Metrics() map[string]interface{}
}

// Source extracts records from an upstream system.
type Source interface {
	Connector

	// Discover returns the schema of the streams this source exposes
	Discover(ctx context.Context) (*Schema, error)
	// Read starts extraction and returns a stream of records
	Read(ctx context.Context) (*RecordStream, error)
	// GetState returns the source's resumable state
	GetState() State
	// SetState restores previously persisted state
	SetState(state State) error
	// GetPosition returns the current position within the active stream
	GetPosition() Position
}

// Destination writes records to a downstream system.
type Destination interface {
	Connector

	// CreateSchema prepares the destination for the source schema
	CreateSchema(ctx context.Context, schema *Schema) error
	// Write consumes a record stream until it closes
	Write(ctx context.Context, stream *RecordStream) error
	// Flush forces buffered records out
	Flush(ctx context.Context) error
}

// RecordStream carries records and errors between pipeline stages.
// The producer closes Records when extraction finishes.
type RecordStream struct {
	Records chan *pool.Record
	Errors  chan error
}

// NewRecordStream creates a stream with the given buffer size.
func NewRecordStream(bufferSize int) *RecordStream {
	return &RecordStream{
		Records: make(chan *pool.Record, bufferSize),
		Errors:  make(chan error, 1),
	}
}

// Close closes both channels. Only the producer may call it.
func (rs *RecordStream) Close() {
	close(rs.Records)
	close(rs.Errors)
}

// Schema describes the streams a source exposes.
type Schema struct {
	// Name identifies the schema (usually the connector name)
	Name string `json:"name"`
	// Streams lists the entity streams
	Streams []StreamSchema `json:"streams"`
}

// StreamSchema describes one entity stream.
type StreamSchema struct {
	// Name is the stream name (e.g., "customers")
	Name string `json:"name"`
	// PrimaryKey lists the key fields
	PrimaryKey []string `json:"primary_key"`
	// ReplicationKey is the field incremental extraction orders by
	ReplicationKey string `json:"replication_key,omitempty"`
	// Fields maps field names to their JSON types
	Fields map[string]string `json:"fields,omitempty"`
}

// State is the persistable extraction state: per-stream cursors keyed by
// stream name.
type State map[string]StreamState

// StreamState is one stream's resumable cursor.
type StreamState struct {
	// Cursor is the highest replication key value fully extracted
	Cursor string `json:"cursor,omitempty"`
	// UpdatedAt is when the cursor last advanced
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Position locates progress within the active stream.
type Position struct {
	// Stream is the stream being extracted
	Stream string `json:"stream"`
	// Offset is the current page offset
	Offset int64 `json:"offset"`
	// Records is the count emitted so far for this stream
	Records int64 `json:"records"`
}
