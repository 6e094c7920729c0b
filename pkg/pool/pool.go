// Package pool provides unified object pooling for Syphon. Records flow
// through every stage of an extraction pipeline, so they are recycled
// through a global pool to keep garbage collection pressure flat no matter
// how many pages a stream walks.
//
// Example usage:
//
//	record := pool.GetRecord()
//	defer record.Release()
//
//	record.SetData("id", "42")
//	record.SetData("displayName", "Widget")
package pool

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pool is a generic, type-safe object pool. It wraps sync.Pool with
// statistics and an optional reset hook applied before reuse.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
	}
}

// New creates a pool with a factory and an optional reset function.
func New[T any](factory func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return factory()
	}
	return p
}

// Get retrieves an object from the pool, allocating when empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put resets the object and returns it to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns total allocations and the number of objects checked out.
func (p *Pool[T]) Stats() (allocated, inUse int64) {
	return atomic.LoadInt64(&p.stats.allocated), atomic.LoadInt64(&p.stats.inUse)
}

// RecordMetadata carries provenance for a record: which connector produced
// it, which stream it belongs to, and when it was extracted.
type RecordMetadata struct {
	// Source identifies the origin connector
	Source string `json:"source,omitempty"`
	// StreamID identifies the logical stream (entity) within the source
	StreamID string `json:"stream_id,omitempty"`
	// Offset is the page offset the record was extracted at
	Offset int64 `json:"offset,omitempty"`
	// Timestamp is when the record was extracted
	Timestamp time.Time `json:"timestamp"`
	// Custom holds connector-specific metadata
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// Record is the unified record type passed between sources, transforms and
// destinations. Records should be obtained from the global pool via
// GetRecord rather than constructed directly.
type Record struct {
	// ID is a unique identifier for the record
	ID string `json:"id"`
	// Data contains the record payload
	Data map[string]interface{} `json:"data"`
	// Metadata contains provenance and timing information
	Metadata RecordMetadata `json:"metadata"`
}

// RecordPool recycles Record objects. Data maps are pre-sized for typical
// ERP detail payloads and cleared, not reallocated, on reuse.
var RecordPool = New(
	func() *Record {
		return &Record{Data: make(map[string]interface{}, 16)}
	},
	func(r *Record) {
		r.ID = ""
		for k := range r.Data {
			delete(r.Data, k)
		}
		if r.Metadata.Custom != nil {
			for k := range r.Metadata.Custom {
				delete(r.Metadata.Custom, k)
			}
		}
		r.Metadata = RecordMetadata{Custom: r.Metadata.Custom}
	},
)

// GetRecord returns a pooled record.
func GetRecord() *Record {
	return RecordPool.Get()
}

// PutRecord returns a record to the pool.
func PutRecord(record *Record) {
	RecordPool.Put(record)
}

// NewRecordFromPool returns a pooled record stamped with its source.
func NewRecordFromPool(source string) *Record {
	r := RecordPool.Get()
	r.Metadata.Source = source
	return r
}

// Release returns the record to the global pool.
func (r *Record) Release() {
	PutRecord(r)
}

// SetData sets a payload field.
func (r *Record) SetData(key string, value interface{}) {
	if r.Data == nil {
		r.Data = make(map[string]interface{}, 16)
	}
	r.Data[key] = value
}

// GetData retrieves a payload field.
func (r *Record) GetData(key string) (interface{}, bool) {
	if r.Data == nil {
		return nil, false
	}
	v, ok := r.Data[key]
	return v, ok
}

// SetMetadata sets a custom metadata field.
func (r *Record) SetMetadata(key string, value interface{}) {
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = make(map[string]interface{}, 4)
	}
	r.Metadata.Custom[key] = value
}

// SetTimestamp records the extraction time.
func (r *Record) SetTimestamp(t time.Time) {
	r.Metadata.Timestamp = t
}

// SetStreamID tags the record with its stream.
func (r *Record) SetStreamID(streamID string) {
	r.Metadata.StreamID = streamID
}

// SetOffset records the page offset the record came from.
func (r *Record) SetOffset(offset int64) {
	r.Metadata.Offset = offset
}

// batchPool recycles record batch slices.
var batchPool = sync.Pool{
	New: func() interface{} {
		s := make([]*Record, 0, 1024)
		return &s
	},
}

// GetBatchSlice returns a pooled batch slice with at least the given capacity.
func GetBatchSlice(capacity int) []*Record {
	sp := batchPool.Get().(*[]*Record)
	s := *sp
	if cap(s) < capacity {
		return make([]*Record, 0, capacity)
	}
	return s[:0]
}

// PutBatchSlice returns a batch slice to the pool. The records themselves
// are not released; ownership stays with the caller.
func PutBatchSlice(batch []*Record) {
	batch = batch[:0]
	batchPool.Put(&batch)
}

// mapPool recycles generic payload maps used while decoding responses.
var mapPool = sync.Pool{
	New: func() interface{} {
		return make(map[string]interface{}, 16)
	},
}

// GetMap returns a pooled map.
func GetMap() map[string]interface{} {
	return mapPool.Get().(map[string]interface{})
}

// PutMap clears and returns a map to the pool.
func PutMap(m map[string]interface{}) {
	for k := range m {
		delete(m, k)
	}
	mapPool.Put(m)
}
