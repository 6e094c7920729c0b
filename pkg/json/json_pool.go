// Package json provides JSON serialization with pooled buffers. All
// encoding and decoding in Syphon goes through this package so the
// underlying codec can be swapped in one place.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/syphon-data/syphon/pkg/pool"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// NewEncoder creates an encoder writing to w. HTML escaping is disabled;
// extraction output is consumed by machines, not browsers.
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// NewDecoder creates a decoder reading from r. UseNumber keeps ERP numeric
// fields (internal IDs, amounts) from collapsing into float64.
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// Marshal is a high-performance drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a high-performance drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalToBuffer marshals v into a pooled buffer. The caller must return
// the buffer with PutBuffer.
func MarshalToBuffer(v interface{}) (*bytes.Buffer, error) {
	buf := GetBuffer()
	enc := NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		PutBuffer(buf)
		return nil, err
	}
	return buf, nil
}

// DecodeInto decodes r into a payload map, preserving numbers.
func DecodeInto(r io.Reader, m map[string]interface{}) error {
	return NewDecoder(r).Decode(&m)
}

// MarshalRecord serializes a record's payload (not its metadata envelope).
func MarshalRecord(record *pool.Record) ([]byte, error) {
	return gojson.Marshal(record.Data)
}
