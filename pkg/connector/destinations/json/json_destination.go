// Package json implements a JSON file destination. Records are written as
// JSON Lines (one object per line) or a single JSON array, one file per
// stream or one combined file.
package json

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/config"
	"github.com/syphon-data/syphon/pkg/connector/base"
	"github.com/syphon-data/syphon/pkg/connector/core"
	"github.com/syphon-data/syphon/pkg/errors"
	jsonpool "github.com/syphon-data/syphon/pkg/json"
	"github.com/syphon-data/syphon/pkg/pool"
)

// Format selects the output layout.
type Format string

const (
	// FormatLines writes one JSON object per line (JSONL)
	FormatLines Format = "lines"
	// FormatArray writes a single JSON array
	FormatArray Format = "array"
)

// Destination writes records to local JSON files, one file per stream.
type Destination struct {
	*base.BaseConnector

	dir      string
	format   Format
	envelope bool

	mu      sync.Mutex
	files   map[string]*streamFile
	written int64
}

// streamFile is one open output file with its buffered writer.
type streamFile struct {
	file    *os.File
	writer  *bufio.Writer
	records int64
}

// NewDestination creates an uninitialized JSON file destination.
func NewDestination(cfg *config.BaseConfig) (core.Destination, error) {
	return &Destination{
		BaseConnector: base.NewBaseConnector(cfg.Name, "jsonfile"),
		files:         make(map[string]*streamFile),
	}, nil
}

// Initialize reads the output directory and format from credentials.
func (d *Destination) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := d.BaseConnector.Initialize(ctx, cfg); err != nil {
		return err
	}

	d.dir = cfg.Security.Credentials["output_dir"]
	if d.dir == "" {
		d.dir = "output"
	}

	d.format = Format(cfg.Security.Credentials["format"])
	if d.format == "" {
		d.format = FormatLines
	}
	if d.format != FormatLines && d.format != FormatArray {
		return errors.New(errors.ErrorTypeConfig, "format must be lines or array")
	}

	d.envelope = cfg.Security.Credentials["envelope"] == "true"

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to create output directory")
	}

	d.Logger().Info("json destination ready",
		zap.String("dir", d.dir),
		zap.String("format", string(d.format)))
	return nil
}

// CreateSchema is a no-op; files are created lazily per stream.
func (d *Destination) CreateSchema(ctx context.Context, schema *core.Schema) error {
	return nil
}

// Write consumes the record stream until it closes, releasing each record
// back to the pool after serialization.
func (d *Destination) Write(ctx context.Context, stream *core.RecordStream) error {
	errs := stream.Errors
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "write cancelled")
		case record, ok := <-stream.Records:
			if !ok {
				return d.Flush(ctx)
			}
			err := d.writeRecord(record)
			record.Release()
			if err != nil {
				d.RecordError()
				return err
			}
			d.RecordProcessed(1)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				d.Logger().Warn("upstream error", zap.Error(err))
			}
		}
	}
}

// writeRecord serializes one record to its stream's file.
func (d *Destination) writeRecord(record *pool.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sf, err := d.fileFor(record.Metadata.StreamID)
	if err != nil {
		return err
	}

	var payload interface{} = record.Data
	if d.envelope {
		payload = record
	}

	data, err := jsonpool.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode record")
	}

	if d.format == FormatArray {
		if sf.records == 0 {
			if _, err := sf.writer.WriteString("[\n"); err != nil {
				return errors.Wrap(err, errors.ErrorTypeInternal, "write failed")
			}
		} else {
			if _, err := sf.writer.WriteString(",\n"); err != nil {
				return errors.Wrap(err, errors.ErrorTypeInternal, "write failed")
			}
		}
	}

	if _, err := sf.writer.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "write failed")
	}
	if d.format == FormatLines {
		if err := sf.writer.WriteByte('\n'); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "write failed")
		}
	}

	sf.records++
	d.written++
	return nil
}

// fileFor returns the open file for a stream, creating it on first use.
// Caller holds mu.
func (d *Destination) fileFor(stream string) (*streamFile, error) {
	if stream == "" {
		stream = "records"
	}
	if sf, ok := d.files[stream]; ok {
		return sf, nil
	}

	ext := ".jsonl"
	if d.format == FormatArray {
		ext = ".json"
	}
	path := filepath.Join(d.dir, stream+ext)

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create output file").
			WithDetail("path", path)
	}

	sf := &streamFile{
		file:   file,
		writer: bufio.NewWriterSize(file, 256*1024),
	}
	d.files[stream] = sf
	return sf, nil
}

// Flush forces buffered output to disk.
func (d *Destination) Flush(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for stream, sf := range d.files {
		if err := sf.writer.Flush(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "flush failed").
				WithDetail("stream", stream)
		}
	}
	return nil
}

// Close finishes array output, flushes and closes all files.
func (d *Destination) Close(ctx context.Context) error {
	d.mu.Lock()
	for stream, sf := range d.files {
		if d.format == FormatArray {
			if sf.records == 0 {
				sf.writer.WriteString("[")
			}
			sf.writer.WriteString("\n]\n")
		}
		if err := sf.writer.Flush(); err != nil {
			d.Logger().Error("flush on close failed",
				zap.String("stream", stream), zap.Error(err))
		}
		if err := sf.file.Close(); err != nil {
			d.Logger().Error("close failed",
				zap.String("stream", stream), zap.Error(err))
		}
	}
	d.files = make(map[string]*streamFile)
	written := d.written
	d.mu.Unlock()

	d.Logger().Info("json destination closed", zap.Int64("records_written", written))
	return d.BaseConnector.Close(ctx)
}
