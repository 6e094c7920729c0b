// Package syphon extracts business records from ERP REST APIs into local
// files, with incremental cursor tracking so repeated runs only pull what
// changed.
//
// # Architecture
//
// A pipeline connects one source to one destination:
//
//   - Sources walk an entity's list endpoint page by page, expand each
//     index entry through the per-id detail endpoint, and emit pooled
//     records (pool.Record) over a bounded channel.
//   - Destinations consume the channel and write JSON Lines or JSON array
//     files, one per stream.
//   - A file-backed state store persists each stream's replication cursor
//     between runs.
//
// All connectors share one configuration shape (config.BaseConfig), one
// error taxonomy (pkg/errors) and one HTTP client stack with rate
// limiting and circuit breaking (pkg/clients).
//
// # Quick Start
//
// Define a pipeline in YAML and run it:
//
//	syphon run pipeline.yaml --state state.json
//
// See examples/ for a complete NetSuite extraction pipeline.
package syphon
