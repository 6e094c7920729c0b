package pipeline

import "time"

// Result summarizes a pipeline run.
type Result struct {
	// Records is the number of records the destination accepted
	Records int64 `json:"records"`
	// Streams is the number of streams the source exposed
	Streams int `json:"streams"`
	// Duration is the wall-clock run time
	Duration time.Duration `json:"duration"`
}
