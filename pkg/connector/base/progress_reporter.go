package base

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ProgressReporter logs extraction throughput at a fixed interval so long
// runs are observable without flooding the log per record.
type ProgressReporter struct {
	name   string
	logger *zap.Logger

	total     int64
	lastTotal int64
	stream    atomic.Value // string

	stopOnce sync.Once
	stop     chan struct{}
	started  sync.Once
}

// NewProgressReporter creates a reporter. Reporting starts on first Add.
func NewProgressReporter(name string, logger *zap.Logger) *ProgressReporter {
	pr := &ProgressReporter{
		name:   name,
		logger: logger,
		stop:   make(chan struct{}),
	}
	pr.stream.Store("")
	return pr
}

// SetStream records which stream is currently extracting.
func (pr *ProgressReporter) SetStream(stream string) {
	pr.stream.Store(stream)
}

// Add counts n processed records and starts the reporting loop if needed.
func (pr *ProgressReporter) Add(n int64) {
	atomic.AddInt64(&pr.total, n)
	pr.started.Do(func() {
		go pr.loop(30 * time.Second)
	})
}

// Total returns the running record count.
func (pr *ProgressReporter) Total() int64 {
	return atomic.LoadInt64(&pr.total)
}

// Stop halts the reporting loop and logs a final summary.
func (pr *ProgressReporter) Stop() {
	pr.stopOnce.Do(func() {
		close(pr.stop)
		if total := atomic.LoadInt64(&pr.total); total > 0 {
			pr.logger.Info("extraction progress (final)",
				zap.Int64("records", total))
		}
	})
}

func (pr *ProgressReporter) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-pr.stop:
			return
		case <-ticker.C:
			total := atomic.LoadInt64(&pr.total)
			delta := total - atomic.SwapInt64(&pr.lastTotal, total)
			pr.logger.Info("extraction progress",
				zap.String("stream", pr.stream.Load().(string)),
				zap.Int64("records", total),
				zap.Int64("records_since_last", delta),
				zap.Float64("records_per_sec", float64(delta)/interval.Seconds()))
		}
	}
}
