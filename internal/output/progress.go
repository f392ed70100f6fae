// Package output renders live progress and the final run report.
package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/loadprobe/internal/metrics"
)

// ProgressReporter periodically displays in-flight run metrics. Each tick
// performs only a cheap collector snapshot; ticks never overlap because a
// single goroutine drives the ticker. Stop is idempotent and is driven by
// run teardown, never by the run itself.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and waits for the reporting goroutine to exit.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			elapsed := time.Since(p.start)
			stats := p.collector.Stats(elapsed)
			line := fmt.Sprintf("\rRequests: %d | Successes: %d | Failures: %d | RPS: %.1f | P99: %.1fms",
				stats.Total, stats.Successes, stats.Failures, stats.RequestsPerSec, stats.P99LatencyMs)
			if n := len(stats.ByResource); n > 0 {
				line += fmt.Sprintf(" | Resources: %d", n)
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
