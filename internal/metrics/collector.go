package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-request metrics in a thread-safe manner.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	byResource   map[string]int64
	errorsByType map[string]int64
	start        time.Time
}

// Stats represents aggregated metrics for the run.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requestsPerSec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"minLatencyMs"`
	MaxLatencyMs  float64 `json:"maxLatencyMs"`
	MeanLatencyMs float64 `json:"meanLatencyMs"`
	P50LatencyMs  float64 `json:"p50LatencyMs"`
	P90LatencyMs  float64 `json:"p90LatencyMs"`
	P99LatencyMs  float64 `json:"p99LatencyMs"`
	DurationMs    float64 `json:"durationMs"`

	ByResource map[string]int64 `json:"byResource,omitempty"`
	Errors     map[string]int64 `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		byResource:   make(map[string]int64),
		errorsByType: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the actual run start for RPS calculation. Reporters may be
// created before the run begins; calling Start resets the reference point.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// Elapsed returns the time since the run started.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// RecordRequest records a single request's resource, latency, and error state.
func (c *Collector) RecordRequest(resourcePath string, latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if resourcePath != "" {
		c.byResource[resourcePath]++
	}

	if err == nil {
		c.successes++
	} else {
		c.failures++
		errorType := fmt.Sprintf("%T", err)
		if len(errorType) > 30 {
			errorType = errorType[len(errorType)-30:]
		}
		c.errorsByType[errorType]++
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
		Duration:   elapsed,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	if elapsed > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.byResource) > 0 {
		stats.ByResource = make(map[string]int64, len(c.byResource))
		for path, count := range c.byResource {
			stats.ByResource[path] = count
		}
	}
	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int64, len(c.errorsByType))
		for typ, count := range c.errorsByType {
			stats.Errors[typ] = count
		}
	}

	stats.MinLatencyMs = durationToMs(stats.MinLatency)
	stats.MaxLatencyMs = durationToMs(stats.MaxLatency)
	stats.MeanLatencyMs = durationToMs(stats.MeanLatency)
	stats.P50LatencyMs = durationToMs(stats.P50Latency)
	stats.P90LatencyMs = durationToMs(stats.P90Latency)
	stats.P99LatencyMs = durationToMs(stats.P99Latency)
	stats.DurationMs = durationToMs(elapsed)

	return stats
}

func durationToMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
