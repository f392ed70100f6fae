// Package metrics collects per-request measurements during a probe run.
//
// The central [Collector] aggregates latency and success/failure counts from
// all load workers:
//
//	collector := metrics.NewCollector()
//	collector.Start() // mark run start for accurate RPS calculation
//
//	collector.RecordRequest("/index.html", latency, err)
//
//	stats := collector.Stats(elapsed)
//
// Latencies are tracked in an HDR histogram (1µs..60s, 3 significant
// figures). RecordRequest is safe to call from multiple goroutines; the
// progress reporter reads snapshots concurrently with the run and only
// needs per-field consistency, which the collector mutex provides.
package metrics
