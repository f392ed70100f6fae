package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/torosent/loadprobe/internal/metrics"
	"github.com/torosent/loadprobe/internal/pool"
)

// PrintReport outputs a human-readable run summary.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Probe Run Results ---")
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.ByResource) > 0 {
		fmt.Fprintln(w, "\nResource Breakdown:")
		paths := make([]string, 0, len(stats.ByResource))
		for path := range stats.ByResource {
			paths = append(paths, path)
		}
		sort.Slice(paths, func(i, j int) bool {
			if stats.ByResource[paths[i]] != stats.ByResource[paths[j]] {
				return stats.ByResource[paths[i]] > stats.ByResource[paths[j]]
			}
			return paths[i] < paths[j]
		})
		for _, path := range paths {
			count := stats.ByResource[path]
			share := 0.0
			if stats.Total > 0 {
				share = (float64(count) / float64(stats.Total)) * 100
			}
			fmt.Fprintf(w, "  - %s: total=%d (%.1f%%)\n", path, count, share)
		}
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		types := make([]string, 0, len(stats.Errors))
		for typ := range stats.Errors {
			types = append(types, typ)
		}
		sort.Strings(types)
		for _, typ := range types {
			fmt.Fprintf(w, "  - %s: %d\n", typ, stats.Errors[typ])
		}
	}
}

// PrintPoolStats outputs the shared pool diagnostics sampled at shutdown.
func PrintPoolStats(w io.Writer, stats pool.Stats) {
	fmt.Fprintln(w, "\n--- Worker Pool ---")
	fmt.Fprintf(w, "Tasks:             %d\n", stats.Tasks)
	fmt.Fprintf(w, "Max Active:        %d\n", stats.MaxActiveTasks)
	fmt.Fprintf(w, "Max Queue:         %d\n", stats.MaxQueueSize)
	fmt.Fprintf(w, "Queue Latency:     avg=%s max=%s\n", stats.AvgQueueLatency, stats.MaxQueueLatency)
	fmt.Fprintf(w, "Task Latency:      avg=%s max=%s\n", stats.AvgTaskLatency, stats.MaxTaskLatency)
}
