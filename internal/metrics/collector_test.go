package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.RecordRequest("/", 10*time.Millisecond, nil)
	c.RecordRequest("/a", 20*time.Millisecond, nil)
	c.RecordRequest("/a", 30*time.Millisecond, errors.New("boom"))

	stats := c.Stats(time.Second)
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.Successes != 2 {
		t.Errorf("Successes = %d, want 2", stats.Successes)
	}
	if stats.Failures != 1 {
		t.Errorf("Failures = %d, want 1", stats.Failures)
	}
	if stats.RequestsPerSec != 3 {
		t.Errorf("RequestsPerSec = %g, want 3", stats.RequestsPerSec)
	}
	if stats.ByResource["/a"] != 2 {
		t.Errorf("ByResource[/a] = %d, want 2", stats.ByResource["/a"])
	}
	if len(stats.Errors) != 1 {
		t.Errorf("Errors = %v, want one error type", stats.Errors)
	}
}

func TestCollectorLatencies(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 100; i++ {
		c.RecordRequest("/", time.Duration(i)*time.Millisecond, nil)
	}

	stats := c.Stats(time.Second)
	if stats.MinLatency != time.Millisecond {
		t.Errorf("MinLatency = %v, want 1ms", stats.MinLatency)
	}
	if stats.MaxLatency != 100*time.Millisecond {
		t.Errorf("MaxLatency = %v, want 100ms", stats.MaxLatency)
	}
	if stats.MeanLatency < 49*time.Millisecond || stats.MeanLatency > 52*time.Millisecond {
		t.Errorf("MeanLatency = %v, want ~50.5ms", stats.MeanLatency)
	}
	// HDR histogram holds 3 significant figures, allow slack.
	if stats.P50Latency < 45*time.Millisecond || stats.P50Latency > 55*time.Millisecond {
		t.Errorf("P50Latency = %v, want ~50ms", stats.P50Latency)
	}
	if stats.P99Latency < 95*time.Millisecond || stats.P99Latency > 101*time.Millisecond {
		t.Errorf("P99Latency = %v, want ~99ms", stats.P99Latency)
	}
	if stats.P99LatencyMs == 0 {
		t.Error("P99LatencyMs not populated")
	}
}

func TestCollectorConcurrentRecording(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				c.RecordRequest("/", time.Millisecond, nil)
			}
		}()
	}
	wg.Wait()

	if stats := c.Stats(time.Second); stats.Total != 2000 {
		t.Errorf("Total = %d, want 2000", stats.Total)
	}
}

func TestCollectorEmpty(t *testing.T) {
	c := NewCollector()
	stats := c.Stats(time.Second)
	if stats.Total != 0 || stats.MeanLatency != 0 || stats.RequestsPerSec != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}
	if stats.ByResource != nil {
		t.Errorf("ByResource = %v, want nil", stats.ByResource)
	}
}
