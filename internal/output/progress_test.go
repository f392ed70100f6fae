package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/loadprobe/internal/metrics"
)

// syncBuffer guards a bytes.Buffer for concurrent reporter writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressReporterEmitsSnapshots(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Start()
	for i := 0; i < 10; i++ {
		collector.RecordRequest("/index.html", 10*time.Millisecond, nil)
	}

	buf := &syncBuffer{}
	reporter := NewProgressReporter(collector, 5*time.Millisecond, buf)
	reporter.Start()
	time.Sleep(30 * time.Millisecond)
	reporter.Stop()

	out := buf.String()
	if !strings.Contains(out, "Requests: 10") {
		t.Errorf("progress output = %q, want request count", out)
	}
	if !strings.Contains(out, "Resources: 1") {
		t.Errorf("progress output = %q, want resource count", out)
	}
}

func TestProgressReporterStopIdempotent(t *testing.T) {
	reporter := NewProgressReporter(metrics.NewCollector(), time.Millisecond, nil)
	reporter.Start()
	reporter.Stop()
	reporter.Stop() // second stop must not panic or block
}

func TestProgressReporterStartTwice(t *testing.T) {
	buf := &syncBuffer{}
	reporter := NewProgressReporter(metrics.NewCollector(), time.Millisecond, buf)
	reporter.Start()
	reporter.Start() // no second goroutine
	time.Sleep(5 * time.Millisecond)
	reporter.Stop()
}

func TestProgressReporterStopWithoutStart(t *testing.T) {
	reporter := NewProgressReporter(metrics.NewCollector(), time.Millisecond, nil)
	reporter.Stop() // must be a no-op
}
