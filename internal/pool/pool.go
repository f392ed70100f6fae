// Package pool provides a monitored worker pool shared by the load workers.
// It records the diagnostics reported once at shutdown: task count, peak
// concurrency, peak queue depth, and queue/task latency aggregates.
package pool

import (
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Submit after the pool has been stopped.
var ErrStopped = errors.New("worker pool stopped")

type task struct {
	fn       func()
	enqueued time.Time
}

// Monitored is a fixed-size worker pool with shutdown diagnostics.
type Monitored struct {
	tasks   chan task
	workers int

	stateMu sync.RWMutex
	stopped bool
	wg      sync.WaitGroup

	mu              sync.Mutex
	taskCount       int64
	active          int
	maxActive       int
	maxQueue        int
	sumQueueLatency time.Duration
	maxQueueLatency time.Duration
	sumTaskLatency  time.Duration
	maxTaskLatency  time.Duration
}

// Stats is a read-only snapshot of the pool's lifetime diagnostics.
type Stats struct {
	Tasks           int64
	MaxActiveTasks  int
	MaxQueueSize    int
	AvgQueueLatency time.Duration
	MaxQueueLatency time.Duration
	AvgTaskLatency  time.Duration
	MaxTaskLatency  time.Duration
}

// NewMonitored creates a pool with the given number of workers.
func NewMonitored(workers int) *Monitored {
	if workers <= 0 {
		workers = 1
	}
	p := &Monitored{
		tasks:   make(chan task, workers*64),
		workers: workers,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Workers returns the pool size.
func (p *Monitored) Workers() int {
	return p.workers
}

// Submit enqueues fn for execution, blocking while the queue is full.
func (p *Monitored) Submit(fn func()) error {
	if fn == nil {
		return nil
	}

	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	// Workers keep draining until the channel closes, so this send cannot
	// block indefinitely while the pool is alive.
	p.tasks <- task{fn: fn, enqueued: time.Now()}

	p.mu.Lock()
	if depth := len(p.tasks); depth > p.maxQueue {
		p.maxQueue = depth
	}
	p.mu.Unlock()
	return nil
}

// Stop drains queued tasks and waits for the workers to finish.
// It is safe to call more than once.
func (p *Monitored) Stop() {
	p.stateMu.Lock()
	if p.stopped {
		p.stateMu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.stateMu.Unlock()

	p.wg.Wait()
}

// Stats returns the lifetime diagnostics snapshot.
func (p *Monitored) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{
		Tasks:           p.taskCount,
		MaxActiveTasks:  p.maxActive,
		MaxQueueSize:    p.maxQueue,
		MaxQueueLatency: p.maxQueueLatency,
		MaxTaskLatency:  p.maxTaskLatency,
	}
	if p.taskCount > 0 {
		stats.AvgQueueLatency = p.sumQueueLatency / time.Duration(p.taskCount)
		stats.AvgTaskLatency = p.sumTaskLatency / time.Duration(p.taskCount)
	}
	return stats
}

func (p *Monitored) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		started := time.Now()
		queueLatency := started.Sub(t.enqueued)

		p.mu.Lock()
		p.taskCount++
		p.active++
		if p.active > p.maxActive {
			p.maxActive = p.active
		}
		p.sumQueueLatency += queueLatency
		if queueLatency > p.maxQueueLatency {
			p.maxQueueLatency = queueLatency
		}
		p.mu.Unlock()

		t.fn()

		taskLatency := time.Since(started)
		p.mu.Lock()
		p.active--
		p.sumTaskLatency += taskLatency
		if taskLatency > p.maxTaskLatency {
			p.maxTaskLatency = taskLatency
		}
		p.mu.Unlock()
	}
}
