package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Result captures execution summary.
type Result struct {
	Total    int64
	Errors   int64
	Duration time.Duration
}

// Runner coordinates concurrent execution with rate limiting.
type Runner struct {
	opt     Options
	limiter *rate.Limiter
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, limiter: opt.LimiterFactory(opt.RatePerSecond)}
}

// Run blocks until the configured request count or duration is reached, or
// ctx is cancelled. It returns the execution summary.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var total int64
	var errs int64

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, r.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	execute := func() {
		if r.opt.Requester == nil {
			return
		}
		if err := r.opt.Requester.Do(ctx); err != nil {
			atomic.AddInt64(&errs, 1)
		}
	}

	var wg sync.WaitGroup
	if r.opt.Pool != nil {
		// Scheduler only: execution happens on the shared monitored pool.
		for {
			if ctx.Err() != nil {
				break
			}
			if r.opt.TotalRequests > 0 && atomic.LoadInt64(&total) >= int64(r.opt.TotalRequests) {
				break
			}
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
			atomic.AddInt64(&total, 1)
			wg.Add(1)
			if err := r.opt.Pool.Submit(func() {
				defer wg.Done()
				execute()
			}); err != nil {
				wg.Done()
				atomic.AddInt64(&total, -1)
				break
			}
		}
		wg.Wait()
		return Result{
			Total:    atomic.LoadInt64(&total),
			Errors:   atomic.LoadInt64(&errs),
			Duration: time.Since(start),
		}
	}

	permits := make(chan struct{}, r.opt.Workers)

	// Scheduler: serializes rate limiting to avoid burst overshoot across workers.
	go func() {
		defer close(permits)
		for {
			if ctx.Err() != nil {
				return
			}
			current := atomic.LoadInt64(&total)
			if r.opt.TotalRequests > 0 && current >= int64(r.opt.TotalRequests) {
				return
			}
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
			// Increment total before releasing the permit so workers only
			// execute allocated slots.
			atomic.AddInt64(&total, 1)
			select {
			case permits <- struct{}{}:
			case <-ctx.Done():
				atomic.AddInt64(&total, -1)
				return
			}
		}
	}()

	wg.Add(r.opt.Workers)
	for i := 0; i < r.opt.Workers; i++ {
		go func() {
			defer wg.Done()
			for range permits {
				execute()
				if ctx.Err() != nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	return Result{
		Total:    atomic.LoadInt64(&total),
		Errors:   atomic.LoadInt64(&errs),
		Duration: time.Since(start),
	}
}
