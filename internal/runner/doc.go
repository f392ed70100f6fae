// Package runner executes the probe's load generation.
//
// The runner issues requests against the target's resource tree with a fixed
// worker count, optional requests-per-second pacing, and count- or
// duration-based termination:
//
//	opts := runner.Options{
//		Workers:       10,
//		TotalRequests: 1000,
//		RatePerSecond: 100,
//		Requester:     myRequester,
//	}
//	r := runner.New(opts)
//	result := r.Run(ctx)
//
// The [Requester] interface defines what a runner executes:
//
//	type Requester interface {
//		Do(ctx context.Context) error
//	}
//
// When Options.Pool is set, request execution is submitted to the shared
// monitored pool instead of per-run worker goroutines, so pool diagnostics
// cover the whole run.
package runner
