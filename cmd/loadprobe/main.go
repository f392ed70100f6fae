package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torosent/loadprobe/internal/config"
	"github.com/torosent/loadprobe/internal/coordinator"
	"github.com/torosent/loadprobe/internal/httpclient"
	"github.com/torosent/loadprobe/internal/metrics"
	"github.com/torosent/loadprobe/internal/output"
	"github.com/torosent/loadprobe/internal/pool"
	"github.com/torosent/loadprobe/internal/probe"
	"github.com/torosent/loadprobe/internal/resource"
	"github.com/torosent/loadprobe/internal/result"
	"github.com/torosent/loadprobe/internal/runner"
	"github.com/torosent/loadprobe/internal/store"
	"github.com/torosent/loadprobe/internal/target"
	"github.com/torosent/loadprobe/internal/tracing"
)

const maxLoggedBodyBytes = 1024

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracer, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}

	tree, err := resource.LoadTree(cfg.ResourceFile)
	if err != nil {
		return err
	}

	client := httpclient.NewClient(cfg.Timeout)
	collector := metrics.NewCollector()

	requester := &resourceRequester{
		client:    client,
		baseURL:   cfg.BaseURL(),
		resources: tree.Flatten(),
		collector: collector,
	}

	var shared *pool.Monitored
	if cfg.SharedWorkers > 0 {
		shared = pool.NewMonitored(cfg.SharedWorkers)
	}

	engine := &probeEngine{
		tree:      tree,
		collector: collector,
		runner: runner.New(runner.Options{
			Workers:       cfg.Workers,
			TotalRequests: cfg.Total,
			Duration:      cfg.Duration,
			RatePerSecond: cfg.Rate,
			Requester:     requester,
			Pool:          shared,
		}),
	}

	progress := output.NewProgressReporter(collector, config.DefaultProgressInterval, os.Stdout)

	orchestrator := &probe.Orchestrator{
		Opt: probe.Options{
			InstanceNumber: cfg.LoaderNumber,
			Transport:      cfg.Transport,
			SkipConfig:     cfg.SkipLoaderConfig,
			PollInterval:   cfg.ConfigPollEvery,
			PollDeadline:   cfg.ConfigMaxWait,
			ResultPath:     cfg.ResultPath,
			Params:         cfg.Params,
		},
		Log:    log,
		Tracer: tracer.Tracer(),
		Identity: func(ctx context.Context) (target.Identity, error) {
			return target.Resolve(ctx, client, cfg.Scheme, cfg.Host, cfg.Port, cfg.ServerVersion)
		},
		Stats:    target.NewStatsController(client, cfg.BaseURL()),
		Source:   coordinator.NewFetcher(client, cfg.BaseURL(), log),
		Engine:   engine,
		Sinks:    store.NewRegistry(),
		Progress: progress,
		Teardown: []func(){
			func() {
				progress.Stop()
				fmt.Fprintln(os.Stdout)
			},
			func() {
				if shared == nil {
					return
				}
				shared.Stop()
				output.PrintPoolStats(os.Stdout, shared.Stats())
			},
			func() { httpclient.Shutdown(client) },
			func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = tracer.Shutdown(shutdownCtx)
			},
		},
	}

	res, err := orchestrator.Run(ctx)
	if res != nil {
		output.PrintReport(os.Stdout, res.Stats)
		logResult(log, res)
	}
	return err
}

func logResult(log logrus.FieldLogger, res *result.RunResult) {
	fields := logrus.Fields{"uuid": res.UUID}
	if res.ExternalID != "" {
		fields["externalId"] = res.ExternalID
	}
	log.WithFields(fields).Info("run result assembled")
}

// probeEngine adapts the rate-limited runner and the metrics collector to the
// orchestrator's engine contract. Failed requests count as failures in the
// stats; only infrastructure breakage would make the run itself fail.
type probeEngine struct {
	tree      *resource.Resource
	runner    *runner.Runner
	collector *metrics.Collector
}

func (e *probeEngine) ResourceCount() int {
	return e.tree.DescendantCount()
}

func (e *probeEngine) Run(ctx context.Context) (metrics.Stats, error) {
	// Reset the RPS reference point now; the reporter was created earlier.
	e.collector.Start()
	res := e.runner.Run(ctx)
	return e.collector.Stats(res.Duration), nil
}

// resourceRequester walks the flattened resource tree round-robin, one
// resource per scheduled request.
type resourceRequester struct {
	client    *http.Client
	baseURL   string
	resources []*resource.Resource
	collector *metrics.Collector
	next      uint64
}

func (r *resourceRequester) Do(ctx context.Context) error {
	if len(r.resources) == 0 {
		return errors.New("no resources to request")
	}
	idx := atomic.AddUint64(&r.next, 1) - 1
	res := r.resources[idx%uint64(len(r.resources))]

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, res.Method, r.baseURL+res.Path, nil)
	if err != nil {
		r.collector.RecordRequest(res.Path, time.Since(start), err)
		return err
	}
	for name, value := range res.Headers {
		req.Header.Set(name, value)
	}

	resp, err := r.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		r.collector.RecordRequest(res.Path, latency, err)
		return err
	}
	defer resp.Body.Close()

	var resultErr error
	if resp.StatusCode >= 400 {
		snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
		if readErr != nil {
			resultErr = readErr
		} else {
			resultErr = &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	r.collector.RecordRequest(res.Path, latency, resultErr)
	return resultErr
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}
