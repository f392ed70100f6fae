// Package probe sequences a full load-probe run: identity discovery, remote
// stats control, coordinated configuration, the load run itself, and result
// persistence. Collaborators are injected so every transition is testable.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/loadprobe/internal/coordinator"
	"github.com/torosent/loadprobe/internal/metrics"
	"github.com/torosent/loadprobe/internal/result"
	"github.com/torosent/loadprobe/internal/store"
	"github.com/torosent/loadprobe/internal/target"
)

// Engine is the load-generation component the orchestrator drives. Run blocks
// until the load run completes or the engine itself fails; there is no
// cancellation of an in-progress run beyond the passed context.
type Engine interface {
	ResourceCount() int
	Run(ctx context.Context) (metrics.Stats, error)
}

// IdentityResolver resolves the target server's identity, once per run.
type IdentityResolver func(ctx context.Context) (target.Identity, error)

// StatsSwitch toggles statistics collection on the target server.
type StatsSwitch interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// SinkSelector picks the result sinks participating in this run.
type SinkSelector interface {
	Actives(params map[string]string) []store.Sink
}

// ProgressStarter begins live progress reporting; stopping it belongs to
// teardown, never to the run sequence.
type ProgressStarter interface {
	Start()
}

// Options carry the run parameters the orchestrator injects into the
// coordinator-supplied configuration.
type Options struct {
	InstanceNumber int
	Transport      string
	SkipConfig     bool
	PollInterval   time.Duration
	PollDeadline   time.Duration
	ResultPath     string
	Params         map[string]string
}

// Orchestrator is the probe's run state machine. All fields except Progress,
// Sinks, and Teardown are required.
type Orchestrator struct {
	Opt      Options
	Log      logrus.FieldLogger
	Tracer   trace.Tracer
	Identity IdentityResolver
	Stats    StatsSwitch
	Source   coordinator.Source
	Engine   Engine
	Sinks    SinkSelector
	Progress ProgressStarter

	// Teardown functions run unconditionally, in order, exactly once, on
	// every exit path of Run, before the error reaches the caller.
	Teardown []func()
}

// Run drives the state machine to completion and returns the assembled run
// result. A nil result with a non-nil error is a fatal abort; the process
// exit code is the caller's business.
func (o *Orchestrator) Run(ctx context.Context) (res *result.RunResult, err error) {
	defer o.runTeardown()

	identity, err := o.resolveIdentity(ctx)
	if err != nil {
		return nil, err
	}
	o.Log.WithField("server", identity.String()).Info("running load probe against server")

	if err := o.Stats.Start(ctx); err != nil {
		o.Log.WithError(err).Info("cannot start server stats, proceeding without them")
	}

	runCfg, err := o.resolveRunConfig(ctx)
	if err != nil {
		return nil, err
	}

	// Resource cardinality is always computed locally so that the recorded
	// configuration cannot drift from the tree the engine executes.
	runCfg.InstanceNumber = o.Opt.InstanceNumber
	runCfg.Transport = o.Opt.Transport
	runCfg.ResourceNumber = o.Engine.ResourceCount()
	o.Log.WithFields(logrus.Fields{
		"instance":  runCfg.InstanceNumber,
		"transport": runCfg.Transport,
		"resources": runCfg.ResourceNumber,
	}).Info("run configuration resolved")

	if o.Progress != nil {
		o.Progress.Start()
	}

	stats, err := o.runEngine(ctx)
	if err != nil {
		return nil, fmt.Errorf("load run failed: %w", err)
	}
	o.Log.WithField("duration", stats.Duration).Info("load run finished")

	if err := o.Stats.Stop(ctx); err != nil {
		o.Log.WithError(err).Info("cannot stop server stats")
	}

	res = result.New(runCfg, identity, o.Opt.Transport, stats, o.Opt.Params)

	if err := o.persist(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) resolveIdentity(ctx context.Context) (target.Identity, error) {
	ctx, span := o.span(ctx, "probe.identity")
	defer span.End()

	identity, err := o.Identity(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return identity, fmt.Errorf("resolve server identity: %w", err)
	}
	return identity, nil
}

func (o *Orchestrator) resolveRunConfig(ctx context.Context) (*coordinator.RunConfig, error) {
	ctx, span := o.span(ctx, "probe.configure")
	defer span.End()

	if o.Opt.SkipConfig {
		o.Log.Info("skipping run configuration retrieval")
		return &coordinator.RunConfig{}, nil
	}

	cfg, err := coordinator.Await(ctx, o.Source, o.Opt.PollInterval, o.Opt.PollDeadline)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, coordinator.ErrConfigDeadline) {
			o.Log.WithField("waited", o.Opt.PollDeadline).Error("coordinator never published a run configuration, aborting")
		}
		return nil, err
	}
	return cfg, nil
}

func (o *Orchestrator) runEngine(ctx context.Context) (metrics.Stats, error) {
	ctx, span := o.span(ctx, "probe.run")
	defer span.End()

	stats, err := o.Engine.Run(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return stats, err
}

func (o *Orchestrator) persist(ctx context.Context, res *result.RunResult) error {
	_, span := o.span(ctx, "probe.persist")
	defer span.End()

	if o.Opt.ResultPath != "" {
		if err := result.WriteFile(o.Opt.ResultPath, res); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		o.Log.WithField("path", o.Opt.ResultPath).Info("run result written")
	}

	if o.Sinks == nil {
		return nil
	}
	sinks := o.Sinks.Actives(o.Opt.Params)
	if len(sinks) == 0 {
		return nil
	}
	// Persist logs and aggregates sink failures; they never abort the run.
	_ = store.Persist(o.Log, res, o.Opt.Params, sinks)
	return nil
}

func (o *Orchestrator) runTeardown() {
	for _, fn := range o.Teardown {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.Log.WithField("panic", r).Info("ignoring teardown failure")
				}
			}()
			fn()
		}()
	}
}

func (o *Orchestrator) span(ctx context.Context, name string) (context.Context, trace.Span) {
	if o.Tracer == nil {
		return noop.NewTracerProvider().Tracer("loadprobe").Start(ctx, name)
	}
	return o.Tracer.Start(ctx, name)
}
