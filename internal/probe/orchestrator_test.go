package probe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torosent/loadprobe/internal/coordinator"
	"github.com/torosent/loadprobe/internal/metrics"
	"github.com/torosent/loadprobe/internal/result"
	"github.com/torosent/loadprobe/internal/store"
	"github.com/torosent/loadprobe/internal/target"
)

type fakeEngine struct {
	resources int
	stats     metrics.Stats
	err       error
	runs      int
}

func (e *fakeEngine) ResourceCount() int { return e.resources }

func (e *fakeEngine) Run(ctx context.Context) (metrics.Stats, error) {
	e.runs++
	return e.stats, e.err
}

type fakeStats struct {
	starts, stops    int
	startErr, stopErr error
}

func (s *fakeStats) Start(ctx context.Context) error {
	s.starts++
	return s.startErr
}

func (s *fakeStats) Stop(ctx context.Context) error {
	s.stops++
	return s.stopErr
}

type fakeSource struct {
	cfg *coordinator.RunConfig
	err error
}

func (s *fakeSource) Fetch(ctx context.Context) (*coordinator.RunConfig, error) {
	return s.cfg, s.err
}

type fakeProgress struct{ starts int }

func (p *fakeProgress) Start() { p.starts++ }

type recordingSink struct {
	name  string
	saved int
	err   error
}

func (s *recordingSink) Name() string                            { return s.name }
func (s *recordingSink) Active(params map[string]string) bool    { return true }
func (s *recordingSink) Initialize(params map[string]string) error { return nil }
func (s *recordingSink) Close() error                            { return nil }

func (s *recordingSink) Save(res *result.RunResult) error {
	s.saved++
	return s.err
}

type staticSinks struct{ sinks []store.Sink }

func (s staticSinks) Actives(params map[string]string) []store.Sink { return s.sinks }

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testOrchestrator() (*Orchestrator, *fakeEngine, *fakeStats, *int) {
	engine := &fakeEngine{resources: 7, stats: metrics.Stats{Total: 1000, Successes: 1000}}
	stats := &fakeStats{}
	teardowns := 0

	cfg := &coordinator.RunConfig{}
	if err := json.Unmarshal([]byte(`{"transport":"http","loaderNumber":0,"resourceNumber":3}`), cfg); err != nil {
		panic(err)
	}

	o := &Orchestrator{
		Opt: Options{
			InstanceNumber: 2,
			Transport:      "http",
			PollInterval:   time.Millisecond,
			PollDeadline:   50 * time.Millisecond,
		},
		Log: testLogger(),
		Identity: func(ctx context.Context) (target.Identity, error) {
			return target.Identity{Scheme: "http", Host: "server.local", Port: 8080, ServerVersion: "10.0.15"}, nil
		},
		Stats:    stats,
		Source:   &fakeSource{cfg: cfg},
		Engine:   engine,
		Teardown: []func(){func() { teardowns++ }},
	}
	return o, engine, stats, &teardowns
}

func TestRunHappyPath(t *testing.T) {
	o, engine, stats, teardowns := testOrchestrator()
	progress := &fakeProgress{}
	o.Progress = progress

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res == nil {
		t.Fatal("expected a run result")
	}
	if engine.runs != 1 {
		t.Fatalf("engine ran %d times", engine.runs)
	}
	if stats.starts != 1 || stats.stops != 1 {
		t.Fatalf("stats starts=%d stops=%d, want 1/1", stats.starts, stats.stops)
	}
	if progress.starts != 1 {
		t.Fatalf("progress started %d times", progress.starts)
	}
	if *teardowns != 1 {
		t.Fatalf("teardown ran %d times", *teardowns)
	}

	if res.UUID == "" {
		t.Error("result has no uuid")
	}
	if res.ExternalID != "" || res.Comment != "" {
		t.Errorf("unexpected externalId %q / comment %q without params", res.ExternalID, res.Comment)
	}
	if res.Transport != "http" {
		t.Errorf("transport = %q", res.Transport)
	}
	if res.ServerInfo.ServerVersion != "10.0.15" {
		t.Errorf("server version = %q", res.ServerInfo.ServerVersion)
	}
	if res.Stats.Total != 1000 {
		t.Errorf("total = %d", res.Stats.Total)
	}
}

func TestRunResourceCountOverridesCoordinator(t *testing.T) {
	o, _, _, _ := testOrchestrator()

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Config.ResourceNumber != 7 {
		t.Errorf("resourceNumber = %d, want locally computed 7", res.Config.ResourceNumber)
	}
	if res.Config.InstanceNumber != 2 {
		t.Errorf("instanceNumber = %d", res.Config.InstanceNumber)
	}
	if _, ok := res.Config.Extra["loaderNumber"]; !ok {
		t.Error("unknown coordinator field was not preserved")
	}
}

func TestRunConfigDeadlineAborts(t *testing.T) {
	o, engine, stats, teardowns := testOrchestrator()
	o.Source = &fakeSource{} // never publishes

	start := time.Now()
	res, err := o.Run(context.Background())
	if !errors.Is(err, coordinator.ErrConfigDeadline) {
		t.Fatalf("err = %v, want ErrConfigDeadline", err)
	}
	if res != nil {
		t.Fatal("expected no result on abort")
	}
	if elapsed := time.Since(start); elapsed < o.Opt.PollDeadline {
		t.Errorf("aborted after %v, before the %v deadline", elapsed, o.Opt.PollDeadline)
	}
	if engine.runs != 0 {
		t.Error("engine ran despite missing configuration")
	}
	if stats.starts != 1 {
		t.Errorf("stats starts = %d", stats.starts)
	}
	if *teardowns != 1 {
		t.Fatalf("teardown ran %d times on abort path", *teardowns)
	}
}

func TestRunSkipConfig(t *testing.T) {
	o, engine, _, _ := testOrchestrator()
	o.Opt.SkipConfig = true
	o.Source = nil

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine.runs != 1 {
		t.Fatal("engine did not run")
	}
	if res.Config.ResourceNumber != 7 || res.Config.InstanceNumber != 2 {
		t.Errorf("injected config = %+v", res.Config)
	}
}

func TestRunIdentityFailureIsFatal(t *testing.T) {
	o, engine, stats, teardowns := testOrchestrator()
	boom := errors.New("connection refused")
	o.Identity = func(ctx context.Context) (target.Identity, error) {
		return target.Identity{}, boom
	}

	if _, err := o.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if stats.starts != 0 {
		t.Error("stats started before identity resolved")
	}
	if engine.runs != 0 {
		t.Error("engine ran after identity failure")
	}
	if *teardowns != 1 {
		t.Fatalf("teardown ran %d times", *teardowns)
	}
}

func TestRunEngineFailureIsFatal(t *testing.T) {
	o, engine, stats, teardowns := testOrchestrator()
	engine.err = errors.New("all workers failed")

	res, err := o.Run(context.Background())
	if err == nil || res != nil {
		t.Fatalf("Run = (%v, %v), want fatal error", res, err)
	}
	if stats.stops != 0 {
		t.Error("stats stop attempted after engine failure")
	}
	if *teardowns != 1 {
		t.Fatalf("teardown ran %d times", *teardowns)
	}
}

func TestRunStatsFailuresAreNotFatal(t *testing.T) {
	o, _, stats, _ := testOrchestrator()
	stats.startErr = errors.New("stats start rejected")
	stats.stopErr = errors.New("stats stop rejected")

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.starts != 1 || stats.stops != 1 {
		t.Errorf("stats starts=%d stops=%d", stats.starts, stats.stops)
	}
}

func TestRunWritesResultFile(t *testing.T) {
	o, _, _, _ := testOrchestrator()
	path := filepath.Join(t.TempDir(), "result.json")
	o.Opt.ResultPath = path

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading result file: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("result file is not JSON: %v", err)
	}
	var uuid string
	if err := json.Unmarshal(decoded["uuid"], &uuid); err != nil || uuid != res.UUID {
		t.Errorf("file uuid = %q, want %q", uuid, res.UUID)
	}
}

func TestRunResultFileFailureIsFatal(t *testing.T) {
	o, _, _, teardowns := testOrchestrator()
	o.Opt.ResultPath = filepath.Join(t.TempDir(), "missing", "nested", "result.json")

	res, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected a write error")
	}
	if res == nil {
		t.Error("result should still be returned when only persistence failed")
	}
	if *teardowns != 1 {
		t.Fatalf("teardown ran %d times", *teardowns)
	}
}

func TestRunSinkFailuresAreNotFatal(t *testing.T) {
	o, _, _, _ := testOrchestrator()
	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: errors.New("rejected")}
	o.Sinks = staticSinks{sinks: []store.Sink{bad, ok}}

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ok.saved != 1 || bad.saved != 1 {
		t.Errorf("saves ok=%d bad=%d, want 1/1", ok.saved, bad.saved)
	}
}

func TestTeardownSurvivesPanics(t *testing.T) {
	o, _, _, _ := testOrchestrator()
	order := []string{}
	o.Teardown = []func(){
		func() { order = append(order, "first") },
		func() { panic("teardown blew up") },
		func() { order = append(order, "last") },
	}

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "last" {
		t.Errorf("teardown order = %v", order)
	}
}
