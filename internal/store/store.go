// Package store delivers finished run results to the configured sinks.
// Sink persistence is best effort: one misbehaving sink must never prevent
// the result from reaching any other sink or abort the run.
package store

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/torosent/loadprobe/internal/result"
)

// Sink is one persistence target for run results. Active decides, from the
// run's dynamic parameters, whether the sink takes part in this run; the
// initialize/save/close lifecycle of a participating sink is strictly
// sequential.
type Sink interface {
	Name() string
	Active(params map[string]string) bool
	Initialize(params map[string]string) error
	Save(res *result.RunResult) error
	Close() error
}

// SinkError wraps any failure from a sink's lifecycle with its identity.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Registry holds the known sink constructors.
type Registry struct {
	sinks []Sink
}

// NewRegistry creates a registry with the built-in sinks plus any extras.
func NewRegistry(extra ...Sink) *Registry {
	sinks := []Sink{
		NewHTTPSink(nil),
		NewBoltSink(),
	}
	sinks = append(sinks, extra...)
	return &Registry{sinks: sinks}
}

// Actives returns the sinks that consider themselves configured for this run.
func (r *Registry) Actives(params map[string]string) []Sink {
	var active []Sink
	for _, sink := range r.sinks {
		if sink.Active(params) {
			active = append(active, sink)
		}
	}
	return active
}

// Persist runs the initialize/save/close lifecycle on every sink. Failures,
// panics included, are captured per sink and aggregated in the returned error
// for logging; the caller must not treat it as fatal.
func Persist(log logrus.FieldLogger, res *result.RunResult, params map[string]string, sinks []Sink) error {
	var errs *multierror.Error
	for _, sink := range sinks {
		if err := persistOne(sink, res, params); err != nil {
			log.WithError(err).WithField("sink", sink.Name()).Info("ignoring result sink failure")
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func persistOne(sink Sink, res *result.RunResult, params map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SinkError{Sink: sink.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := sink.Initialize(params); err != nil {
		return &SinkError{Sink: sink.Name(), Err: err}
	}
	if err := sink.Save(res); err != nil {
		// Close is still attempted; the save failure is what gets reported.
		_ = sink.Close()
		return &SinkError{Sink: sink.Name(), Err: err}
	}
	if err := sink.Close(); err != nil {
		return &SinkError{Sink: sink.Name(), Err: err}
	}
	return nil
}
