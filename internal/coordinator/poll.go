package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
)

// ErrConfigDeadline is returned by Await when the coordinator never produced
// a run configuration before the deadline. It is the probe's only fatal
// configuration condition.
var ErrConfigDeadline = errors.New("run configuration not available before deadline")

var errNotReady = errors.New("run configuration not ready")

// Source yields a run configuration attempt; nil means not available yet.
type Source interface {
	Fetch(ctx context.Context) (*RunConfig, error)
}

// Await polls src once per interval until it yields a configuration or the
// deadline elapses, measured from the first attempt. Per-attempt failures are
// the source's business; Await only converts sustained absence into
// ErrConfigDeadline.
func Await(ctx context.Context, src Source, interval, deadline time.Duration) (*RunConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// One initial attempt plus one per interval until the deadline.
	attempts := uint(deadline/interval) + 1

	var cfg *RunConfig
	var fetchErr error
	err := retry.Do(
		func() error {
			fetched, err := src.Fetch(ctx)
			if err != nil {
				fetchErr = err
				return retry.Unrecoverable(err)
			}
			if fetched == nil {
				return errNotReady
			}
			cfg = fetched
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, ErrConfigDeadline
	}
	return cfg, nil
}
