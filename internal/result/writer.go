package result

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// WriteFile serializes res and writes it to path, replacing any previous run's
// file. The write is guarded by a sibling lock file so probes sharing a result
// directory cannot clobber each other mid-write. Unlike sink persistence this
// is a primary delivery path: failures propagate to the caller.
func WriteFile(path string, res *RunResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize run result: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock result file: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove previous result file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}
