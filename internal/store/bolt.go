package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/torosent/loadprobe/internal/result"
)

// ParamBoltPath configures the bolt sink's database file.
const ParamBoltPath = "store.bolt.path"

const boltBucket = "results"

// BoltSink appends run results to a local bbolt database, keyed by run uuid.
// Useful for probes that accumulate a run history on the box they run on.
type BoltSink struct {
	db *bbolt.DB
}

func NewBoltSink() *BoltSink {
	return &BoltSink{}
}

func (s *BoltSink) Name() string {
	return "bolt"
}

func (s *BoltSink) Active(params map[string]string) bool {
	return strings.TrimSpace(params[ParamBoltPath]) != ""
}

func (s *BoltSink) Initialize(params map[string]string) error {
	path := strings.TrimSpace(params[ParamBoltPath])
	if path == "" {
		return fmt.Errorf("%s is required", ParamBoltPath)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("open bolt db: %w", err)
	}
	s.db = db

	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
}

func (s *BoltSink) Save(res *result.RunResult) error {
	if s.db == nil {
		return fmt.Errorf("bolt sink not initialized")
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s missing", boltBucket)
		}
		return bucket.Put([]byte(res.UUID), data)
	})
}

func (s *BoltSink) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
