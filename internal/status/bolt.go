package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"
)

const (
	boltFileMode   os.FileMode = 0o600
	boltBucketName             = "modules"
)

var defaultBoltOptions = &bbolt.Options{Timeout: 5 * time.Second}

// BoltStore keeps records in a bbolt database, one JSON value per module id.
// bbolt gives single-writer/multi-reader semantics; only the closed state is
// guarded here.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
	path   string
	closed atomic.Bool
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("status: creating bolt directory: %w", err)
	}

	optionsCopy := *defaultBoltOptions
	db, err := bbolt.Open(path, boltFileMode, &optionsCopy)
	if err != nil {
		return nil, fmt.Errorf("status: opening boltdb: %w", err)
	}

	bucket := []byte(boltBucketName)
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("status: initializing boltdb bucket: %w", err)
	}

	return &BoltStore{db: db, bucket: bucket, path: path}, nil
}

// Path returns the database file.
func (s *BoltStore) Path() string { return s.path }

func (s *BoltStore) Get(ctx context.Context, id string) (Record, bool, error) {
	if err := s.ready(ctx); err != nil {
		return Record{}, false, err
	}

	var (
		record Record
		found  bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := s.bucketOf(tx)
		if err != nil {
			return err
		}
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &record)
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("status: reading %s: %w", id, err)
	}
	return record, found, nil
}

func (s *BoltStore) Put(ctx context.Context, record Record) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := validate(record); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("status: encoding %s: %w", record.ID, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.bucketOf(tx)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(record.ID), data)
	})
}

func (s *BoltStore) Delete(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.bucketOf(tx)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *BoltStore) List(ctx context.Context) ([]Record, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var records []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := s.bucketOf(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, raw []byte) error {
			var record Record
			if err := json.Unmarshal(raw, &record); err != nil {
				return err
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("status: listing records: %w", err)
	}
	sortRecords(records)
	return records, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *BoltStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) ready(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *BoltStore) bucketOf(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bucket := tx.Bucket(s.bucket)
	if bucket == nil {
		return nil, fmt.Errorf("bucket %q missing", s.bucket)
	}
	return bucket, nil
}
