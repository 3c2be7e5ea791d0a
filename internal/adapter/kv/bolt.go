package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"newsrag/internal/domain"
	"newsrag/internal/port"
)

var _ port.KVStore = (*BoltStore)(nil)

var bucketKV = []byte("kv")

// BoltStore is an embedded KVStore for single-node deployments.
// Expiry is stored next to each value and enforced on read.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

type boltRecord struct {
	Value     []byte `json:"v"`
	ExpiresAt int64  `json:"e,omitempty"` // unix nanos, 0 = never
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketKV); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketKV, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// WithClock replaces the time source used for expiry.
func (s *BoltStore) WithClock(now func() time.Time) *BoltStore {
	s.now = now
	return s
}

func (s *BoltStore) expired(rec boltRecord) bool {
	return rec.ExpiresAt != 0 && s.now().UnixNano() >= rec.ExpiresAt
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketKV).Get([]byte(key))
		if data == nil {
			return domain.ErrNotFound
		}
		var rec boltRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if s.expired(rec) {
			return domain.ErrNotFound
		}
		out = rec.Value
		return nil
	})
	return out, err
}

func (s *BoltStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	rec := boltRecord{Value: value}
	if ttl > 0 {
		rec.ExpiresAt = s.now().Add(ttl).UnixNano()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), data)
	})
}

func (s *BoltStore) Delete(_ context.Context, keys ...string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKV)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys lists live keys with the given prefix and drops expired ones it
// walks past.
func (s *BoltStore) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	var stale [][]byte
	p := []byte(prefix)

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketKV).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if s.expired(rec) {
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(stale) > 0 {
		err = s.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketKV)
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return keys, err
}

func (s *BoltStore) Ping(context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketKV) == nil {
			return fmt.Errorf("bucket %s missing", bucketKV)
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
