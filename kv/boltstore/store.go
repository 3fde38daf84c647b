// Package boltstore implements the embedded durable key-value backend on bbolt.
package boltstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dreamplay/rewards/kv"
)

var bucketEntries = []byte("kv_entries")

// Sentinel errors for store operations
var (
	ErrOpenFailed = errors.New("bolt open failed")
	ErrGetFailed  = errors.New("bolt get failed")
	ErrSetFailed  = errors.New("bolt set failed")
	ErrListFailed = errors.New("bolt list failed")
)

// Store implements kv.Store on a single bbolt bucket
type Store struct {
	db *bolt.DB
}

var _ kv.Store = (*Store)(nil)

// Open opens (or creates) the database file at path and ensures the bucket exists.
func Open(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}

	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns a copy of the value stored under key.
// bbolt transactions do not take a context; ctx is only checked before starting.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGetFailed, err)
	}

	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketEntries).Get([]byte(key))
		if raw == nil {
			return kv.ErrNotFound
		}
		// raw is only valid inside the transaction
		value = bytes.Clone(raw)
		return nil
	})
	if errors.Is(err, kv.ErrNotFound) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGetFailed, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSetFailed, err)
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), value)
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrSetFailed, err)
	}
	return nil
}

// List returns every key starting with prefix, in ascending byte order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListFailed, err)
	}

	keys := []string{}
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListFailed, err)
	}
	return keys, nil
}
