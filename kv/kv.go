// Package kv defines the key-value persistence capability used by the
// rewards engine and its backends. Values are opaque JSON blobs.
package kv

import (
	"context"
	"errors"
)

// Sentinel errors shared by all backends
var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrListUnsupported is returned by List when a backend cannot enumerate keys.
	ErrListUnsupported = errors.New("key listing unsupported")
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
	BackendS3       = "s3"
)

// Reader reads single values.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Writer stores single values, replacing any previous value.
type Writer interface {
	Set(ctx context.Context, key string, value []byte) error
}

// Lister enumerates keys sharing a prefix, in ascending key order.
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Store is the complete capability a backend provides.
type Store interface {
	Reader
	Writer
	Lister
}
