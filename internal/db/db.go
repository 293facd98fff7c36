package db

import (
	"context"
	"time"
)

// Store is the key-value facade the Redis record store is built on.
// Consumers declare the narrow subset they use.
type Store interface {
	Pinger
	HashStore
	JSONStore
	KeyScanner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides flat field/value documents.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	// JSONSetNX writes a new document at the root. It reports false, without
	// writing, when the key already exists.
	JSONSetNX(ctx context.Context, key string, data []byte) (bool, error)
	// JSONCompareAndSet replaces the value at path only while it still equals
	// expected (compact JSON). It reports false on a mismatch and returns
	// ErrKeyNotFound when the key is absent.
	JSONCompareAndSet(ctx context.Context, key, path string, expected, value []byte) (bool, error)
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	// JSONGetMulti fetches many documents in pipelined batches. Missing keys
	// yield nil entries; the result is aligned with keys.
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
}

// KeyScanner provides key enumeration and removal.
type KeyScanner interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
