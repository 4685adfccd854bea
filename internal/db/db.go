package db

import "context"

// Store is the embedded key-value database facade. Consumers depend on
// the narrow sub-interfaces, not the facade.
type Store interface {
	Pinger
	KVStore
	Close() error
}

// Pinger checks that the database is open and usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations over a flat keyspace. Keys are
// namespaced by prefix per entity.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// GetMulti fetches values for the given keys in one read
	// transaction. Missing keys yield nil entries, not errors.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)

	// ScanPrefix visits every key-value pair under the prefix in key
	// order. Returning an error from fn stops the scan.
	ScanPrefix(ctx context.Context, prefix string, fn func(key string, value []byte) error) error

	// Count returns the number of keys under the prefix.
	Count(ctx context.Context, prefix string) (int, error)
}
