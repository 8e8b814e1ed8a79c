package cache

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by KV implementations when the store cannot be
// reached. Callers treat it as a signal to fall back.
var ErrUnavailable = errors.New("cache unavailable")

type Entry struct {
	Key   string
	Value string
}

// KV is the minimal key-value surface the summary cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// MGet returns values for the present keys only.
	MGet(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes all entries in one round-trip.
	SetMany(ctx context.Context, entries []Entry) error
	// Scan returns every key matching a glob pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
	MemoryUsedBytes(ctx context.Context) (int64, error)
}
