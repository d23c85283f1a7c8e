// Package cache stores short-lived JSON snapshots and idempotency
// reservations, in memory or in Redis.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Keys shared by the API.
const (
	KeySummary        = "analytics:summary"
	KeyCatalog        = "analytics:catalog"
	idempotencyPrefix = "idempotency:"
)

// KeyGeneration counts inventory mutations. Reports are cached under the
// generation they were read at, so bumping it retires every cached report,
// including ones still being built.
const KeyGeneration = "analytics:generation"

// ReportKey is the key of report base at generation gen.
func ReportKey(base string, gen int64) string {
	return base + "@" + strconv.FormatInt(gen, 10)
}

// IdempotencyKey namespaces a client-supplied Idempotency-Key header.
func IdempotencyKey(scope, key string) string {
	return idempotencyPrefix + scope + ":" + key
}

// Cache is implemented by Memory and Redis.
type Cache interface {
	// Get decodes the value at key into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores v as JSON. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Reserve sets key only if absent and reports whether it did.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Incr adds one to the counter at key, starting from 0, and returns
	// the new value. Counters do not expire.
	Incr(ctx context.Context, key string) (int64, error)
}
