// Package cache is the key/value store used for payment dedupe and
// scheduler locks. Redis backs it in production; MemoryStore is used when no
// REDIS_URL is configured and in tests.
package cache

import (
	"context"
	"time"

	"stakeledger/internal/config"
)

var log = config.InitLogger()

const opTimeout = 5 * time.Second

type Store interface {
	// Get returns the stored value and false when the key is missing or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores the value only if the key is absent.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	// CompareAndDelete removes the key only while it still holds value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}
