package cache

import (
	"context"
	"time"
)

// Cache is the shared key/value boundary used for upload deduplication.
// Implementations must tolerate concurrent readers and writers; the dedup
// flow assumes last-writer-wins and never requires exclusivity.
type Cache interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}
