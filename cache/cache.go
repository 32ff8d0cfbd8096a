// Package cache provides the read-through cache used for public content.
package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values under string keys with a TTL.
// Patterns use glob syntax ("announcements:list:*").
type Cache interface {
	// Get decodes the cached value into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	Close() error
}

// Stats is a point-in-time description of a cache backend.
type Stats struct {
	Backend string `json:"backend"`
	Items   int64  `json:"items"`
}

// StatsReporter is implemented by backends that can describe themselves.
type StatsReporter interface {
	Stats(ctx context.Context) Stats
}
