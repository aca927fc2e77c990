package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// A local LRU serves single nodes; Redis, optionally behind the LRU, serves
// clusters. All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetStatistics retrieves cached evaluation statistics for a scope key
	// such as "batch:<id>". Returns nil, nil on a miss.
	GetStatistics(ctx context.Context, tenantID string, scope string) (*Statistics, error)

	// SetStatistics caches evaluation statistics for a scope key.
	SetStatistics(ctx context.Context, tenantID string, scope string, st *Statistics, ttl time.Duration) error

	// IncrementCounter atomically increments a counter that resets after
	// window and returns the new value.
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	LocalMaxSize int
	LocalTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EnableTwoPhase puts the local LRU in front of Redis.
	EnableTwoPhase bool

	// StatisticsTTL bounds how long cohort statistics stay cached.
	StatisticsTTL time.Duration
}
