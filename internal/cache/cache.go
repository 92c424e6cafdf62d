// Package cache memoises per-document classification results.
package cache

import (
	"strings"
	"time"
)

// Cache stores values by key with an expiry.
type Cache interface {
	Get(key string) (value any, found bool, err error)
	Set(key string, value any, ttl time.Duration) error
	Len() int // Entries held, including expired ones not yet cleaned up
}

// Factory builds a cache from config.
type Factory func(cfg Config) (Cache, error)

var registry = make(map[string]Factory)

// Register makes a cache implementation available under name.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New builds the cache named by cfg.Type, falling back to memory.
func New(cfg Config) (Cache, error) {
	if factory, ok := registry[cfg.Type]; ok {
		return factory(cfg)
	}
	return NewMemory(cfg)
}

// Config selects and tunes a cache.
type Config struct {
	Type            string
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      30 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

// Key joins a prefix and parts into a namespaced key.
func Key(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}
