package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache backed by go-cache.
type Memory struct {
	cache *gocache.Cache
}

func NewMemory(cfg Config) (Cache, error) {
	ttl := cfg.DefaultTTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	cleanup := cfg.CleanupInterval
	if cleanup == 0 {
		cleanup = 10 * time.Minute
	}
	return &Memory{cache: gocache.New(ttl, cleanup)}, nil
}

func (m *Memory) Get(key string) (any, bool, error) {
	v, found := m.cache.Get(key)
	return v, found, nil
}

// Set stores value. A zero ttl uses the default expiry.
func (m *Memory) Set(key string, value any, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *Memory) Len() int {
	return m.cache.ItemCount()
}

func init() {
	Register("memory", NewMemory)
}
