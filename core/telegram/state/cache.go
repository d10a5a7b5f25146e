package state

import (
	"fmt"
	"time"

	"github.com/maypok86/otter"
)

// Defaults for NewCacheStore.
const (
	DefaultCapacity = 10_000
	DefaultTTL      = 24 * time.Hour
)

type cacheStore[S any] struct {
	cache otter.Cache[int64, S]
}

// NewCacheStore constructs a bounded Store whose sessions expire ttl after the
// last Set. Zero values select the defaults.
func NewCacheStore[S any](capacity int, ttl time.Duration) (Store[S], error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache, err := otter.MustBuilder[int64, S](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("state: build session cache: %w", err)
	}
	return &cacheStore[S]{cache: cache}, nil
}

func (c *cacheStore[S]) Get(userID int64) (S, bool) {
	return c.cache.Get(userID)
}

func (c *cacheStore[S]) Set(userID int64, session S) {
	c.cache.Set(userID, session)
}

func (c *cacheStore[S]) Clear(userID int64) {
	c.cache.Delete(userID)
}

func (c *cacheStore[S]) Len() int {
	return c.cache.Size()
}
