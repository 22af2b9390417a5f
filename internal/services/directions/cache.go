package directions

import (
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"wastejobs-backend/internal/geo"
)

// RouteCache keeps route geometry between nearby origin/destination pairs so
// repeated lookups from the same block do not hit the provider.
type RouteCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	stats      CacheStats
}

type CacheEntry struct {
	Route        *geom.LineString
	CreatedAt    time.Time
	LastAccessed time.Time
	HitCount     int
}

type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	mutex     sync.RWMutex
}

// NewRouteCache creates a cache holding at most maxEntries routes for ttl.
func NewRouteCache(maxEntries int, ttl time.Duration) *RouteCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RouteCache{
		cache:      make(map[string]*CacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Signature rounds both ends to four decimals (about 11 m) and hashes them.
func Signature(origin, destination geo.Location) string {
	key := fmt.Sprintf(
		"%.4f,%.4f_%.4f,%.4f",
		origin.Latitude, origin.Longitude,
		destination.Latitude, destination.Longitude,
	)
	hash := md5.Sum([]byte(key))
	return fmt.Sprintf("%x", hash[:8])
}

func (c *RouteCache) Get(signature string) (*geom.LineString, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, found := c.cache[signature]
	if !found {
		c.recordMiss()
		return nil, false
	}

	if c.now().Sub(entry.CreatedAt) > c.ttl {
		delete(c.cache, signature)
		c.recordMiss()
		c.recordEviction()
		return nil, false
	}

	entry.LastAccessed = c.now()
	entry.HitCount++
	c.recordHit()
	return entry.Route, true
}

func (c *RouteCache) Set(signature string, route *geom.LineString) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.cache[signature]; !exists && len(c.cache) >= c.maxEntries {
		c.evictOldest()
	}

	now := c.now()
	c.cache[signature] = &CacheEntry{
		Route:        route,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// evictOldest removes the least recently used entry. Caller holds the lock.
func (c *RouteCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.cache {
		if oldestKey == "" || entry.LastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.cache, oldestKey)
		c.recordEviction()
		zap.L().Debug("evicted route cache entry", zap.String("signature", oldestKey))
	}
}

// Cleanup drops expired entries and returns how many were removed. It is run
// periodically by the server scheduler.
func (c *RouteCache) Cleanup() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	now := c.now()
	for key, entry := range c.cache {
		if now.Sub(entry.CreatedAt) > c.ttl {
			delete(c.cache, key)
			c.recordEviction()
			removed++
		}
	}
	return removed
}

func (c *RouteCache) recordHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Hits++
}

func (c *RouteCache) recordMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Misses++
}

func (c *RouteCache) recordEviction() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Evictions++
}

// GetStats returns cache statistics
func (c *RouteCache) GetStats() map[string]interface{} {
	c.mutex.RLock()
	cacheSize := len(c.cache)
	c.mutex.RUnlock()

	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	hitRate := 0.0
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		hitRate = float64(c.stats.Hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"cache_size":  cacheSize,
		"max_entries": c.maxEntries,
		"hits":        c.stats.Hits,
		"misses":      c.stats.Misses,
		"hit_rate":    fmt.Sprintf("%.2f%%", hitRate),
		"evictions":   c.stats.Evictions,
		"ttl_hours":   int(c.ttl.Hours()),
	}
}
