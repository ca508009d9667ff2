// Package cache implements the Recent-Track Cache: a bounded, TTL-
// evicting keyed store of the most recent AIS/ARPA observations, with
// a Redis sorted-set primary backend and a silent in-memory fallback.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/banshee-data/trackmatch/internal/timeutil"
)

// Entry is one cached item: an opaque JSON-able value plus the
// metadata the cache itself manages (key, timestamp).
type Entry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp float64         `json:"timestamp"` // Unix seconds
}

// Backend is the pluggable storage tier behind the cache. The primary
// implementation (Redis) stores a score-ordered set keyed by
// timestamp; the fallback is an in-memory bounded deque. Both satisfy
// this interface so Cache can swap between them transparently.
type Backend interface {
	// Add inserts an entry, trims to maxSize, and sets/refreshes the
	// backend's own TTL bookkeeping for the key.
	Add(ctx context.Context, e Entry, maxSize int, ttl time.Duration) error
	// Recent returns up to limit entries, most recent first, whose
	// age relative to now is <= ttl.
	Recent(ctx context.Context, limit int, ttl time.Duration, now time.Time) ([]Entry, error)
	// Range returns all entries with timestamp in [startS, endS].
	Range(ctx context.Context, startS, endS float64) ([]Entry, error)
	// All returns every currently-stored entry, oldest first.
	All(ctx context.Context) ([]Entry, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Healthy reports whether the backend is currently reachable.
	Healthy(ctx context.Context) bool
	// Name identifies the backend for stats()'s "backend" field.
	Name() string
}

// Stats mirrors original_source/app/services/cache.py's get_stats()
// shape, including the backend field §4.5/§7.7 require.
type Stats struct {
	CurrentSize    int       `json:"current_size"`
	TotalIngested  int64     `json:"total_ingested"`
	ValidCount     int       `json:"valid_count"`
	MaxSize        int       `json:"max_size"`
	TTLSeconds     float64   `json:"ttl_seconds"`
	Backend        string    `json:"backend"`
	LastUpdated    time.Time `json:"last_updated"`
	CacheHits      int64     `json:"cache_hits"`
	CacheMisses    int64     `json:"cache_misses"`
}

// Cache is the Recent-Track Cache. All mutations and reads are
// serialized by a single mutex (spec §4.5's concurrency requirement),
// which also makes backend swaps race-free.
type Cache struct {
	mu sync.Mutex

	primary  Backend
	fallback Backend
	clock    timeutil.Clock

	maxSize int
	ttl     time.Duration

	usingFallback bool
	totalIngested int64
	hits, misses  int64
	lastUpdated   time.Time
}

// New constructs a Cache. primary may be nil to run fallback-only.
func New(primary Backend, fallback Backend, clock timeutil.Clock, maxSize int, ttl time.Duration) *Cache {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Cache{
		primary:  primary,
		fallback: fallback,
		clock:    clock,
		maxSize:  maxSize,
		ttl:      ttl,
	}
}

// active returns the backend to use for this operation, running a
// health check first and degrading to fallback silently on failure
// (spec §4.5 "Backend policy", §7.7).
func (c *Cache) active(ctx context.Context) Backend {
	if c.primary != nil && c.primary.Healthy(ctx) {
		c.usingFallback = false
		return c.primary
	}
	c.usingFallback = true
	return c.fallback
}

// Add stamps value with the current wall-clock time and inserts it
// under key.
func (c *Cache) Add(ctx context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	e := Entry{Key: key, Data: raw, Timestamp: float64(now.Unix())}

	backend := c.active(ctx)
	if err := backend.Add(ctx, e, c.maxSize, c.ttl); err != nil {
		return err
	}
	c.totalIngested++
	c.lastUpdated = now
	return nil
}

// GetRecent returns up to limit entries whose age is within the TTL.
func (c *Cache) GetRecent(ctx context.Context, limit int) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	backend := c.active(ctx)
	entries, err := backend.Recent(ctx, limit, c.ttl, c.clock.Now())
	if err != nil {
		c.misses++
		return nil, err
	}
	if len(entries) > 0 {
		c.hits++
	} else {
		c.misses++
	}
	return entries, nil
}

// GetByTimerange returns all entries whose Unix-seconds timestamp
// falls in [start, end].
func (c *Cache) GetByTimerange(ctx context.Context, start, end time.Time) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	backend := c.active(ctx)
	return backend.Range(ctx, float64(start.Unix()), float64(end.Unix()))
}

// SearchByKey performs an O(N) linear scan for entries with the given
// key, suitable for small caches per spec §4.5.
func (c *Cache) SearchByKey(ctx context.Context, key string) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	backend := c.active(ctx)
	all, err := backend.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clear removes all entries.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	backend := c.active(ctx)
	return backend.Clear(ctx)
}

// CleanupExpired performs a TTL-filtered read of the active backend and
// returns its error, if any. It removes no entries: expired entries are
// already left out of GetRecent and of Stats' valid count, and they
// leave storage only through max-size trimming on Add or the expiry of
// the whole Redis key.
func (c *Cache) CleanupExpired(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	backend := c.active(ctx)
	_, err := backend.Recent(ctx, c.maxSize, c.ttl, c.clock.Now())
	return err
}

// Stats returns the current cache statistics, including which backend
// is currently serving requests.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	backend := c.active(ctx)
	all, _ := backend.All(ctx)
	now := c.clock.Now()
	valid := 0
	for _, e := range all {
		if now.Sub(time.Unix(int64(e.Timestamp), 0)) <= c.ttl {
			valid++
		}
	}

	name := backend.Name()
	if c.usingFallback {
		name = "memory"
	}

	return Stats{
		CurrentSize:   len(all),
		TotalIngested: c.totalIngested,
		ValidCount:    valid,
		MaxSize:       c.maxSize,
		TTLSeconds:    c.ttl.Seconds(),
		Backend:       name,
		LastUpdated:   c.lastUpdated,
		CacheHits:     c.hits,
		CacheMisses:   c.misses,
	}
}
