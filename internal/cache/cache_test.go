package cache

import (
	"context"
	"testing"
	"time"

	"github.com/banshee-data/trackmatch/internal/timeutil"
)

type alwaysDownBackend struct{ *MemoryBackend }

func (alwaysDownBackend) Healthy(_ context.Context) bool { return false }
func (b alwaysDownBackend) Name() string                 { return "redis" }

func TestCacheAddAndGetRecent(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	c := New(nil, NewMemoryBackend(), clock, 10, time.Hour)

	if err := c.Add(ctx, "mmsi:1", map[string]any{"lat": 1.0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entries, err := c.GetRecent(ctx, 5)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestCacheEvictsOldestOverMaxSize(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	c := New(nil, NewMemoryBackend(), clock, 2, time.Hour)

	c.Add(ctx, "k1", 1)
	clock.Set(time.Unix(1001, 0))
	c.Add(ctx, "k2", 2)
	clock.Set(time.Unix(1002, 0))
	c.Add(ctx, "k3", 3)

	entries, _ := c.GetRecent(ctx, 10)
	if len(entries) != 2 {
		t.Fatalf("expected max_size=2 entries retained, got %d", len(entries))
	}
}

func TestCacheDegradesToMemoryOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	down := alwaysDownBackend{NewMemoryBackend()}
	c := New(down, NewMemoryBackend(), clock, 10, time.Hour)

	c.Add(ctx, "k1", 1)
	stats := c.Stats(ctx)
	if stats.Backend != "memory" {
		t.Errorf("expected backend=memory after primary failure, got %q", stats.Backend)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	c := New(nil, NewMemoryBackend(), clock, 10, time.Minute)

	c.Add(ctx, "k1", 1)
	clock.Set(time.Unix(1000, 0).Add(2 * time.Minute))

	entries, _ := c.GetRecent(ctx, 10)
	if len(entries) != 0 {
		t.Errorf("expected entry to have expired, got %d entries", len(entries))
	}
}

func TestCacheStatsReportsSize(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	c := New(nil, NewMemoryBackend(), clock, 10, time.Hour)
	c.Add(ctx, "k1", 1)
	c.Add(ctx, "k2", 2)

	stats := c.Stats(ctx)
	if stats.CurrentSize != 2 {
		t.Errorf("CurrentSize = %d, want 2", stats.CurrentSize)
	}
	if stats.TotalIngested != 2 {
		t.Errorf("TotalIngested = %d, want 2", stats.TotalIngested)
	}
	if stats.Backend != "memory" {
		t.Errorf("Backend = %q, want memory (no primary configured)", stats.Backend)
	}
}
