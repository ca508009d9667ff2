package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend is the in-process bounded-deque fallback backend used
// when the primary kv-store is unreachable (spec §4.5). It is always
// "healthy".
type MemoryBackend struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Add(_ context.Context, e Entry, maxSize int, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	sort.SliceStable(m.entries, func(i, j int) bool { return m.entries[i].Timestamp < m.entries[j].Timestamp })
	if maxSize > 0 && len(m.entries) > maxSize {
		m.entries = m.entries[len(m.entries)-maxSize:]
	}
	return nil
}

func (m *MemoryBackend) Recent(_ context.Context, limit int, ttl time.Duration, now time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var valid []Entry
	for _, e := range m.entries {
		age := now.Sub(time.Unix(int64(e.Timestamp), 0))
		if ttl <= 0 || age <= ttl {
			valid = append(valid, e)
		}
	}
	// Most recent first.
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Timestamp > valid[j].Timestamp })
	if limit > 0 && len(valid) > limit {
		valid = valid[:limit]
	}
	return valid, nil
}

func (m *MemoryBackend) Range(_ context.Context, startS, endS float64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.Timestamp >= startS && e.Timestamp <= endS {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryBackend) All(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

func (m *MemoryBackend) Healthy(_ context.Context) bool { return true }

func (m *MemoryBackend) Name() string { return "memory" }

var _ Backend = (*MemoryBackend)(nil)
