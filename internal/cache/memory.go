package cache

import (
	"context"
	"sync"
	"time"

	"collectdash/pkg/contracts/domain"
)

type memoryEntry struct {
	snapshot  *domain.DashboardSnapshot
	expiresAt time.Time
}

// MemoryCache keeps snapshots in process memory. Stored and returned
// snapshots are deep copies.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[int64]memoryEntry
	maxSize   int
	now       func() time.Time
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewMemoryCache creates a cache holding at most maxSize epochs and starts a
// background sweep of expired entries. Call Stop to end it.
func NewMemoryCache(maxSize int, sweepEvery time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 4
	}
	c := &MemoryCache{
		entries:  make(map[int64]memoryEntry),
		maxSize:  maxSize,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.cleanup(sweepEvery)
	}
	return c
}

// Backend implements SnapshotCache.
func (c *MemoryCache) Backend() string { return "memory" }

// Get implements SnapshotCache.
func (c *MemoryCache) Get(_ context.Context, epoch int64) (*domain.DashboardSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[epoch]
	if !ok || !c.now().Before(entry.expiresAt) {
		c.missCount++
		return nil, false, nil
	}
	c.hitCount++
	return entry.snapshot.Clone(), true, nil
}

// Set implements SnapshotCache.
func (c *MemoryCache) Set(_ context.Context, snap *domain.DashboardSnapshot, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[snap.Epoch]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[snap.Epoch] = memoryEntry{snapshot: snap.Clone(), expiresAt: expiresAt}
	return nil
}

// Invalidate implements SnapshotCache.
func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]memoryEntry)
	return nil
}

// Stats returns hit and miss counts and the number of live entries.
func (c *MemoryCache) Stats() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hitCount + c.missCount
	ratio := 0.0
	if total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}
	return map[string]any{
		"entries":    len(c.entries),
		"max_size":   c.maxSize,
		"hit_count":  c.hitCount,
		"miss_count": c.missCount,
		"hit_ratio":  ratio,
	}
}

// Stop ends the background sweep.
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

// evictOldest drops the lowest epoch. Caller holds mu.
func (c *MemoryCache) evictOldest() {
	first := true
	var oldest int64
	for epoch := range c.entries {
		if first || epoch < oldest {
			oldest, first = epoch, false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}

func (c *MemoryCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for epoch, entry := range c.entries {
				if !now.Before(entry.expiresAt) {
					delete(c.entries, epoch)
				}
			}
			c.mu.Unlock()
		case <-c.stopChan:
			return
		}
	}
}
