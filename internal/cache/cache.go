package cache

import (
	"context"
	"time"

	"collectdash/pkg/contracts/domain"
)

// SnapshotCache stores dashboard snapshots keyed by cache epoch. An entry is
// only valid within its epoch window.
type SnapshotCache interface {
	// Get returns the snapshot computed for epoch, if still cached.
	Get(ctx context.Context, epoch int64) (*domain.DashboardSnapshot, bool, error)
	// Set stores snap under snap.Epoch until expiresAt.
	Set(ctx context.Context, snap *domain.DashboardSnapshot, expiresAt time.Time) error
	// Invalidate drops every cached snapshot.
	Invalidate(ctx context.Context) error
	// Backend names the implementation for logs and metrics.
	Backend() string
}

// Epoch returns the cache epoch containing now. All instants within the same
// ttl-aligned window share an epoch.
func Epoch(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return now.UnixNano()
	}
	return now.UnixNano() / int64(ttl)
}

// EpochEnd returns the first instant after the epoch window.
func EpochEnd(epoch int64, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Unix(0, epoch)
	}
	return time.Unix(0, (epoch+1)*int64(ttl))
}
