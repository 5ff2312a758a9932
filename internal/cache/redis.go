package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apierrors "collectdash/internal/errors"
	"collectdash/pkg/contracts/domain"
)

// RedisCache stores JSON-encoded snapshots in Redis so several dashboard
// instances share one computation per epoch.
type RedisCache struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisCache wraps an existing client. Keys are prefix + epoch.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, now: time.Now}
}

// Backend implements SnapshotCache.
func (c *RedisCache) Backend() string { return "redis" }

func (c *RedisCache) key(epoch int64) string {
	return c.prefix + strconv.FormatInt(epoch, 10)
}

// Get implements SnapshotCache.
func (c *RedisCache) Get(ctx context.Context, epoch int64) (*domain.DashboardSnapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.key(epoch)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apierrors.NewStorageError(fmt.Sprintf("redis get snapshot %d", epoch), err)
	}

	var snap domain.DashboardSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, apierrors.NewParsingError(fmt.Sprintf("decode snapshot %d", epoch), err)
	}
	return &snap, true, nil
}

// Set implements SnapshotCache. Snapshots whose window already closed are
// not written.
func (c *RedisCache) Set(ctx context.Context, snap *domain.DashboardSnapshot, expiresAt time.Time) error {
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", snap.Epoch, err)
	}
	if err := c.client.Set(ctx, c.key(snap.Epoch), raw, ttl).Err(); err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("redis set snapshot %d", snap.Epoch), err)
	}
	return nil
}

// Invalidate implements SnapshotCache.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return apierrors.NewStorageError("redis scan snapshots", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return apierrors.NewStorageError("redis delete snapshots", err)
	}
	return nil
}

// Ping checks that the Redis server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
