package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectdash/pkg/contracts/domain"
)

func snapshot(epoch int64) *domain.DashboardSnapshot {
	return &domain.DashboardSnapshot{
		Epoch:      epoch,
		ComputedAt: time.Unix(1_700_000_000, 0).UTC(),
		Agents:     []string{"Alice", "Bob"},
		Warnings:   []domain.BatchWarning{{Batch: "Carol", Message: "quota"}},
		Report: domain.CollectionsReport{
			TotalCollected: 250,
			RecordCount:    3,
			Agents: domain.AgentTotalsTable{
				States: []string{"Arrears"},
				Rows:   []domain.AgentTotalsRow{{Agent: "Alice", States: []float64{250}, Collections: 250, ConversionRate: 1}},
			},
		},
	}
}

func TestEpoch(t *testing.T) {
	ttl := time.Minute
	base := time.Unix(600, 0)

	assert.Equal(t, Epoch(base, ttl), Epoch(base.Add(59*time.Second), ttl))
	assert.Equal(t, Epoch(base, ttl)+1, Epoch(base.Add(60*time.Second), ttl))
	assert.Equal(t, base.Add(time.Minute), EpochEnd(Epoch(base, ttl), ttl))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, 0)
	defer c.Stop()

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, snapshot(1), now.Add(time.Minute)))

	got, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snapshot(1), got)

	got.Agents[0] = "mutated"
	got.Report.Agents.Rows[0].States[0] = -1
	again, _, _ := c.Get(ctx, 1)
	assert.Equal(t, "Alice", again.Agents[0])
	assert.Equal(t, 250.0, again.Report.Agents.Rows[0].States[0])

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, 1)
	assert.False(t, ok, "entry must expire at its bound")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats["hit_count"])
	assert.Equal(t, int64(2), stats["miss_count"])
}

func TestMemoryCache_EvictsOldestEpoch(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, 0)
	defer c.Stop()
	far := time.Now().Add(time.Hour)

	require.NoError(t, c.Set(ctx, snapshot(5), far))
	require.NoError(t, c.Set(ctx, snapshot(6), far))
	require.NoError(t, c.Set(ctx, snapshot(7), far))

	_, ok, _ := c.Get(ctx, 5)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, 7)
	assert.True(t, ok)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, _ = c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestMemoryCache_Sweep(t *testing.T) {
	c := NewMemoryCache(4, 10*time.Millisecond)
	defer c.Stop()
	require.NoError(t, c.Set(context.Background(), snapshot(1), time.Now().Add(-time.Second)))

	assert.Eventually(t, func() bool {
		return c.Stats()["entries"] == 0
	}, time.Second, 10*time.Millisecond)
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, "test:snapshot:"), mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, snapshot(42), time.Now().Add(30*time.Second)))
	assert.True(t, mr.Exists("test:snapshot:42"))

	got, ok, err := c.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snapshot(42), got)

	mr.FastForward(31 * time.Second)
	_, ok, err = c.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_SkipsClosedWindow(t *testing.T) {
	c, mr := newRedisCache(t)
	require.NoError(t, c.Set(context.Background(), snapshot(1), time.Now().Add(-time.Second)))
	assert.False(t, mr.Exists("test:snapshot:1"))
}

func TestRedisCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set("unrelated", "x"))

	far := time.Now().Add(time.Hour)
	require.NoError(t, c.Set(ctx, snapshot(1), far))
	require.NoError(t, c.Set(ctx, snapshot(2), far))

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists("test:snapshot:1"))
	assert.False(t, mr.Exists("test:snapshot:2"))
	assert.True(t, mr.Exists("unrelated"))

	require.NoError(t, c.Invalidate(ctx))
}

func TestRedisCache_CorruptPayload(t *testing.T) {
	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set("test:snapshot:9", "{not json"))

	_, _, err := c.Get(context.Background(), 9)
	assert.Error(t, err)
}

func TestRedisCache_ServerDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()
	c := NewRedisCache(client, "test:snapshot:")

	_, _, err := c.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}
