package revenue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/metrics-engine/internal/domain"
)

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewCache(rdb)
	ctx := context.Background()

	assert.Nil(t, c.Get(ctx, "c1", domain.PlatformLinkedIn), "cold cache misses")

	rc := &domain.RevenueContext{
		HasRevenueTracking: true,
		TotalRevenue:       120.00,
		Source:             domain.ValueSourceWebhookEvents,
		WindowStart:        time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
		WindowEnd:          time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	}
	c.Put(ctx, "c1", domain.PlatformLinkedIn, rc)

	got := c.Get(ctx, "c1", domain.PlatformLinkedIn)
	require.NotNil(t, got)
	assert.Equal(t, *rc, *got)

	assert.Nil(t, c.Get(ctx, "c1", domain.PlatformGoogle), "platform is part of the key")
}

func TestCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewCache(rdb)
	ctx := context.Background()

	c.Put(ctx, "c1", domain.PlatformLinkedIn, &domain.RevenueContext{TotalRevenue: 1})
	require.NotNil(t, c.Get(ctx, "c1", domain.PlatformLinkedIn))

	mr.FastForward(cacheTTL + time.Second)
	assert.Nil(t, c.Get(ctx, "c1", domain.PlatformLinkedIn))
}

func TestCacheInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewCache(rdb)
	ctx := context.Background()

	c.Put(ctx, "c2", domain.PlatformGoogle, &domain.RevenueContext{TotalRevenue: 2})
	c.Invalidate(ctx, "c2", domain.PlatformGoogle)
	assert.Nil(t, c.Get(ctx, "c2", domain.PlatformGoogle))
}

func TestCacheNilReceiver(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.Nil(t, c.Get(ctx, "c1", domain.PlatformLinkedIn))
	c.Put(ctx, "c1", domain.PlatformLinkedIn, &domain.RevenueContext{})
	c.Invalidate(ctx, "c1", domain.PlatformLinkedIn)
}
