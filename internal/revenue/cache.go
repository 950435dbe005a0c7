package revenue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adpulse/metrics-engine/internal/domain"
)

// cacheTTL keeps resolved contexts hot briefly. Resolution is cheap to
// recompute, and anything older than a few minutes misleads dashboards.
const cacheTTL = 5 * time.Minute

// Cache memoizes resolved revenue contexts in Redis. The cache is advisory:
// every failure reads as a miss. A nil *Cache is safe to use and never
// touches the network, so callers can wire it optionally.
type Cache struct {
	rdb *redis.Client
}

// NewCache creates a cache on top of an existing Redis client.
func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func cacheKey(campaignID string, platform domain.Platform) string {
	return fmt.Sprintf("revctx:%s:%s", campaignID, platform)
}

// Get returns the cached context, or nil on miss.
func (c *Cache) Get(ctx context.Context, campaignID string, platform domain.Platform) *domain.RevenueContext {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey(campaignID, platform)).Bytes()
	if err != nil {
		return nil
	}
	var rc domain.RevenueContext
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil
	}
	return &rc
}

// Put stores a resolved context under the standard TTL.
func (c *Cache) Put(ctx context.Context, campaignID string, platform domain.Platform, rc *domain.RevenueContext) {
	if c == nil || c.rdb == nil || rc == nil {
		return
	}
	raw, err := json.Marshal(rc)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(campaignID, platform), raw, cacheTTL).Err(); err != nil {
		log.Printf("[revenue] cache write failed for campaign %s: %v", campaignID, err)
	}
}

// Invalidate drops the cached context. Called after imports and after
// revenue-source or connection edits.
func (c *Cache) Invalidate(ctx context.Context, campaignID string, platform domain.Platform) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(campaignID, platform)).Err(); err != nil {
		log.Printf("[revenue] cache invalidate failed for campaign %s: %v", campaignID, err)
	}
}
