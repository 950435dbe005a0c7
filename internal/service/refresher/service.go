package refresher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/normalize"
	"github.com/adpulse/metrics-engine/internal/pkg/distlock"
	"github.com/adpulse/metrics-engine/internal/revenue"
)

// ErrBusy means another process holds the resolution lock for this
// campaign+platform right now. Callers should retry shortly or serve the
// cached context.
var ErrBusy = errors.New("revenue resolution already in progress")

// CampaignLister supplies the campaigns the periodic sweep walks.
type CampaignLister interface {
	// ListActive returns campaigns currently accruing spend.
	ListActive(ctx context.Context) ([]domain.Campaign, error)
}

// RowReader sums stored performance rows for the conversion total.
type RowReader interface {
	Range(ctx context.Context, campaignName string, platform domain.Platform, startDate, endDate string) ([]domain.CanonicalRow, error)
}

// Service wraps the revenue resolver with locking, conversion-total
// computation, and caching.
type Service struct {
	campaigns CampaignLister
	rows      RowReader
	resolver  *revenue.Resolver
	cache     *revenue.Cache

	// Lock backends; either may be nil, distlock picks what's available.
	redis *redis.Client
	db    *sql.DB

	lockTTL time.Duration
	now     func() time.Time
}

// NewService creates a refresher. cache, rdb, and db are optional; with
// both lock backends nil resolution proceeds unserialized, which is only
// acceptable in single-process deployments.
func NewService(campaigns CampaignLister, rows RowReader, resolver *revenue.Resolver, cache *revenue.Cache, rdb *redis.Client, db *sql.DB, lockTTL time.Duration) *Service {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Service{
		campaigns: campaigns,
		rows:      rows,
		resolver:  resolver,
		cache:     cache,
		redis:     rdb,
		db:        db,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

// Context returns the revenue context for one campaign+platform, serving
// the cache when it is warm. A cold cache triggers a locked resolution;
// ErrBusy is returned when another process is mid-resolution.
func (s *Service) Context(ctx context.Context, c *domain.Campaign, platform domain.Platform, sessionValue *float64) (*domain.RevenueContext, error) {
	if rc := s.cache.Get(ctx, c.ID, platform); rc != nil {
		return rc, nil
	}
	return s.Refresh(ctx, c, platform, sessionValue)
}

// Refresh resolves fresh figures regardless of cache state and stores the
// result. The resolve-with-clearing sequence runs under the campaign+
// platform lock.
func (s *Service) Refresh(ctx context.Context, c *domain.Campaign, platform domain.Platform, sessionValue *float64) (*domain.RevenueContext, error) {
	if s.redis != nil || s.db != nil {
		lock := distlock.NewLock(s.redis, s.db, distlock.ResolveKey(c.ID, string(platform)), s.lockTTL)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire resolve lock: %w", err)
		}
		if !ok {
			return nil, ErrBusy
		}
		defer func() {
			if rerr := lock.Release(ctx); rerr != nil && !errors.Is(rerr, distlock.ErrNotHeld) {
				log.Printf("[refresher] release lock for %s/%s: %v", c.ID, platform, rerr)
			}
		}()
	}

	conversions, err := s.conversionsTotal(ctx, c, platform)
	if err != nil {
		// Missing conversion totals degrade to zero: the resolver can
		// still answer from events or imported revenue.
		log.Printf("[refresher] conversion total for %s/%s: %v", c.ID, platform, err)
		conversions = 0
	}

	rc, err := s.resolver.Resolve(ctx, c.ID, platform, conversions, sessionValue)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, c.ID, platform, rc)
	return rc, nil
}

// RefreshAll sweeps every active campaign once. Per-campaign failures are
// logged and skipped; the sweep itself fails only when the campaign list
// cannot be read.
func (s *Service) RefreshAll(ctx context.Context) error {
	campaigns, err := s.campaigns.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active campaigns: %w", err)
	}
	refreshed := 0
	for i := range campaigns {
		c := &campaigns[i]
		if _, err := s.Refresh(ctx, c, c.Platform, nil); err != nil {
			if errors.Is(err, ErrBusy) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[refresher] refresh %s/%s: %v", c.ID, c.Platform, err)
			continue
		}
		refreshed++
	}
	log.Printf("[refresher] swept %d campaigns, refreshed %d", len(campaigns), refreshed)
	return nil
}

// conversionsTotal sums stored conversions over the resolver's window so
// both sides of the explicit-value multiplication agree on the range.
// Performance rows are keyed by the cleaned campaign name, so the lookup
// cleans the configured name the same way the import pipeline does.
func (s *Service) conversionsTotal(ctx context.Context, c *domain.Campaign, platform domain.Platform) (float64, error) {
	start, end := revenue.AnalysisWindow(c, s.now())
	rows, err := s.rows.Range(ctx, normalize.CampaignName(c.Name), platform,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range rows {
		if r.Conversions != nil {
			total += *r.Conversions
		}
	}
	return total, nil
}
