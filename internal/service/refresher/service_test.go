package refresher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/pkg/distlock"
	"github.com/adpulse/metrics-engine/internal/revenue"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// fixtures backs every resolver store plus the refresher's own reads.
type fixtures struct {
	campaign *domain.Campaign
	conn     *domain.Connection
	sources  []domain.RevenueSource
	events   []domain.ConversionEvent
	imported float64
	rows     []domain.CanonicalRow

	cleared  []string
	rangeErr error
}

func (f *fixtures) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	if f.campaign == nil || f.campaign.ID != id {
		return nil, revenue.ErrNotFound
	}
	return f.campaign, nil
}

func (f *fixtures) GetConnection(_ context.Context, _ string, _ domain.Platform) (*domain.Connection, error) {
	if f.conn == nil {
		return nil, revenue.ErrNotFound
	}
	return f.conn, nil
}

func (f *fixtures) ClearConversionValue(_ context.Context, id string) error {
	f.cleared = append(f.cleared, id)
	return nil
}

func (f *fixtures) ListSources(_ context.Context, _ string, _ domain.Platform) ([]domain.RevenueSource, error) {
	return f.sources, nil
}

func (f *fixtures) RevenueTotalForRange(_ context.Context, _ string, _ domain.Platform, _, _ time.Time) (float64, error) {
	return f.imported, nil
}

func (f *fixtures) EventsForRange(_ context.Context, _ string, _, _ time.Time) ([]domain.ConversionEvent, error) {
	return f.events, nil
}

func (f *fixtures) ListActive(_ context.Context) ([]domain.Campaign, error) {
	if f.campaign == nil {
		return nil, nil
	}
	return []domain.Campaign{*f.campaign}, nil
}

func (f *fixtures) Range(_ context.Context, name string, _ domain.Platform, _, _ string) ([]domain.CanonicalRow, error) {
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	var out []domain.CanonicalRow
	for _, r := range f.rows {
		if r.CampaignName == name {
			out = append(out, r)
		}
	}
	return out, nil
}

func fv(v float64) *float64 { return &v }

func newFixtures() *fixtures {
	created := testNow.AddDate(0, 0, -60)
	return &fixtures{
		campaign: &domain.Campaign{
			ID:        "c1",
			Name:      "Summer Sale",
			Platform:  domain.PlatformLinkedIn,
			Status:    domain.CampaignActive,
			CreatedAt: created,
		},
	}
}

func newService(f *fixtures, rdb *redis.Client, cache *revenue.Cache) *Service {
	resolver := revenue.NewResolver(f, f, f, f)
	svc := NewService(f, f, resolver, cache, rdb, nil, time.Minute)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestRefreshComputesConversionsFromRows(t *testing.T) {
	f := newFixtures()
	f.conn = &domain.Connection{ID: "conn1", CampaignID: "c1", ConversionValue: fv(5.00)}
	f.sources = []domain.RevenueSource{{
		ID: "s1", CampaignID: "c1", IsActive: true,
		SourceType: domain.SourceTypeCSV,
		Mapping:    domain.SourceMapping{Mode: domain.ModeRevenue},
	}}
	f.imported = 10
	f.rows = []domain.CanonicalRow{
		{CampaignName: "Summer Sale", Platform: domain.PlatformLinkedIn, Date: "2024-05-20", Conversions: fv(30)},
		{CampaignName: "Summer Sale", Platform: domain.PlatformLinkedIn, Date: "2024-05-21", Conversions: fv(10)},
	}

	svc := newService(f, nil, nil)
	rc, err := svc.Refresh(context.Background(), f.campaign, domain.PlatformLinkedIn, nil)
	require.NoError(t, err)

	// 40 conversions x 5.00 explicit value.
	assert.Equal(t, domain.ValueSourceConnection, rc.Source)
	assert.InDelta(t, 200.00, rc.TotalRevenue, 0.001)
	assert.Empty(t, f.cleared)
}

func TestRefreshCleansCampaignNameForRowLookup(t *testing.T) {
	f := newFixtures()
	// Imports store rows under the cleaned name; the lookup must match.
	f.campaign.Name = "Spring Sale (US)!"
	f.conn = &domain.Connection{ID: "conn1", CampaignID: "c1", ConversionValue: fv(5.00)}
	f.sources = []domain.RevenueSource{{
		ID: "s1", CampaignID: "c1", IsActive: true,
		SourceType: domain.SourceTypeCSV,
		Mapping:    domain.SourceMapping{Mode: domain.ModeRevenue},
	}}
	f.imported = 10
	f.rows = []domain.CanonicalRow{
		{CampaignName: "Spring Sale US", Platform: domain.PlatformLinkedIn, Date: "2024-05-20", Conversions: fv(10)},
	}

	svc := newService(f, nil, nil)
	rc, err := svc.Refresh(context.Background(), f.campaign, domain.PlatformLinkedIn, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ValueSourceConnection, rc.Source)
	assert.InDelta(t, 50.00, rc.TotalRevenue, 0.001)
}

func TestRefreshDegradesWhenRowsUnavailable(t *testing.T) {
	f := newFixtures()
	f.rangeErr = errors.New("connection refused")
	f.events = []domain.ConversionEvent{{Value: 120.00}}

	svc := newService(f, nil, nil)
	rc, err := svc.Refresh(context.Background(), f.campaign, domain.PlatformLinkedIn, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ValueSourceWebhookEvents, rc.Source)
	assert.InDelta(t, 120.00, rc.TotalRevenue, 0.001)
}

func TestContextServesWarmCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := revenue.NewCache(rdb)
	f := newFixtures()
	f.events = []domain.ConversionEvent{{Value: 50.00}}
	svc := newService(f, rdb, cache)
	ctx := context.Background()

	first, err := svc.Context(ctx, f.campaign, domain.PlatformLinkedIn, nil)
	require.NoError(t, err)
	assert.InDelta(t, 50.00, first.TotalRevenue, 0.001)

	// The second read must come from the cache: change the backing data
	// and verify the answer does not move.
	f.events = []domain.ConversionEvent{{Value: 999.00}}
	second, err := svc.Context(ctx, f.campaign, domain.PlatformLinkedIn, nil)
	require.NoError(t, err)
	assert.InDelta(t, 50.00, second.TotalRevenue, 0.001)
}

func TestRefreshBusyWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newFixtures()
	svc := newService(f, rdb, nil)
	ctx := context.Background()

	held := distlock.NewRedisLock(rdb, distlock.ResolveKey("c1", "linkedin"), time.Minute)
	ok, err := held.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Refresh(ctx, f.campaign, domain.PlatformLinkedIn, nil)
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, held.Release(ctx))
	_, err = svc.Refresh(ctx, f.campaign, domain.PlatformLinkedIn, nil)
	assert.NoError(t, err)
}

func TestRefreshAllSweepsActiveCampaigns(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := revenue.NewCache(rdb)
	f := newFixtures()
	f.events = []domain.ConversionEvent{{Value: 75.50}}
	svc := newService(f, rdb, cache)
	ctx := context.Background()

	require.NoError(t, svc.RefreshAll(ctx))

	cached := cache.Get(ctx, "c1", domain.PlatformLinkedIn)
	require.NotNil(t, cached)
	assert.InDelta(t, 75.50, cached.TotalRevenue, 0.001)
}
