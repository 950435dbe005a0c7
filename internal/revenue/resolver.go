package revenue

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/adpulse/metrics-engine/internal/domain"
)

// windowDays is how far back from yesterday the analysis window reaches.
const windowDays = 29

// Resolver computes RevenueContext answers on demand. Safe for concurrent
// use if the underlying stores are; concurrent resolutions for the same
// campaign+platform should be serialized by the caller because of the
// stale-value clearing write.
type Resolver struct {
	campaigns   CampaignStore
	connections ConnectionStore
	sources     SourceStore
	events      EventStore

	now func() time.Time
}

// NewResolver creates a resolver backed by the given stores.
func NewResolver(campaigns CampaignStore, connections ConnectionStore, sources SourceStore, events EventStore) *Resolver {
	return &Resolver{
		campaigns:   campaigns,
		connections: connections,
		sources:     sources,
		events:      events,
		now:         time.Now,
	}
}

// Resolve returns the authoritative revenue figures for one campaign and
// platform. conversionsTotal is the conversion count for the analysis
// window; sessionValue is an optional legacy per-conversion value supplied
// by the caller's session state.
//
// Priority, highest first, winner never mixed with lower sources:
//
//  1. summed webhook conversion-event revenue in the window
//  2. an explicitly configured conversion value (connection record, then
//     an active source in conversion_value mode, then the session value,
//     which is honored only when no imported revenue exists)
//  3. imported revenue-to-date, used directly as the total
//  4. derived value = imported total / conversions
//  5. none
//
// Store failures degrade to the next source rather than failing the
// resolution; only context cancellation propagates. Monetary outputs are
// rounded to 2 decimals at return, never earlier.
func (r *Resolver) Resolve(ctx context.Context, campaignID string, platform domain.Platform, conversionsTotal float64, sessionValue *float64) (*domain.RevenueContext, error) {
	campaign, err := r.campaigns.GetCampaign(ctx, campaignID)
	if perr := r.report(ctx, campaignID, "campaign record", err); perr != nil {
		return nil, perr
	}
	start, end := r.window(campaign)

	var eventTotal float64
	events, err := r.events.EventsForRange(ctx, campaignID, start, end)
	if perr := r.report(ctx, campaignID, "conversion event feed", err); perr != nil {
		return nil, perr
	}
	for _, ev := range events {
		eventTotal += ev.Value
	}

	sources, err := r.sources.ListSources(ctx, campaignID, platform)
	if perr := r.report(ctx, campaignID, "revenue source list", err); perr != nil {
		return nil, perr
	}
	var active []domain.RevenueSource
	for _, s := range sources {
		if s.IsActive {
			active = append(active, s)
		}
	}

	imported, err := r.sources.RevenueTotalForRange(ctx, campaignID, platform, start, end)
	if perr := r.report(ctx, campaignID, "imported revenue total", err); perr != nil {
		return nil, perr
	}
	if err != nil {
		imported = 0
	}

	conn, err := r.connections.GetConnection(ctx, campaignID, platform)
	if perr := r.report(ctx, campaignID, "platform connection", err); perr != nil {
		return nil, perr
	}
	if err != nil {
		conn = nil
	}

	// Stale-state self-healing: a connection value with zero active sources
	// and zero imported revenue is leftover from a deleted configuration
	// and must not keep inflating revenue.
	if conn != nil && conn.HasConversionValue() && len(active) == 0 && imported == 0 {
		if cerr := r.connections.ClearConversionValue(ctx, conn.ID); cerr != nil {
			if perr := r.report(ctx, campaignID, "stale value clear", cerr); perr != nil {
				return nil, perr
			}
		} else {
			log.Printf("[revenue] cleared stale conversion value %.2f on connection %s", *conn.ConversionValue, conn.ID)
		}
		conn.ConversionValue = nil
	}

	// Explicit conversion value: connection record first, then an active
	// source in conversion_value mode, then the legacy session value.
	var explicit float64
	explicitFrom := domain.ValueSourceNone
	if conn != nil && conn.HasConversionValue() {
		explicit = *conn.ConversionValue
		explicitFrom = domain.ValueSourceConnection
	} else {
		for _, s := range active {
			if s.Mapping.Mode == domain.ModeConversionValue && s.Mapping.ConversionValue > 0 {
				explicit = s.Mapping.ConversionValue
				explicitFrom = sourceLabel(s.SourceType)
				break
			}
		}
		// A session value with imported revenue behind it is stale state,
		// not a configuration.
		if explicitFrom == domain.ValueSourceNone && sessionValue != nil && *sessionValue > 0 && imported == 0 {
			explicit = *sessionValue
			explicitFrom = domain.ValueSourceSession
		}
	}

	rc := &domain.RevenueContext{
		Source:      domain.ValueSourceNone,
		WindowStart: start,
		WindowEnd:   end,
	}

	switch {
	case eventTotal > 0:
		// Event revenue alone is authoritative; no per-unit value is
		// derived from it.
		rc.TotalRevenue = eventTotal
		rc.Source = domain.ValueSourceWebhookEvents
	case explicitFrom != domain.ValueSourceNone:
		rc.ConversionValue = explicit
		rc.TotalRevenue = explicit * conversionsTotal
		rc.Source = explicitFrom
	case imported > 0:
		rc.TotalRevenue = imported
		if conversionsTotal > 0 {
			rc.ConversionValue = imported / conversionsTotal
			rc.Source = domain.ValueSourceDerived
		} else {
			rc.Source = importedLabel(active)
		}
	default:
		if value, revenue, ok := shopifyOrderValue(active); ok {
			// Storefront average order value stands in for a per-conversion
			// figure. The denominator is order count, not ad conversions.
			rc.ConversionValue = value
			rc.TotalRevenue = revenue
			rc.Source = domain.ValueSourceDerived
		}
	}

	rc.ImportedRevenueToDate = round2(imported)
	rc.TotalRevenue = round2(rc.TotalRevenue)
	rc.ConversionValue = round2(rc.ConversionValue)
	rc.HasRevenueTracking = eventTotal > 0 || rc.ConversionValue > 0 || imported > 0
	return rc, nil
}

// report logs a store failure and returns nil so resolution degrades to the
// next source. Only context cancellation is returned for propagation.
// ErrNotFound is absence, not failure, and is never logged.
func (r *Resolver) report(ctx context.Context, campaignID, what string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	log.Printf("[revenue] %s unavailable for campaign %s: %v", what, campaignID, err)
	return nil
}

// window returns the analysis range for this resolver's clock.
func (r *Resolver) window(c *domain.Campaign) (time.Time, time.Time) {
	return AnalysisWindow(c, r.now())
}

// AnalysisWindow returns the rolling revenue range at time now: yesterday
// (UTC) back windowDays more days, clipped forward to the campaign launch
// date, with start never after end. Callers computing conversion totals
// for Resolve must use the same window.
func AnalysisWindow(c *domain.Campaign, now time.Time) (time.Time, time.Time) {
	end := dayUTC(now.AddDate(0, 0, -1))
	start := end.AddDate(0, 0, -windowDays)
	if c != nil {
		if launch := dayUTC(c.LaunchedAt()); launch.After(start) {
			start = launch
		}
	}
	if start.After(end) {
		start = end
	}
	return start, end
}

func sourceLabel(t domain.SourceType) domain.ValueSource {
	if t == domain.SourceTypeManual {
		return domain.ValueSourceManual
	}
	return domain.ValueSourceCSV
}

func importedLabel(active []domain.RevenueSource) domain.ValueSource {
	for _, s := range active {
		if s.Mapping.Mode == domain.ModeRevenue || s.Mapping.Mode == "" {
			return sourceLabel(s.SourceType)
		}
	}
	return domain.ValueSourceCSV
}

func shopifyOrderValue(sources []domain.RevenueSource) (value, revenue float64, ok bool) {
	for _, s := range sources {
		if s.SourceType != domain.SourceTypeShopify {
			continue
		}
		if s.OrdersRevenue > 0 && s.OrdersToDate > 0 {
			return s.OrdersRevenue / float64(s.OrdersToDate), s.OrdersRevenue, true
		}
	}
	return 0, 0, false
}

func dayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
