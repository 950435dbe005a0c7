package revenue

import (
	"context"
	"time"

	"github.com/adpulse/metrics-engine/internal/domain"
)

// CampaignStore supplies the campaign record whose launch date clips the
// analysis window.
type CampaignStore interface {
	// GetCampaign returns a campaign by ID. Returns ErrNotFound if it
	// doesn't exist.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
}

// ConnectionStore reads and patches platform connection records.
// Implementations must be safe for concurrent use.
type ConnectionStore interface {
	// GetConnection returns the connection for a campaign+platform.
	// Returns ErrNotFound when none is configured.
	GetConnection(ctx context.Context, campaignID string, platform domain.Platform) (*domain.Connection, error)

	// ClearConversionValue nulls a stored conversion value left behind by
	// a deleted revenue-source configuration.
	ClearConversionValue(ctx context.Context, connectionID string) error
}

// SourceStore lists revenue-source configurations and aggregates their
// imported revenue rows.
type SourceStore interface {
	// ListSources returns every revenue source configured for the
	// campaign+platform, active or not.
	ListSources(ctx context.Context, campaignID string, platform domain.Platform) ([]domain.RevenueSource, error)

	// RevenueTotalForRange sums imported revenue rows inside the window.
	RevenueTotalForRange(ctx context.Context, campaignID string, platform domain.Platform, start, end time.Time) (float64, error)
}

// EventStore queries the real-time conversion event feed.
type EventStore interface {
	// EventsForRange returns conversion events logged inside the window.
	EventsForRange(ctx context.Context, campaignID string, start, end time.Time) ([]domain.ConversionEvent, error)
}
