package campaign

import (
	"context"
	"time"

	"github.com/adpulse/metrics-engine/internal/domain"
)

// Repository defines the data access contract for campaigns and their
// platform connections. Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns campaigns matching the given filter, ordered by created_at DESC.
	List(ctx context.Context, filter ListFilter) ([]domain.Campaign, int, error)

	// Create inserts a new campaign and returns its ID.
	Create(ctx context.Context, c *domain.Campaign) (string, error)

	// Update modifies a campaign. Only non-nil fields in the update are applied.
	Update(ctx context.Context, id string, u UpdateFields) error

	// Delete removes a campaign. Only draft campaigns can be deleted.
	Delete(ctx context.Context, id string) error

	// UpdateStatus transitions a campaign's status.
	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error

	// GetConnection returns the campaign's connection for one platform.
	// Absence is reported with revenue.ErrNotFound, the sentinel the
	// resolver shares for connection reads.
	GetConnection(ctx context.Context, campaignID string, platform domain.Platform) (*domain.Connection, error)

	// UpsertConnection creates or replaces the connection for the
	// campaign+platform pair and returns its ID.
	UpsertConnection(ctx context.Context, conn *domain.Connection) (string, error)

	// SetConversionValue writes the operator-configured conversion value on
	// the campaign's connection. A nil value clears it. Returns
	// revenue.ErrNotFound when no connection exists.
	SetConversionValue(ctx context.Context, campaignID string, platform domain.Platform, value *float64) error
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status   string
	Platform string
	Search   string
	Limit    int
	Offset   int
}

// UpdateFields holds the mutable fields for a campaign update.
// Nil fields are not applied.
type UpdateFields struct {
	Name      *string
	Objective *string
	StartDate *time.Time
}
