package domain

import "time"

// CampaignStatus enumerates the lifecycle states of an ad campaign.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignDraft     CampaignStatus = "draft"
)

// Campaign represents an advertising campaign tracked by the platform.
// Aggregated per-day metrics live in performance records, not here.
type Campaign struct {
	ID        string         `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Objective string         `json:"objective" db:"objective"`
	Platform  Platform       `json:"platform" db:"platform"`
	Status    CampaignStatus `json:"status" db:"status"`

	// StartDate is the campaign's launch date when it differs from the
	// record's creation time (e.g. campaigns imported mid-flight).
	StartDate *time.Time `json:"start_date" db:"start_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LaunchedAt returns the date revenue windows are clipped against: the
// explicit start date when set, else the record creation time.
func (c *Campaign) LaunchedAt() time.Time {
	if c.StartDate != nil {
		return *c.StartDate
	}
	return c.CreatedAt
}

// IsFinished returns true if the campaign no longer accrues spend.
func (c *Campaign) IsFinished() bool {
	return c.Status == CampaignCompleted
}
