package domain

import "time"

// SourceType enumerates the kinds of configured revenue sources.
type SourceType string

const (
	SourceTypeCSV         SourceType = "csv"
	SourceTypeSpreadsheet SourceType = "spreadsheet"
	SourceTypeManual      SourceType = "manual"
	SourceTypeWebhook     SourceType = "webhook"
	SourceTypeShopify     SourceType = "shopify"
)

// Revenue mapping modes. ModeRevenue sources contribute imported
// revenue-to-date rows; ModeConversionValue sources pin an explicit
// per-conversion value instead.
const (
	ModeRevenue         = "revenue"
	ModeConversionValue = "conversion_value"
)

// SourceMapping configures how a revenue source's data is interpreted.
type SourceMapping struct {
	Mode            string  `json:"mode"`
	ConversionValue float64 `json:"conversion_value,omitempty"`
}

// RevenueSource is a configured integration supplying revenue data for one
// campaign/platform pair.
type RevenueSource struct {
	ID         string        `json:"id" db:"id"`
	CampaignID string        `json:"campaign_id" db:"campaign_id"`
	Platform   Platform      `json:"platform" db:"platform"`
	SourceType SourceType    `json:"source_type" db:"source_type"`
	IsActive   bool          `json:"is_active" db:"is_active"`
	Mapping    SourceMapping `json:"mapping" db:"mapping"`

	// Order stats synced from Shopify-style sources. Zero for every other
	// source type.
	OrdersToDate  int     `json:"orders_to_date" db:"orders_to_date"`
	OrdersRevenue float64 `json:"orders_revenue" db:"orders_revenue"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RevenueRow is one imported revenue-to-date amount attributed to a day,
// supplied by a source in revenue mode (CSV column, spreadsheet sync).
type RevenueRow struct {
	ID         string    `json:"id" db:"id"`
	SourceID   string    `json:"source_id" db:"source_id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	Platform   Platform  `json:"platform" db:"platform"`
	Amount     float64   `json:"amount" db:"amount"`
	RecordedOn time.Time `json:"recorded_on" db:"recorded_on"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ConversionEvent is a single real-time conversion reported through the
// webhook feed, carrying the revenue attributed to that conversion.
type ConversionEvent struct {
	ID         string    `json:"id" db:"id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	Platform   Platform  `json:"platform" db:"platform"`
	Value      float64   `json:"value" db:"value"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ValueSource identifies which revenue source won the resolution for a
// campaign's conversion value.
type ValueSource string

const (
	ValueSourceWebhookEvents ValueSource = "webhook_events"
	ValueSourceConnection    ValueSource = "connection"
	ValueSourceSession       ValueSource = "session"
	ValueSourceCSV           ValueSource = "csv"
	ValueSourceManual        ValueSource = "manual"
	ValueSourceDerived       ValueSource = "derived"
	ValueSourceNone          ValueSource = "none"
)

// RevenueContext is the resolver's answer for one campaign+platform: the
// authoritative conversion value and total revenue, with attribution.
// It is recomputed on demand and never persisted as a source of truth.
type RevenueContext struct {
	HasRevenueTracking    bool        `json:"has_revenue_tracking"`
	TotalRevenue          float64     `json:"total_revenue"`
	ConversionValue       float64     `json:"conversion_value"`
	Source                ValueSource `json:"conversion_value_source"`
	ImportedRevenueToDate float64     `json:"imported_revenue_to_date"`
	WindowStart           time.Time   `json:"window_start"`
	WindowEnd             time.Time   `json:"window_end"`
}
