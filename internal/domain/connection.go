package domain

import "time"

// ConnectionStatus enumerates the health states of a platform connection.
type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionError        ConnectionStatus = "error"
)

// Connection represents a campaign's link to its ad platform account.
// Token exchange happens outside this system; the credential fields are
// opaque strings handed to us by the caller.
type Connection struct {
	ID         string           `json:"id" db:"id"`
	CampaignID string           `json:"campaign_id" db:"campaign_id"`
	Platform   Platform         `json:"platform" db:"platform"`
	Status     ConnectionStatus `json:"status" db:"status"`
	AccountID  string           `json:"account_id" db:"account_id"`
	APIKey     string           `json:"-" db:"api_key"`

	// ConversionValue is an operator-configured revenue-per-conversion
	// figure. It is advisory: the revenue resolver clears it when the
	// revenue source that justified it no longer exists.
	ConversionValue *float64 `json:"conversion_value" db:"conversion_value"`

	LastSyncAt *time.Time `json:"last_sync_at" db:"last_sync_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// HasConversionValue reports whether an explicit positive conversion value
// is configured.
func (c *Connection) HasConversionValue() bool {
	return c.ConversionValue != nil && *c.ConversionValue > 0
}
