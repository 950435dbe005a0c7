package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/revenue"
)

// Connection methods of CampaignRepo. Absence is reported with
// revenue.ErrNotFound: the conversion-value lifecycle belongs to the
// revenue resolver, and the campaign service passes the sentinel through.

func (r *CampaignRepo) GetConnection(ctx context.Context, campaignID string, platform domain.Platform) (*domain.Connection, error) {
	c := &domain.Connection{}
	var value sql.NullFloat64
	var lastSync sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, platform, status, COALESCE(account_id,''),
		       COALESCE(api_key,''), conversion_value, last_sync_at,
		       created_at, updated_at
		FROM platform_connections
		WHERE campaign_id = $1 AND platform = $2
	`, campaignID, platform).Scan(
		&c.ID, &c.CampaignID, &c.Platform, &c.Status, &c.AccountID,
		&c.APIKey, &value, &lastSync, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, revenue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	if value.Valid {
		c.ConversionValue = &value.Float64
	}
	if lastSync.Valid {
		c.LastSyncAt = &lastSync.Time
	}
	return c, nil
}

func (r *CampaignRepo) UpsertConnection(ctx context.Context, conn *domain.Connection) (string, error) {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO platform_connections
			(id, campaign_id, platform, status, account_id, api_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (campaign_id, platform) DO UPDATE SET
			status = EXCLUDED.status,
			account_id = EXCLUDED.account_id,
			api_key = EXCLUDED.api_key,
			updated_at = NOW()
	`, conn.ID, conn.CampaignID, conn.Platform, conn.Status, conn.AccountID, conn.APIKey)
	if err != nil {
		return "", fmt.Errorf("upsert connection: %w", err)
	}

	// The insert ID loses to an existing row on conflict; read it back.
	var id string
	if err := r.db.QueryRowContext(ctx, `
		SELECT id FROM platform_connections WHERE campaign_id = $1 AND platform = $2
	`, conn.CampaignID, conn.Platform).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert connection readback: %w", err)
	}
	return id, nil
}

func (r *CampaignRepo) SetConversionValue(ctx context.Context, campaignID string, platform domain.Platform, value *float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE platform_connections SET conversion_value = $1, updated_at = NOW()
		WHERE campaign_id = $2 AND platform = $3
	`, value, campaignID, platform)
	if err != nil {
		return fmt.Errorf("set conversion value: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return revenue.ErrNotFound
	}
	return nil
}

// ClearConversionValue satisfies revenue.ConnectionStore. The resolver
// calls it by connection ID when it detects stale state.
func (r *CampaignRepo) ClearConversionValue(ctx context.Context, connectionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE platform_connections SET conversion_value = NULL, updated_at = NOW()
		WHERE id = $1
	`, connectionID)
	if err != nil {
		return fmt.Errorf("clear conversion value: %w", err)
	}
	return nil
}
