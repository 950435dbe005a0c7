package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/revenue"
)

// RevenueRepo implements revenue.SourceAdmin and revenue.EventSink against
// PostgreSQL: revenue-source configurations, their imported revenue rows,
// and the conversion event feed.
type RevenueRepo struct{ db *sql.DB }

// NewRevenueRepo creates a Postgres-backed revenue repository.
func NewRevenueRepo(db *sql.DB) *RevenueRepo { return &RevenueRepo{db: db} }

func (r *RevenueRepo) ListSources(ctx context.Context, campaignID string, platform domain.Platform) ([]domain.RevenueSource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, platform, source_type, is_active, mapping,
		       orders_to_date, orders_revenue, created_at, updated_at
		FROM revenue_sources
		WHERE campaign_id = $1 AND platform = $2
		ORDER BY created_at
	`, campaignID, platform)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.RevenueSource
	for rows.Next() {
		var s domain.RevenueSource
		var mapping []byte
		if err := rows.Scan(
			&s.ID, &s.CampaignID, &s.Platform, &s.SourceType, &s.IsActive,
			&mapping, &s.OrdersToDate, &s.OrdersRevenue, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if len(mapping) > 0 {
			if err := json.Unmarshal(mapping, &s.Mapping); err != nil {
				return nil, fmt.Errorf("decode source mapping %s: %w", s.ID, err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *RevenueRepo) RevenueTotalForRange(ctx context.Context, campaignID string, platform domain.Platform, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(rr.amount), 0)
		FROM revenue_rows rr
		JOIN revenue_sources rs ON rs.id = rr.source_id
		WHERE rr.campaign_id = $1 AND rr.platform = $2
		  AND rs.is_active = true
		  AND COALESCE(rs.mapping->>'mode', 'revenue') IN ('revenue', '')
		  AND rr.recorded_on BETWEEN $3 AND $4
	`, campaignID, platform, start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("revenue total: %w", err)
	}
	return total, nil
}

func (r *RevenueRepo) CreateSource(ctx context.Context, src *domain.RevenueSource) (string, error) {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	mapping, err := json.Marshal(src.Mapping)
	if err != nil {
		return "", fmt.Errorf("encode source mapping: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO revenue_sources
			(id, campaign_id, platform, source_type, is_active, mapping,
			 orders_to_date, orders_revenue, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, src.ID, src.CampaignID, src.Platform, src.SourceType, src.IsActive,
		mapping, src.OrdersToDate, src.OrdersRevenue)
	if err != nil {
		return "", fmt.Errorf("create source: %w", err)
	}
	return src.ID, nil
}

func (r *RevenueRepo) SetSourceActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE revenue_sources SET is_active = $1, updated_at = NOW()
		WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("set source active: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return revenue.ErrNotFound
	}
	return nil
}

func (r *RevenueRepo) AddRevenueRows(ctx context.Context, rrows []domain.RevenueRow) error {
	if len(rrows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revenue rows: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO revenue_rows
			(id, source_id, campaign_id, platform, amount, recorded_on, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`)
	if err != nil {
		return fmt.Errorf("prepare revenue row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rrows {
		id := row.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, row.SourceID, row.CampaignID,
			row.Platform, row.Amount, row.RecordedOn); err != nil {
			return fmt.Errorf("insert revenue row: %w", err)
		}
	}
	return tx.Commit()
}

func (r *RevenueRepo) RecordEvent(ctx context.Context, ev *domain.ConversionEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversion_events
			(id, campaign_id, platform, value, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, ev.ID, ev.CampaignID, ev.Platform, ev.Value, ev.OccurredAt)
	if err != nil {
		return "", fmt.Errorf("record event: %w", err)
	}
	return ev.ID, nil
}

func (r *RevenueRepo) EventsForRange(ctx context.Context, campaignID string, start, end time.Time) ([]domain.ConversionEvent, error) {
	// end is day-granular; events on the end day count through midnight.
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, platform, value, occurred_at, created_at
		FROM conversion_events
		WHERE campaign_id = $1
		  AND occurred_at >= $2
		  AND occurred_at < $3 + INTERVAL '1 day'
		ORDER BY occurred_at
	`, campaignID, start, end)
	if err != nil {
		return nil, fmt.Errorf("events for range: %w", err)
	}
	defer rows.Close()

	var out []domain.ConversionEvent
	for rows.Next() {
		var ev domain.ConversionEvent
		if err := rows.Scan(
			&ev.ID, &ev.CampaignID, &ev.Platform, &ev.Value, &ev.OccurredAt, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
