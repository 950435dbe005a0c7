package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adpulse/metrics-engine/internal/domain"
)

// PerformanceRepo implements importer.RowStore and the summary service's
// row reads against PostgreSQL. Rows are keyed by campaign+platform+date;
// re-importing an export replaces rather than double-counts.
type PerformanceRepo struct{ db *sql.DB }

// NewPerformanceRepo creates a Postgres-backed performance repository.
func NewPerformanceRepo(db *sql.DB) *PerformanceRepo { return &PerformanceRepo{db: db} }

func (r *PerformanceRepo) UpsertRows(ctx context.Context, rows []domain.CanonicalRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_performance
			(campaign_name, platform, date, impressions, clicks, spend,
			 conversions, leads, engagements, revenue, conversion_value,
			 ctr, cpc, cpm, cpa, roas, roi, source_tag, confidence,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		ON CONFLICT (campaign_name, platform, date) DO UPDATE SET
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			spend = EXCLUDED.spend,
			conversions = EXCLUDED.conversions,
			leads = EXCLUDED.leads,
			engagements = EXCLUDED.engagements,
			revenue = EXCLUDED.revenue,
			conversion_value = EXCLUDED.conversion_value,
			ctr = EXCLUDED.ctr,
			cpc = EXCLUDED.cpc,
			cpm = EXCLUDED.cpm,
			cpa = EXCLUDED.cpa,
			roas = EXCLUDED.roas,
			roi = EXCLUDED.roi,
			source_tag = EXCLUDED.source_tag,
			confidence = EXCLUDED.confidence,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.CampaignName, row.Platform, row.Date,
			row.Impressions, row.Clicks, row.Spend,
			row.Conversions, row.Leads, row.Engagements,
			row.Revenue, row.ConversionValue,
			row.CTR, row.CPC, row.CPM, row.CPA, row.ROAS, row.ROI,
			row.SourceTag, row.Confidence,
		); err != nil {
			return fmt.Errorf("upsert row %s: %w", row.MergeKey(), err)
		}
	}
	return tx.Commit()
}

// Range returns rows inside [startDate, endDate] (YYYY-MM-DD, inclusive),
// optionally filtered by campaign name and platform. Empty filters match
// everything.
func (r *PerformanceRepo) Range(ctx context.Context, campaignName string, platform domain.Platform, startDate, endDate string) ([]domain.CanonicalRow, error) {
	q := `
		SELECT campaign_name, platform, date::text, impressions, clicks, spend,
		       conversions, leads, engagements, revenue, conversion_value,
		       ctr, cpc, cpm, cpa, roas, roi, source_tag, confidence
		FROM campaign_performance
		WHERE date BETWEEN $1 AND $2`
	args := []interface{}{startDate, endDate}
	idx := 3

	if campaignName != "" {
		q += fmt.Sprintf(" AND campaign_name = $%d", idx)
		args = append(args, campaignName)
		idx++
	}
	if platform != "" {
		q += fmt.Sprintf(" AND platform = $%d", idx)
		args = append(args, platform)
		idx++
	}
	q += " ORDER BY date, campaign_name, platform"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("range rows: %w", err)
	}
	defer rows.Close()

	var out []domain.CanonicalRow
	for rows.Next() {
		var cr domain.CanonicalRow
		var m [14]sql.NullFloat64
		if err := rows.Scan(
			&cr.CampaignName, &cr.Platform, &cr.Date,
			&m[0], &m[1], &m[2], &m[3], &m[4], &m[5], &m[6], &m[7],
			&m[8], &m[9], &m[10], &m[11], &m[12], &m[13],
			&cr.SourceTag, &cr.Confidence,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		cr.Impressions = floatPtr(m[0])
		cr.Clicks = floatPtr(m[1])
		cr.Spend = floatPtr(m[2])
		cr.Conversions = floatPtr(m[3])
		cr.Leads = floatPtr(m[4])
		cr.Engagements = floatPtr(m[5])
		cr.Revenue = floatPtr(m[6])
		cr.ConversionValue = floatPtr(m[7])
		cr.CTR = floatPtr(m[8])
		cr.CPC = floatPtr(m[9])
		cr.CPM = floatPtr(m[10])
		cr.CPA = floatPtr(m[11])
		cr.ROAS = floatPtr(m[12])
		cr.ROI = floatPtr(m[13])
		out = append(out, cr)
	}
	return out, rows.Err()
}
