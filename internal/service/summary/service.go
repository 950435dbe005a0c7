package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/adpulse/metrics-engine/internal/domain"
)

// DefaultPeriodDays is the KPI window when the caller names none.
const DefaultPeriodDays = 30

// RowReader supplies canonical performance rows for a date range.
// Implemented by the Postgres performance repository.
type RowReader interface {
	Range(ctx context.Context, campaignName string, platform domain.Platform, startDate, endDate string) ([]domain.CanonicalRow, error)
}

// Service computes KPI summaries. Safe for concurrent use.
type Service struct {
	rows RowReader
	now  func() time.Time
}

// NewService creates a summary service reading from the given rows.
func NewService(rows RowReader) *Service {
	return &Service{rows: rows, now: time.Now}
}

// Totals are summed base metrics with ratios derived from the sums.
type Totals struct {
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Conversions float64 `json:"conversions"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`

	// CTR and CPC are nil when their denominator summed to zero.
	CTR *float64 `json:"ctr,omitempty"`
	CPC *float64 `json:"cpc,omitempty"`
}

// Changes hold percent change per metric against the prior period. A nil
// entry means the prior period had nothing to compare against.
type Changes struct {
	Impressions *float64 `json:"impressions,omitempty"`
	Clicks      *float64 `json:"clicks,omitempty"`
	Conversions *float64 `json:"conversions,omitempty"`
	Spend       *float64 `json:"spend,omitempty"`
	Revenue     *float64 `json:"revenue,omitempty"`
}

// Overview is one KPI card set: the current period's totals and how they
// moved against the preceding period of equal length.
type Overview struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	PeriodDays  int    `json:"period_days"`

	Current Totals  `json:"current"`
	Change  Changes `json:"change"`
}

// Overview computes the KPI summary for the trailing days-long period
// ending yesterday (UTC). Empty campaignName or platform matches
// everything. days <= 0 selects the default period.
func (s *Service) Overview(ctx context.Context, campaignName string, platform domain.Platform, days int) (*Overview, error) {
	if days <= 0 {
		days = DefaultPeriodDays
	}
	end := dayUTC(s.now().AddDate(0, 0, -1))
	start := end.AddDate(0, 0, -(days - 1))
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(days - 1))

	current, err := s.totals(ctx, campaignName, platform, start, end)
	if err != nil {
		return nil, fmt.Errorf("current period: %w", err)
	}
	previous, err := s.totals(ctx, campaignName, platform, prevStart, prevEnd)
	if err != nil {
		return nil, fmt.Errorf("prior period: %w", err)
	}

	return &Overview{
		PeriodStart: start.Format("2006-01-02"),
		PeriodEnd:   end.Format("2006-01-02"),
		PeriodDays:  days,
		Current:     current,
		Change: Changes{
			Impressions: pctChange(previous.Impressions, current.Impressions),
			Clicks:      pctChange(previous.Clicks, current.Clicks),
			Conversions: pctChange(previous.Conversions, current.Conversions),
			Spend:       pctChange(previous.Spend, current.Spend),
			Revenue:     pctChange(previous.Revenue, current.Revenue),
		},
	}, nil
}

func (s *Service) totals(ctx context.Context, campaignName string, platform domain.Platform, start, end time.Time) (Totals, error) {
	rows, err := s.rows.Range(ctx, campaignName, platform,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return Totals{}, err
	}

	var t Totals
	for _, r := range rows {
		t.Impressions += deref(r.Impressions)
		t.Clicks += deref(r.Clicks)
		t.Conversions += deref(r.Conversions)
		t.Spend += deref(r.Spend)
		t.Revenue += deref(r.Revenue)
	}
	if t.Impressions > 0 {
		ctr := t.Clicks / t.Impressions * 100
		t.CTR = &ctr
	}
	if t.Clicks > 0 {
		cpc := t.Spend / t.Clicks
		t.CPC = &cpc
	}
	return t, nil
}

// pctChange returns the percent move from prev to cur, nil when prev is
// zero (no baseline to compare against).
func pctChange(prev, cur float64) *float64 {
	if prev == 0 {
		return nil
	}
	v := (cur - prev) / prev * 100
	return &v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func dayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
