package normalize

import (
	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/fieldmap"
)

// ToCanonicalRow converts one normalized row into the canonical metrics
// record and computes its derived ratios.
func ToCanonicalRow(row Row, sourceTag string) domain.CanonicalRow {
	cr := domain.CanonicalRow{
		CampaignName:    stringField(row, fieldmap.FieldCampaignName),
		Platform:        domain.Platform(stringField(row, platformKey)),
		Date:            stringField(row, fieldmap.FieldDate),
		Impressions:     floatField(row, fieldmap.FieldImpressions),
		Clicks:          floatField(row, fieldmap.FieldClicks),
		Spend:           floatField(row, fieldmap.FieldSpend),
		Conversions:     floatField(row, fieldmap.FieldConversions),
		Leads:           floatField(row, fieldmap.FieldLeads),
		Engagements:     floatField(row, fieldmap.FieldEngagements),
		Revenue:         floatField(row, fieldmap.FieldRevenue),
		ConversionValue: floatField(row, fieldmap.FieldConversionValue),
		SourceTag:       sourceTag,
	}
	if c := floatField(row, confidenceKey); c != nil {
		cr.Confidence = *c
	}
	ComputeDerived(&cr)
	return cr
}

// ComputeDerived recomputes every ratio from the base metrics. Incoming
// ratio values are discarded first: derived metrics are computed here,
// never trusted from input. A ratio is set only when both operands are
// present and the denominator is positive.
func ComputeDerived(r *domain.CanonicalRow) {
	r.CTR, r.CPC, r.CPM, r.CPA, r.ROAS, r.ROI = nil, nil, nil, nil, nil, nil

	if r.Clicks != nil && positive(r.Impressions) {
		r.CTR = floatPtr(*r.Clicks / *r.Impressions * 100)
	}
	if r.Spend != nil && positive(r.Clicks) {
		r.CPC = floatPtr(*r.Spend / *r.Clicks)
	}
	if r.Spend != nil && positive(r.Impressions) {
		r.CPM = floatPtr(*r.Spend / *r.Impressions * 1000)
	}
	if r.Spend != nil && positive(r.Conversions) {
		r.CPA = floatPtr(*r.Spend / *r.Conversions)
	}
	if r.Revenue != nil && positive(r.Spend) {
		r.ROAS = floatPtr(*r.Revenue / *r.Spend)
		r.ROI = floatPtr((*r.Revenue - *r.Spend) / *r.Spend * 100)
	}
}

// MergeCanonicalRows groups rows by (campaign, platform, date) and collapses
// collisions by summing the additive metrics, then recomputing every ratio
// from the sums. Ratios are never summed or averaged across rows. Output
// preserves first-seen key order.
func MergeCanonicalRows(rows []domain.CanonicalRow) []domain.CanonicalRow {
	merged := make(map[string]*domain.CanonicalRow, len(rows))
	order := make([]string, 0, len(rows))

	for _, row := range rows {
		key := row.MergeKey()
		existing, ok := merged[key]
		if !ok {
			clone := row
			merged[key] = &clone
			order = append(order, key)
			continue
		}
		existing.Impressions = sumOptional(existing.Impressions, row.Impressions)
		existing.Clicks = sumOptional(existing.Clicks, row.Clicks)
		existing.Spend = sumOptional(existing.Spend, row.Spend)
		existing.Conversions = sumOptional(existing.Conversions, row.Conversions)
		existing.Leads = sumOptional(existing.Leads, row.Leads)
		existing.Engagements = sumOptional(existing.Engagements, row.Engagements)
		existing.Revenue = sumOptional(existing.Revenue, row.Revenue)

		// Per-unit value is not additive; first populated row wins.
		if existing.ConversionValue == nil {
			existing.ConversionValue = row.ConversionValue
		}
		if existing.SourceTag == "" {
			existing.SourceTag = row.SourceTag
		}
		if row.Confidence > 0 && (existing.Confidence == 0 || row.Confidence < existing.Confidence) {
			existing.Confidence = row.Confidence
		}
	}

	out := make([]domain.CanonicalRow, 0, len(order))
	for _, key := range order {
		r := merged[key]
		ComputeDerived(r)
		out = append(out, *r)
	}
	return out
}

func stringField(row Row, key string) string {
	if v, ok := row[key]; ok {
		if s, isString := v.(string); isString {
			return s
		}
	}
	return ""
}

// floatField applies float coercion to a row value: nil on absence or on a
// value that cannot be read as a number.
func floatField(row Row, key string) *float64 {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return floatPtr(t)
	case int:
		return floatPtr(float64(t))
	case string:
		if f, err := Number(t); err == nil {
			return floatPtr(f)
		}
	}
	return nil
}

func sumOptional(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return floatPtr(*a + *b)
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

func floatPtr(v float64) *float64 {
	return &v
}
