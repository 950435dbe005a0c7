package domain

// CanonicalRow is the normalized, platform-agnostic metrics record for one
// campaign/platform/date. Base metrics are summable; the ratio fields are
// always recomputed from the bases and never taken from input data.
//
// Optional metrics are pointers so that "absent" and "zero" stay distinct
// through aggregation.
type CanonicalRow struct {
	CampaignName string   `json:"campaign_name" db:"campaign_name"`
	Platform     Platform `json:"platform" db:"platform"`
	Date         string   `json:"date" db:"date"` // YYYY-MM-DD

	Impressions     *float64 `json:"impressions,omitempty" db:"impressions"`
	Clicks          *float64 `json:"clicks,omitempty" db:"clicks"`
	Spend           *float64 `json:"spend,omitempty" db:"spend"`
	Conversions     *float64 `json:"conversions,omitempty" db:"conversions"`
	Leads           *float64 `json:"leads,omitempty" db:"leads"`
	Engagements     *float64 `json:"engagements,omitempty" db:"engagements"`
	Revenue         *float64 `json:"revenue,omitempty" db:"revenue"`
	ConversionValue *float64 `json:"conversion_value,omitempty" db:"conversion_value"`

	CTR  *float64 `json:"ctr,omitempty" db:"ctr"`
	CPC  *float64 `json:"cpc,omitempty" db:"cpc"`
	CPM  *float64 `json:"cpm,omitempty" db:"cpm"`
	CPA  *float64 `json:"cpa,omitempty" db:"cpa"`
	ROAS *float64 `json:"roas,omitempty" db:"roas"`
	ROI  *float64 `json:"roi,omitempty" db:"roi"`

	SourceTag  string  `json:"source_tag" db:"source_tag"`
	Confidence float64 `json:"confidence" db:"confidence"`
}

// MergeKey returns the identity rows are aggregated under.
func (r *CanonicalRow) MergeKey() string {
	return r.CampaignName + "|" + string(r.Platform) + "|" + r.Date
}
