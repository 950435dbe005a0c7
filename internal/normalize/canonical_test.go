package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/fieldmap"
)

func TestToCanonicalRow(t *testing.T) {
	row := Row{
		fieldmap.FieldCampaignName: "Q3 Launch",
		platformKey:                "linkedin",
		fieldmap.FieldDate:         "2024-03-05",
		fieldmap.FieldImpressions:  1000.0,
		fieldmap.FieldClicks:       50.0,
		fieldmap.FieldSpend:        200.0,
		fieldmap.FieldConversions:  10.0,
		fieldmap.FieldRevenue:      500.0,
		confidenceKey:              0.9,
	}

	cr := ToCanonicalRow(row, "upload:42")

	assert.Equal(t, "Q3 Launch", cr.CampaignName)
	assert.Equal(t, domain.Platform("linkedin"), cr.Platform)
	assert.Equal(t, "2024-03-05", cr.Date)
	assert.Equal(t, "upload:42", cr.SourceTag)
	assert.InDelta(t, 0.9, cr.Confidence, 1e-9)

	require.NotNil(t, cr.CTR)
	assert.InDelta(t, 5.0, *cr.CTR, 1e-9)
	require.NotNil(t, cr.CPC)
	assert.InDelta(t, 4.0, *cr.CPC, 1e-9)
	require.NotNil(t, cr.CPM)
	assert.InDelta(t, 200.0, *cr.CPM, 1e-9)
	require.NotNil(t, cr.CPA)
	assert.InDelta(t, 20.0, *cr.CPA, 1e-9)
	require.NotNil(t, cr.ROAS)
	assert.InDelta(t, 2.5, *cr.ROAS, 1e-9)
	require.NotNil(t, cr.ROI)
	assert.InDelta(t, 150.0, *cr.ROI, 1e-9)
}

func TestToCanonicalRowSparse(t *testing.T) {
	row := Row{
		fieldmap.FieldCampaignName: "Sparse",
		platformKey:                "google",
		fieldmap.FieldDate:         "2024-01-01",
		fieldmap.FieldClicks:       25.0,
		fieldmap.FieldRevenue:      nil,
	}

	cr := ToCanonicalRow(row, "csv")

	assert.Nil(t, cr.Impressions)
	assert.Nil(t, cr.Revenue)
	assert.Nil(t, cr.CTR, "missing impressions blocks CTR")
	assert.Nil(t, cr.CPC, "missing spend blocks CPC")
	assert.Nil(t, cr.ROAS)
}

func TestComputeDerivedGuards(t *testing.T) {
	r := domain.CanonicalRow{
		Impressions: floatPtr(0),
		Clicks:      floatPtr(10),
		Spend:       floatPtr(0),
		Revenue:     floatPtr(100),
	}
	ComputeDerived(&r)

	assert.Nil(t, r.CTR, "zero denominator yields no ratio")
	assert.Nil(t, r.CPM)
	assert.Nil(t, r.ROAS)
	assert.Nil(t, r.ROI)
	require.NotNil(t, r.CPC)
	assert.InDelta(t, 0.0, *r.CPC, 1e-9)
}

func TestMergeCanonicalRowsSumsAndRecomputes(t *testing.T) {
	rows := []domain.CanonicalRow{
		{
			CampaignName: "Q3", Platform: "linkedin", Date: "2024-03-05",
			Impressions: floatPtr(100), Clicks: floatPtr(10), Spend: floatPtr(50),
			CTR: floatPtr(99), // stale incoming ratio must be discarded
		},
		{
			CampaignName: "Q3", Platform: "linkedin", Date: "2024-03-05",
			Impressions: floatPtr(50), Clicks: floatPtr(5), Spend: floatPtr(25),
			CTR: floatPtr(77),
		},
	}

	merged := MergeCanonicalRows(rows)

	require.Len(t, merged, 1)
	m := merged[0]
	assert.InDelta(t, 150.0, *m.Impressions, 1e-9)
	assert.InDelta(t, 15.0, *m.Clicks, 1e-9)
	assert.InDelta(t, 75.0, *m.Spend, 1e-9)
	require.NotNil(t, m.CTR)
	assert.InDelta(t, 10.0, *m.CTR, 1e-9, "ratio recomputed from sums, not averaged")
	require.NotNil(t, m.CPC)
	assert.InDelta(t, 5.0, *m.CPC, 1e-9)
}

func TestMergeCanonicalRowsKeysAndOrder(t *testing.T) {
	rows := []domain.CanonicalRow{
		{CampaignName: "A", Platform: "linkedin", Date: "2024-01-01", Spend: floatPtr(1)},
		{CampaignName: "B", Platform: "linkedin", Date: "2024-01-01", Spend: floatPtr(2)},
		{CampaignName: "A", Platform: "google", Date: "2024-01-01", Spend: floatPtr(3)},
		{CampaignName: "A", Platform: "linkedin", Date: "2024-01-02", Spend: floatPtr(4)},
		{CampaignName: "A", Platform: "linkedin", Date: "2024-01-01", Spend: floatPtr(5)},
	}

	merged := MergeCanonicalRows(rows)

	require.Len(t, merged, 4, "campaign, platform, and date all participate in the key")
	assert.Equal(t, "A", merged[0].CampaignName)
	assert.InDelta(t, 6.0, *merged[0].Spend, 1e-9)
	assert.Equal(t, "B", merged[1].CampaignName)
}

func TestMergeCanonicalRowsNilMetrics(t *testing.T) {
	rows := []domain.CanonicalRow{
		{CampaignName: "A", Platform: "linkedin", Date: "2024-01-01", Revenue: nil, Clicks: floatPtr(5), Confidence: 0.9},
		{CampaignName: "A", Platform: "linkedin", Date: "2024-01-01", Revenue: floatPtr(30), Clicks: nil, Confidence: 0.7, ConversionValue: floatPtr(3)},
	}

	merged := MergeCanonicalRows(rows)

	require.Len(t, merged, 1)
	m := merged[0]
	require.NotNil(t, m.Revenue)
	assert.InDelta(t, 30.0, *m.Revenue, 1e-9)
	require.NotNil(t, m.Clicks)
	assert.InDelta(t, 5.0, *m.Clicks, 1e-9)
	require.NotNil(t, m.ConversionValue)
	assert.InDelta(t, 3.0, *m.ConversionValue, 1e-9)
	assert.InDelta(t, 0.7, m.Confidence, 1e-9, "merged confidence is the lower of the two")
}
