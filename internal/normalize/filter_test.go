package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesPlatform(t *testing.T) {
	assert.True(t, MatchesPlatform("LinkedIn", "linkedin"))
	assert.True(t, MatchesPlatform("linkedin ads", "LinkedIn"))
	assert.True(t, MatchesPlatform("fb", "facebook"))
	assert.True(t, MatchesPlatform("Meta", "facebook"))
	assert.True(t, MatchesPlatform("Google Ads", "google"))

	assert.False(t, MatchesPlatform("tiktok", "linkedin"))
	assert.False(t, MatchesPlatform("", "linkedin"))
}

func TestMatchesCampaign(t *testing.T) {
	// Normalized equality.
	assert.True(t, MatchesCampaign("  summer SALE ", "Summer Sale"))
	// One-typo fuzzy match clears 0.8.
	assert.True(t, MatchesCampaign("Sumer Sale", "Summer Sale"))
	// Containment either direction.
	assert.True(t, MatchesCampaign("Summer Sale - US", "Summer Sale"))
	assert.True(t, MatchesCampaign("Summer", "Summer Sale - US"))

	assert.False(t, MatchesCampaign("Winter Promo", "Summer Sale"))
	assert.False(t, MatchesCampaign("", "Summer Sale"))
}

func TestFilterRows(t *testing.T) {
	rows := []map[string]string{
		{"Platform": "LinkedIn", "Campaign": "Summer Sale", "Spend": "10"},
		{"Platform": "Facebook", "Campaign": "Summer Sale", "Spend": "20"},
		{"Platform": "LinkedIn", "Campaign": "Winter Promo", "Spend": "30"},
		{"Platform": "LinkedIn", "Campaign": "Sumer Sale", "Spend": "40"},
	}

	got := FilterRows(rows, "Campaign", "Platform", "Summer Sale", "linkedin")

	require.Len(t, got, 2)
	assert.Equal(t, "10", got[0]["Spend"])
	assert.Equal(t, "40", got[1]["Spend"])
}

func TestFilterRowsNoPlatformColumn(t *testing.T) {
	rows := []map[string]string{
		{"Campaign": "Summer Sale", "Spend": "10"},
		{"Campaign": "Other", "Spend": "20"},
	}

	// Without a platform column, campaign identity alone decides.
	got := FilterRows(rows, "Campaign", "", "Summer Sale", "linkedin")

	require.Len(t, got, 1)
	assert.Equal(t, "10", got[0]["Spend"])
}
