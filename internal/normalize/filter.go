package normalize

import (
	"strings"

	"github.com/adpulse/metrics-engine/internal/fieldmap"
)

// campaignMatchThreshold is the fuzzy-similarity floor for treating two
// campaign names as the same campaign.
const campaignMatchThreshold = 0.8

// MatchesPlatform reports whether a cell value refers to the given platform,
// using substring membership in either direction against the platform's
// synonym list.
func MatchesPlatform(value, platform string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	canonical := Platform(platform)
	keywords := platformSynonyms[canonical]
	if len(keywords) == 0 {
		keywords = []string{canonical}
	}
	for _, kw := range keywords {
		if strings.Contains(v, kw) || strings.Contains(kw, v) {
			return true
		}
	}
	return false
}

// MatchesCampaign reports whether a cell value refers to the given campaign.
// Both sides are lower-cased and cleaned before comparison; a match is fuzzy
// similarity at or above the threshold, normalized equality, or substring
// containment in either direction.
func MatchesCampaign(value, campaignName string) bool {
	v := matchNormalize(value)
	want := matchNormalize(campaignName)
	if v == "" || want == "" {
		return false
	}
	if fieldmap.Similarity(v, want) >= campaignMatchThreshold {
		return true
	}
	if v == want {
		return true
	}
	return strings.Contains(v, want) || strings.Contains(want, v)
}

// FilterRows isolates one campaign's rows inside a larger sheet. An empty
// platformCol skips the platform check entirely: single-platform sheets
// often carry no platform column, so campaign identity alone decides.
func FilterRows(rows []map[string]string, campaignCol, platformCol, campaignName, platform string) []map[string]string {
	var out []map[string]string
	for _, row := range rows {
		if platformCol != "" && !MatchesPlatform(row[platformCol], platform) {
			continue
		}
		if campaignCol != "" && !MatchesCampaign(row[campaignCol], campaignName) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matchNormalize(s string) string {
	return strings.ToLower(CampaignName(s))
}
