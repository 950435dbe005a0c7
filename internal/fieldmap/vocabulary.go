package fieldmap

import (
	"regexp"
	"strings"

	"github.com/adpulse/metrics-engine/internal/tabular"
)

// Canonical field IDs. Downstream packages key normalized rows by these.
const (
	FieldCampaignName    = "campaign_name"
	FieldDate            = "date"
	FieldSpend           = "spend"
	FieldImpressions     = "impressions"
	FieldClicks          = "clicks"
	FieldConversions     = "conversions"
	FieldLeads           = "leads"
	FieldEngagements     = "engagements"
	FieldRevenue         = "revenue"
	FieldConversionValue = "conversion_value"
)

// FieldDefinition describes one slot of the canonical vocabulary a source
// column can map onto. Declaration order inside a vocabulary is meaningful:
// the mapper walks fields in order, so earlier fields win score ties.
type FieldDefinition struct {
	ID          string
	DisplayName string
	ValueType   tabular.ColumnType
	Required    bool
	Aliases     []string
	Patterns    []*regexp.Regexp
	Validate    func(string) bool
	Transform   func(string) string
}

var nonNegative = func(v string) bool {
	return !strings.HasPrefix(strings.TrimSpace(v), "-")
}

// baseFields is the LinkedIn-shaped canonical vocabulary. Platform variants
// extend the alias lists but never reorder or drop fields, so mapping
// behavior stays stable across platforms.
var baseFields = []FieldDefinition{
	{
		ID:          FieldCampaignName,
		DisplayName: "Campaign Name",
		ValueType:   tabular.TypeText,
		Required:    true,
		Aliases:     []string{"campaign", "campaign title", "campaign group name"},
		Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)^campaign`)},
		Transform:   strings.TrimSpace,
	},
	{
		ID:          FieldDate,
		DisplayName: "Date",
		ValueType:   tabular.TypeDate,
		Required:    true,
		Aliases:     []string{"day", "report date", "start date", "period"},
		Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)(^date|_date$|^day$)`)},
	},
	{
		ID:          FieldSpend,
		DisplayName: "Spend",
		ValueType:   tabular.TypeCurrency,
		Required:    true,
		Aliases:     []string{"cost", "amount spent", "total spent", "budget spent"},
		Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)(spend|spent|cost)`)},
	},
	{
		ID:          FieldImpressions,
		DisplayName: "Impressions",
		ValueType:   tabular.TypeNumber,
		Aliases:     []string{"imprs", "total impressions"},
		Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)^impr`)},
		Validate:    nonNegative,
	},
	{
		ID:          FieldClicks,
		DisplayName: "Clicks",
		ValueType:   tabular.TypeNumber,
		Aliases:     []string{"link clicks", "total clicks", "clicks (all)"},
		Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)click`)},
		Validate:    nonNegative,
	},
	{
		ID:          FieldConversions,
		DisplayName: "Conversions",
		ValueType:   tabular.TypeNumber,
		Aliases:     []string{"total conversions", "purchases", "website conversions"},
		Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)^conv`)},
		Validate:    nonNegative,
	},
	{
		ID:          FieldLeads,
		DisplayName: "Leads",
		ValueType:   tabular.TypeNumber,
		Aliases:     []string{"lead form opens", "total leads"},
		Validate:    nonNegative,
	},
	{
		ID:          FieldEngagements,
		DisplayName: "Engagements",
		ValueType:   tabular.TypeNumber,
		Aliases:     []string{"total engagements", "interactions", "engagement"},
		Validate:    nonNegative,
	},
	{
		ID:          FieldRevenue,
		DisplayName: "Revenue",
		ValueType:   tabular.TypeCurrency,
		Aliases:     []string{"total revenue", "purchase value", "conversion value total"},
		Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)revenue`)},
	},
	{
		ID:          FieldConversionValue,
		DisplayName: "Conversion Value",
		ValueType:   tabular.TypeCurrency,
		Aliases:     []string{"value per conversion", "avg conversion value"},
	},
}

// extraAliases holds per-platform vocabulary extensions keyed by field ID.
var googleAliases = map[string][]string{
	FieldSpend:       {"cost (usd)"},
	FieldClicks:      {"interactions"},
	FieldConversions: {"all conv.", "conv."},
	FieldRevenue:     {"conv. value", "all conv. value"},
	FieldDate:        {"week", "month"},
}

var metaAliases = map[string][]string{
	FieldSpend:       {"amount spent (usd)", "amount spent"},
	FieldConversions: {"results", "website purchases"},
	FieldImpressions: {"reach"},
	FieldEngagements: {"post engagements", "page engagement"},
	FieldRevenue:     {"purchase conversion value", "website purchase roas value"},
}

// FieldsForPlatform returns the canonical vocabulary for a platform hint.
// Unknown or empty platforms fall back to the base vocabulary. The returned
// slice is a deep-enough copy that callers may append aliases freely.
func FieldsForPlatform(platform string) []FieldDefinition {
	var extra map[string][]string
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "google", "google ads", "adwords", "gads":
		extra = googleAliases
	case "facebook", "meta", "fb", "instagram":
		extra = metaAliases
	}

	fields := make([]FieldDefinition, len(baseFields))
	copy(fields, baseFields)
	for i := range fields {
		aliases := make([]string, len(fields[i].Aliases))
		copy(aliases, fields[i].Aliases)
		if extra != nil {
			aliases = append(aliases, extra[fields[i].ID]...)
		}
		fields[i].Aliases = aliases
	}
	return fields
}

// FieldByID looks up a definition in a vocabulary. The second return is
// false when the ID is not part of the vocabulary.
func FieldByID(fields []FieldDefinition, id string) (FieldDefinition, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldDefinition{}, false
}
