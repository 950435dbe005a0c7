package tabular

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AggregationLevel is the granularity a dataset's rows appear to describe.
const (
	LevelAd       = "ad"
	LevelAdSet    = "ad_set"
	LevelCampaign = "campaign"
	LevelUnknown  = "unknown"
)

// DatasetSchema is the diagnostic picture of one import: structure,
// duplicates, format drift, outliers, completeness. It never causes a
// validation failure; callers surface it to operators as-is.
type DatasetSchema struct {
	RowCount    int `json:"row_count"`
	ColumnCount int `json:"column_count"`

	DateColumn      string `json:"date_column,omitempty"`
	PlatformColumn  string `json:"platform_column,omitempty"`
	IsTimeSeries    bool   `json:"is_time_series"`
	IsMultiPlatform bool   `json:"is_multi_platform"`

	AggregationLevel string `json:"aggregation_level"`

	DuplicateRows       int                  `json:"duplicate_rows"`
	InconsistentFormats []string             `json:"inconsistent_formats,omitempty"`
	Outliers            map[string][]float64 `json:"outliers,omitempty"`
	Completeness        float64              `json:"completeness"`
}

var dateNameHints = []string{"date", "day", "time", "period"}
var platformNameHints = []string{"platform", "channel", "network", "publisher"}

// DiscoverSchema analyzes raw rows plus their detected columns and returns
// diagnostics about the dataset's shape and quality.
func DiscoverSchema(headers []string, rows []map[string]string, cols []DetectedColumn) *DatasetSchema {
	s := &DatasetSchema{
		RowCount:         len(rows),
		ColumnCount:      len(headers),
		AggregationLevel: inferAggregationLevel(headers),
		Outliers:         map[string][]float64{},
	}

	s.DateColumn = findColumn(cols, dateNameHints, TypeDate)
	s.PlatformColumn = findColumn(cols, platformNameHints, "")

	if s.DateColumn != "" {
		s.IsTimeSeries = looksSequential(rows, s.DateColumn)
	}
	if s.PlatformColumn != "" {
		s.IsMultiPlatform = distinctValues(rows, s.PlatformColumn) > 1
	}

	s.DuplicateRows = countDuplicateRows(headers, rows)
	s.InconsistentFormats = findInconsistentFormats(rows, cols)
	for _, c := range cols {
		if c.Type != TypeNumber && c.Type != TypeCurrency {
			continue
		}
		if out := iqrOutliers(columnFloats(rows, c.OriginalName)); len(out) > 0 {
			s.Outliers[c.OriginalName] = out
		}
	}
	s.Completeness = completeness(headers, rows)
	return s
}

// findColumn locates a column by name hint, falling back to the first column
// of the wanted type when typeHint is set.
func findColumn(cols []DetectedColumn, nameHints []string, typeHint ColumnType) string {
	for _, c := range cols {
		name := strings.ToLower(c.OriginalName)
		for _, h := range nameHints {
			if strings.Contains(name, h) {
				return c.OriginalName
			}
		}
	}
	if typeHint != "" {
		for _, c := range cols {
			if c.Type == typeHint {
				return c.OriginalName
			}
		}
	}
	return ""
}

// looksSequential samples up to 100 rows of the date column and reports true
// when at least 70% of consecutive gaps land within 0-7 days.
func looksSequential(rows []map[string]string, dateCol string) bool {
	var dates []time.Time
	for _, row := range rows {
		if t, ok := parseAnyDate(row[dateCol]); ok {
			dates = append(dates, t)
		}
		if len(dates) == 100 {
			break
		}
	}
	if len(dates) < 2 {
		return false
	}
	within := 0
	for i := 1; i < len(dates); i++ {
		gap := math.Abs(dates[i].Sub(dates[i-1]).Hours() / 24)
		if gap <= 7 {
			within++
		}
	}
	return float64(within)/float64(len(dates)-1) >= 0.7
}

func distinctValues(rows []map[string]string, col string) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		v := strings.ToLower(strings.TrimSpace(row[col]))
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func inferAggregationLevel(headers []string) string {
	joined := strings.ToLower(strings.Join(headers, "\x1f"))
	switch {
	case strings.Contains(joined, "ad id") || strings.Contains(joined, "ad_id"):
		return LevelAd
	case strings.Contains(joined, "ad set") || strings.Contains(joined, "ad_set") ||
		strings.Contains(joined, "adset") || strings.Contains(joined, "ad group") ||
		strings.Contains(joined, "ad_group"):
		return LevelAdSet
	case strings.Contains(joined, "campaign id") || strings.Contains(joined, "campaign_id") ||
		strings.Contains(joined, "campaign name") || strings.Contains(joined, "campaign_name"):
		return LevelCampaign
	default:
		return LevelUnknown
	}
}

func countDuplicateRows(headers []string, rows []map[string]string) int {
	seen := make(map[string]struct{}, len(rows))
	dups := 0
	for _, row := range rows {
		var b strings.Builder
		for _, h := range headers {
			b.WriteString(row[h])
			b.WriteByte('\x1f')
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			dups++
		} else {
			seen[key] = struct{}{}
		}
	}
	return dups
}

// findInconsistentFormats flags currency and date columns showing more than
// two distinct sub-formats within a 50-row sample.
func findInconsistentFormats(rows []map[string]string, cols []DetectedColumn) []string {
	var flagged []string
	for _, c := range cols {
		if c.Type != TypeCurrency && c.Type != TypeDate {
			continue
		}
		formats := make(map[string]struct{})
		sampled := 0
		for _, row := range rows {
			v := strings.TrimSpace(row[c.OriginalName])
			if v == "" {
				continue
			}
			if c.Type == TypeCurrency {
				formats[currencySubFormat(v)] = struct{}{}
			} else {
				formats[dateSubFormat(v)] = struct{}{}
			}
			sampled++
			if sampled == 50 {
				break
			}
		}
		if len(formats) > 2 {
			flagged = append(flagged, c.OriginalName)
		}
	}
	return flagged
}

func currencySubFormat(v string) string {
	symbol := "none"
	for _, s := range []string{"$", "€", "£", "¥", "₹"} {
		if strings.Contains(v, s) {
			symbol = s
			break
		}
	}
	sep := "plain"
	if strings.Contains(v, ",") {
		sep = "grouped"
	}
	return symbol + "/" + sep
}

func dateSubFormat(v string) string {
	switch {
	case datePatterns[0].MatchString(v):
		return "iso"
	case datePatterns[1].MatchString(v):
		return "slash"
	case datePatterns[2].MatchString(v):
		return "dash"
	default:
		return "other"
	}
}

func columnFloats(rows []map[string]string, col string) []float64 {
	var vals []float64
	for _, row := range rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		v = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "₹", "", ",", "", " ", "").Replace(v)
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			vals = append(vals, f)
		}
	}
	return vals
}

// iqrOutliers returns values outside the 1.5x interquartile fences.
func iqrOutliers(vals []float64) []float64 {
	if len(vals) < 4 {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	q1 := sorted[len(sorted)/4]
	q3 := sorted[(len(sorted)*3)/4]
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr

	var out []float64
	for _, v := range vals {
		if v < lo || v > hi {
			out = append(out, v)
		}
	}
	return out
}

func completeness(headers []string, rows []map[string]string) float64 {
	if len(rows) == 0 || len(headers) == 0 {
		return 0
	}
	total := len(rows) * len(headers)
	filled := 0
	for _, row := range rows {
		for _, h := range headers {
			if strings.TrimSpace(row[h]) != "" {
				filled++
			}
		}
	}
	return float64(filled) / float64(total)
}

// parseAnyDate tries the formats the detector recognizes, preferring ISO,
// then US month-first forms.
func parseAnyDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{"2006-01-02", "1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
