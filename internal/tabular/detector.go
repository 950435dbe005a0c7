package tabular

import (
	"regexp"
	"strconv"
	"strings"
)

// ColumnType is the semantic type assigned to a detected column.
type ColumnType string

const (
	TypeNumber     ColumnType = "number"
	TypeText       ColumnType = "text"
	TypeDate       ColumnType = "date"
	TypeCurrency   ColumnType = "currency"
	TypePercentage ColumnType = "percentage"
	TypeBoolean    ColumnType = "boolean"
	TypeUnknown    ColumnType = "unknown"
)

// DetectedColumn describes one column of an import: its identity, inferred
// semantic type, and the sampling stats the inference was based on. Created
// per import and discarded after mapping.
type DetectedColumn struct {
	Index          int        `json:"index"`
	OriginalName   string     `json:"original_name"`
	NormalizedName string     `json:"normalized_name"`
	Type           ColumnType `json:"type"`
	// Confidence is the fraction of sampled non-empty values matching the
	// accepted type. A soft signal from a majority vote, not a guarantee.
	Confidence   float64  `json:"confidence"`
	SampleValues []string `json:"sample_values,omitempty"`
	UniqueCount  int      `json:"unique_count"`
	NullCount    int      `json:"null_count"`
}

const detectSampleSize = 100

var (
	currencyPattern = regexp.MustCompile(`^-?[$€£¥₹]\s?-?[\d,]+(\.\d+)?$`)
	percentPattern  = regexp.MustCompile(`^-?[\d,]+(\.\d+)?\s?%$`)
	datePatterns    = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
		regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`),
	}
)

var booleanTokens = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true,
	"1": true, "0": true, "y": true, "n": true,
}

// DetectColumns classifies every column by majority vote over sampled
// non-empty values. Priority: currency, percentage, date, number, boolean,
// text. A type is accepted at >=50% of samples matching (70% for number and
// boolean, which overlap too easily with ids and flags).
func DetectColumns(headers []string, rows []map[string]string) []DetectedColumn {
	cols := make([]DetectedColumn, 0, len(headers))
	for i, name := range headers {
		col := DetectedColumn{
			Index:          i,
			OriginalName:   name,
			NormalizedName: NormalizeName(name),
		}

		seen := make(map[string]struct{})
		var samples []string
		for _, row := range rows {
			v := strings.TrimSpace(row[name])
			if v == "" {
				col.NullCount++
				continue
			}
			seen[v] = struct{}{}
			if len(samples) < detectSampleSize {
				samples = append(samples, v)
			}
		}
		col.UniqueCount = len(seen)
		if len(samples) > 5 {
			col.SampleValues = samples[:5]
		} else {
			col.SampleValues = samples
		}

		col.Type, col.Confidence = classifyValues(samples)
		cols = append(cols, col)
	}
	return cols
}

func classifyValues(samples []string) (ColumnType, float64) {
	if len(samples) == 0 {
		return TypeUnknown, 0
	}
	n := float64(len(samples))

	checks := []struct {
		t         ColumnType
		match     func(string) bool
		threshold float64
	}{
		{TypeCurrency, isCurrencyValue, 0.5},
		{TypePercentage, isPercentValue, 0.5},
		{TypeDate, isDateValue, 0.5},
		{TypeNumber, isNumberValue, 0.7},
		{TypeBoolean, isBooleanValue, 0.7},
	}
	for _, c := range checks {
		matched := 0
		for _, v := range samples {
			if c.match(v) {
				matched++
			}
		}
		if frac := float64(matched) / n; frac >= c.threshold {
			return c.t, frac
		}
	}
	return TypeText, 0.5
}

func isCurrencyValue(v string) bool { return currencyPattern.MatchString(v) }

func isPercentValue(v string) bool { return percentPattern.MatchString(v) }

func isDateValue(v string) bool {
	for _, p := range datePatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

func isNumberValue(v string) bool {
	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, " ", "")
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func isBooleanValue(v string) bool {
	return booleanTokens[strings.ToLower(v)]
}

// NormalizeName converts an arbitrary header into snake_case for comparison
// and storage ("Amount Spent (USD)" -> "amount_spent_usd").
func NormalizeName(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
