// Package fieldmap matches detected source columns against the canonical
// field vocabulary. Matching is score-based: exact names, aliases, regex
// patterns, type compatibility, and edit-distance similarity each contribute
// a fixed weight, and assignment runs required fields before optional ones
// so a required field is never starved by an optional lookalike.
package fieldmap

import (
	"fmt"
	"strings"

	"github.com/adpulse/metrics-engine/internal/tabular"
)

// DefaultMinConfidence is the assignment threshold for required fields.
// Optional fields use 80% of the effective threshold.
const DefaultMinConfidence = 0.6

// MatchType records how a mapping came to exist.
type MatchType string

const (
	MatchAuto     MatchType = "auto"
	MatchManual   MatchType = "manual"
	MatchTemplate MatchType = "template"
)

// FieldMapping binds one source column to one vocabulary field.
type FieldMapping struct {
	SourceColumnIndex int       `json:"source_column_index"`
	SourceColumnName  string    `json:"source_column_name"`
	TargetFieldID     string    `json:"target_field_id"`
	TargetFieldName   string    `json:"target_field_name"`
	MatchType         MatchType `json:"match_type"`
	Confidence        float64   `json:"confidence"`

	// Transform overrides the field's default transform when set, used by
	// saved mapping templates that carry their own cleanup rules.
	Transform func(string) string `json:"-"`
}

const (
	weightExactName  = 0.5
	weightAlias      = 0.4
	weightPattern    = 0.3
	weightTypeMatch  = 0.2
	penaltyTypeClash = 0.3
	weightSimilarity = 0.2
)

// Score rates how well a detected column fits a field definition on [0, 1].
func Score(col tabular.DetectedColumn, field FieldDefinition) float64 {
	colName := foldName(col.OriginalName)
	fieldName := foldName(field.DisplayName)

	score := 0.0
	if colName != "" && (colName == fieldName || colName == foldName(field.ID)) {
		score += weightExactName
	}
	if aliasMatch(colName, field.Aliases) {
		score += weightAlias
	}
	if patternMatch(col.OriginalName, field) {
		score += weightPattern
	}
	if typeCompatible(col.Type, field.ValueType) {
		score += weightTypeMatch
	} else {
		score -= penaltyTypeClash
	}
	score += weightSimilarity * Similarity(colName, fieldName)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// AutoMap assigns columns to vocabulary fields in two passes: required
// fields first at minConfidence, then optional fields at a relaxed 80% of
// it. Each column and each field is used at most once. Within a pass,
// fields claim columns in vocabulary declaration order, so earlier fields
// win contested columns.
func AutoMap(cols []tabular.DetectedColumn, fields []FieldDefinition, minConfidence float64) []FieldMapping {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	usedCols := make(map[int]bool, len(cols))
	mappedFields := make(map[string]bool, len(fields))
	var mappings []FieldMapping

	passes := []struct {
		required  bool
		threshold float64
	}{
		{required: true, threshold: minConfidence},
		{required: false, threshold: minConfidence * 0.8},
	}

	for _, pass := range passes {
		for _, field := range fields {
			if field.Required != pass.required || mappedFields[field.ID] {
				continue
			}
			bestIdx := -1
			bestScore := 0.0
			var bestCol tabular.DetectedColumn
			for _, col := range cols {
				if usedCols[col.Index] {
					continue
				}
				if s := Score(col, field); s > bestScore {
					bestScore, bestIdx, bestCol = s, col.Index, col
				}
			}
			if bestIdx < 0 || bestScore < pass.threshold {
				continue
			}
			usedCols[bestIdx] = true
			mappedFields[field.ID] = true
			mappings = append(mappings, FieldMapping{
				SourceColumnIndex: bestIdx,
				SourceColumnName:  bestCol.OriginalName,
				TargetFieldID:     field.ID,
				TargetFieldName:   field.DisplayName,
				MatchType:         MatchAuto,
				Confidence:        bestScore,
			})
		}
	}
	return mappings
}

// Validate reports structural problems with a mapping set: required fields
// left unmapped and fields claimed by more than one column. One message per
// offending field; an empty slice means the set is usable.
func Validate(mappings []FieldMapping, fields []FieldDefinition) []string {
	counts := make(map[string]int, len(mappings))
	for _, m := range mappings {
		counts[m.TargetFieldID]++
	}

	var problems []string
	for _, f := range fields {
		if f.Required && counts[f.ID] == 0 {
			problems = append(problems, fmt.Sprintf("required field %q is not mapped", f.DisplayName))
		}
	}
	for _, f := range fields {
		if n := counts[f.ID]; n > 1 {
			problems = append(problems, fmt.Sprintf("field %q is mapped by %d columns", f.DisplayName, n))
		}
	}
	return problems
}

func foldName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.Join(strings.Fields(name), " ")
}

func aliasMatch(colName string, aliases []string) bool {
	if colName == "" {
		return false
	}
	for _, alias := range aliases {
		a := foldName(alias)
		if a == "" {
			continue
		}
		if strings.Contains(colName, a) || strings.Contains(a, colName) {
			return true
		}
	}
	return false
}

func patternMatch(originalName string, field FieldDefinition) bool {
	for _, p := range field.Patterns {
		if p.MatchString(originalName) {
			return true
		}
	}
	return false
}

// typeCompatible accepts exact matches, lets text-detected columns map
// anywhere (CSV exports often defeat detection), and lets plain numbers
// stand in for currency or percentage values and vice versa. Currency and
// percentage never stand in for each other: a % column offered to a spend
// field should be penalized, not rewarded.
func typeCompatible(detected, wanted tabular.ColumnType) bool {
	if detected == wanted || detected == tabular.TypeText {
		return true
	}
	specializedNumeric := func(t tabular.ColumnType) bool {
		return t == tabular.TypeCurrency || t == tabular.TypePercentage
	}
	if detected == tabular.TypeNumber && specializedNumeric(wanted) {
		return true
	}
	return wanted == tabular.TypeNumber && specializedNumeric(detected)
}
