// Package normalize turns mapped source rows into typed canonical metric
// records: per-field cleanup and type coercion, required-field enforcement,
// campaign row filtering, and merge-by-summation aggregation with ratio
// recomputation.
package normalize

import (
	"fmt"
	"strings"

	"github.com/adpulse/metrics-engine/internal/fieldmap"
	"github.com/adpulse/metrics-engine/internal/tabular"
)

// ErrorClass buckets row errors for aggregate reporting.
type ErrorClass string

const (
	// ErrClassValidation marks a single cell that failed conversion or a
	// field validator. The row may still be accepted.
	ErrClassValidation ErrorClass = "field_validation"
	// ErrClassRequired marks a whole-row rejection. Emitted once per
	// rejected row with the combined list of missing fields.
	ErrClassRequired ErrorClass = "required_field_missing"
)

// RowError describes one problem found while transforming a data row.
// Row is the 1-based index of the data row, not counting the header.
type RowError struct {
	Row     int        `json:"row"`
	Field   string     `json:"field,omitempty"`
	Value   string     `json:"value,omitempty"`
	Class   ErrorClass `json:"class"`
	Message string     `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Row is one normalized record keyed by canonical field ID. Values are
// float64, string, bool, or nil depending on the field's declared type.
type Row map[string]any

// Reserved row keys set by Transform alongside the mapped fields.
const (
	platformKey   = "platform"
	confidenceKey = "confidence"
)

// TransformResult carries the surviving rows plus everything that went
// wrong on the way. Errors never abort the batch.
type TransformResult struct {
	Rows     []Row      `json:"rows"`
	Accepted int        `json:"accepted"`
	Rejected int        `json:"rejected"`
	Errors   []RowError `json:"errors,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Transform applies a validated mapping set to raw rows. Per field: the
// mapping's custom transform (else the field default) runs first, then the
// field validator, then type coercion. Cell failures are collected and the
// field stored as nil; a row is rejected only when a required field ends up
// unpopulated, with one combined error naming every missing field.
func Transform(rows []map[string]string, mappings []fieldmap.FieldMapping, fields []fieldmap.FieldDefinition, platform string) *TransformResult {
	res := &TransformResult{}
	canonicalPlatform := Platform(platform)
	confidence := meanConfidence(mappings)

	for i, raw := range rows {
		rowNum := i + 1
		out := Row{}

		for _, m := range mappings {
			field, ok := fieldmap.FieldByID(fields, m.TargetFieldID)
			if !ok {
				res.Warnings = append(res.Warnings, fmt.Sprintf("column %q is mapped to unknown field %q", m.SourceColumnName, m.TargetFieldID))
				continue
			}

			value := raw[m.SourceColumnName]
			switch {
			case m.Transform != nil:
				value = m.Transform(value)
			case field.Transform != nil:
				value = field.Transform(value)
			}

			if strings.TrimSpace(value) == "" {
				if field.Required {
					res.Errors = append(res.Errors, RowError{
						Row: rowNum, Field: field.ID, Class: ErrClassValidation,
						Message: fmt.Sprintf("required field %q is empty", field.DisplayName),
					})
				} else {
					out[field.ID] = nil
				}
				continue
			}

			if field.Validate != nil && !field.Validate(value) {
				res.Errors = append(res.Errors, RowError{
					Row: rowNum, Field: field.ID, Value: value, Class: ErrClassValidation,
					Message: fmt.Sprintf("field %q failed validation", field.DisplayName),
				})
				continue
			}

			coerced, err := coerceValue(field, value)
			if err != nil {
				res.Errors = append(res.Errors, RowError{
					Row: rowNum, Field: field.ID, Value: value, Class: ErrClassValidation,
					Message: err.Error(),
				})
				out[field.ID] = nil
				continue
			}
			out[field.ID] = coerced
		}

		if missing := missingRequired(out, fields); len(missing) > 0 {
			res.Rejected++
			res.Errors = append(res.Errors, RowError{
				Row: rowNum, Class: ErrClassRequired,
				Message: "missing required fields: " + strings.Join(missing, ", "),
			})
			continue
		}

		out[platformKey] = canonicalPlatform
		out[confidenceKey] = confidence
		res.Rows = append(res.Rows, out)
		res.Accepted++
	}
	return res
}

func coerceValue(field fieldmap.FieldDefinition, value string) (any, error) {
	// Campaign names have their own cleanup rule rather than a plain
	// text copy.
	if field.ID == fieldmap.FieldCampaignName {
		name := CampaignName(value)
		if name == "" {
			return nil, fmt.Errorf("campaign name %q is empty after cleanup", value)
		}
		return name, nil
	}

	switch field.ValueType {
	case tabular.TypeCurrency:
		v, err := Currency(value)
		if err != nil {
			return nil, err
		}
		return v, nil
	case tabular.TypePercentage:
		v, err := Percentage(value)
		if err != nil {
			return nil, err
		}
		return v, nil
	case tabular.TypeNumber:
		v, err := Number(value)
		if err != nil {
			return nil, err
		}
		return v, nil
	case tabular.TypeDate:
		v, err := Date(value)
		if err != nil {
			return nil, err
		}
		return v, nil
	case tabular.TypeBoolean:
		return Boolean(value), nil
	default:
		return value, nil
	}
}

func missingRequired(row Row, fields []fieldmap.FieldDefinition) []string {
	var missing []string
	for _, f := range fields {
		if !f.Required {
			continue
		}
		v, ok := row[f.ID]
		if !ok || v == nil {
			missing = append(missing, f.DisplayName)
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			missing = append(missing, f.DisplayName)
		}
	}
	return missing
}

func meanConfidence(mappings []fieldmap.FieldMapping) float64 {
	if len(mappings) == 0 {
		return 0
	}
	var sum float64
	for _, m := range mappings {
		sum += m.Confidence
	}
	return sum / float64(len(mappings))
}
