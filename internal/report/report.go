// Package report assembles the record of one import batch: what the
// parser saw, how columns mapped, which rows had problems, and what
// finally merged. The document is archived as JSON next to the batch and
// rendered to text for operators through Liquid templates.
package report

import (
	"time"

	"github.com/adpulse/metrics-engine/internal/fieldmap"
	"github.com/adpulse/metrics-engine/internal/normalize"
	"github.com/adpulse/metrics-engine/internal/tabular"
)

// ImportReport is the full diagnostics document for one batch.
type ImportReport struct {
	BatchID     string    `json:"batch_id"`
	SourceTag   string    `json:"source_tag"`
	Platform    string    `json:"platform"`
	Status      string    `json:"status"`
	GeneratedAt time.Time `json:"generated_at"`

	RowsIn       int `json:"rows_in"`
	RowsAccepted int `json:"rows_accepted"`
	RowsRejected int `json:"rows_rejected"`
	RowsMerged   int `json:"rows_merged"`

	Schema   *tabular.DatasetSchema   `json:"schema,omitempty"`
	Columns  []tabular.DetectedColumn `json:"columns,omitempty"`
	Mappings []fieldmap.FieldMapping  `json:"mappings,omitempty"`

	// MeanMappingConfidence is the average confidence over applied
	// mappings, 0..1. Zero when nothing mapped.
	MeanMappingConfidence float64 `json:"mean_mapping_confidence"`

	RowErrors  []normalize.RowError `json:"row_errors,omitempty"`
	Warnings   []string             `json:"warnings,omitempty"`
	FailReason string               `json:"fail_reason,omitempty"`
}
