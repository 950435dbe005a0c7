package domain

import "time"

// ImportStatus enumerates the lifecycle states of an import batch.
type ImportStatus string

const (
	ImportReceived    ImportStatus = "received"
	ImportMapped      ImportStatus = "mapped"
	ImportTransformed ImportStatus = "transformed"
	ImportCompleted   ImportStatus = "completed"
	ImportFailed      ImportStatus = "failed"
)

// ImportBatch records one run of the normalization pipeline over a row
// source: where the rows came from, how many survived, and how it ended.
type ImportBatch struct {
	ID        string       `json:"id" db:"id"`
	SourceTag string       `json:"source_tag" db:"source_tag"`
	Platform  Platform     `json:"platform" db:"platform"`
	Status    ImportStatus `json:"status" db:"status"`

	RowsIn       int `json:"rows_in" db:"rows_in"`
	RowsAccepted int `json:"rows_accepted" db:"rows_accepted"`
	RowsRejected int `json:"rows_rejected" db:"rows_rejected"`
	RowsMerged   int `json:"rows_merged" db:"rows_merged"`
	ErrorCount   int `json:"error_count" db:"error_count"`
	WarningCount int `json:"warning_count" db:"warning_count"`

	// FailReason is set only for failed batches (mapping conflicts, fetch
	// errors); row-level problems live in the archived report instead.
	FailReason string `json:"fail_reason,omitempty" db:"fail_reason"`

	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// IsTerminal returns true if the batch reached a final state.
func (b *ImportBatch) IsTerminal() bool {
	return b.Status == ImportCompleted || b.Status == ImportFailed
}
