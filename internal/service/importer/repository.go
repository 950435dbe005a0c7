package importer

import (
	"context"

	"github.com/adpulse/metrics-engine/internal/domain"
)

// BatchStore persists the import batch audit trail.
// Implementations must be safe for concurrent use.
type BatchStore interface {
	// CreateBatch inserts a new batch record and returns its ID.
	CreateBatch(ctx context.Context, b *domain.ImportBatch) (string, error)

	// GetBatch returns a batch by ID. Returns ErrNotFound if it doesn't exist.
	GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error)

	// ListBatches returns recent batches, newest first.
	ListBatches(ctx context.Context, limit int) ([]domain.ImportBatch, error)

	// UpdateBatch writes the batch's counters, status, and completion
	// fields back. Returns ErrNotFound for unknown batches.
	UpdateBatch(ctx context.Context, b *domain.ImportBatch) error

	// NextPending claims the oldest received batch for processing, moving
	// it to mapped status so concurrent workers cannot claim it twice.
	// Returns ErrNoPending when the queue is empty.
	NextPending(ctx context.Context) (*domain.ImportBatch, error)
}

// RowStore persists normalized performance rows.
type RowStore interface {
	// UpsertRows writes canonical rows, replacing any existing row with
	// the same campaign+platform+date identity. Re-importing the same
	// export must not double-count.
	UpsertRows(ctx context.Context, rows []domain.CanonicalRow) error
}
