package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/service/importer"
)

// ImportBatchRepo implements importer.BatchStore against PostgreSQL.
type ImportBatchRepo struct{ db *sql.DB }

// NewImportBatchRepo creates a Postgres-backed import batch repository.
func NewImportBatchRepo(db *sql.DB) *ImportBatchRepo { return &ImportBatchRepo{db: db} }

const batchColumns = `id, source_tag, platform, status, rows_in, rows_accepted,
	rows_rejected, rows_merged, error_count, warning_count,
	COALESCE(fail_reason,''), started_at, completed_at`

func scanBatch(row interface{ Scan(...interface{}) error }) (*domain.ImportBatch, error) {
	b := &domain.ImportBatch{}
	var completed sql.NullTime
	err := row.Scan(
		&b.ID, &b.SourceTag, &b.Platform, &b.Status, &b.RowsIn, &b.RowsAccepted,
		&b.RowsRejected, &b.RowsMerged, &b.ErrorCount, &b.WarningCount,
		&b.FailReason, &b.StartedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		b.CompletedAt = &completed.Time
	}
	return b, nil
}

func (r *ImportBatchRepo) CreateBatch(ctx context.Context, b *domain.ImportBatch) (string, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_batches
			(id, source_tag, platform, status, rows_in, rows_accepted,
			 rows_rejected, rows_merged, error_count, warning_count, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`, b.ID, b.SourceTag, b.Platform, b.Status, b.RowsIn, b.RowsAccepted,
		b.RowsRejected, b.RowsMerged, b.ErrorCount, b.WarningCount)
	if err != nil {
		return "", fmt.Errorf("create batch: %w", err)
	}
	return b.ID, nil
}

func (r *ImportBatchRepo) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	b, err := scanBatch(r.db.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM import_batches WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, importer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

func (r *ImportBatchRepo) ListBatches(ctx context.Context, limit int) ([]domain.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM import_batches ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []domain.ImportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *ImportBatchRepo) UpdateBatch(ctx context.Context, b *domain.ImportBatch) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE import_batches SET
			status = $1, rows_in = $2, rows_accepted = $3, rows_rejected = $4,
			rows_merged = $5, error_count = $6, warning_count = $7,
			fail_reason = NULLIF($8, ''), completed_at = $9
		WHERE id = $10
	`, b.Status, b.RowsIn, b.RowsAccepted, b.RowsRejected, b.RowsMerged,
		b.ErrorCount, b.WarningCount, b.FailReason, b.CompletedAt, b.ID)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return importer.ErrNotFound
	}
	return nil
}

// NextPending claims the oldest received batch older than the orphan age
// threshold. A batch sits in received while its source fetch is still in
// flight, so the age guard must exceed every fetch timeout; without it a
// reclaim sweep would steal live batches. SKIP LOCKED keeps two workers
// from claiming the same batch.
func (r *ImportBatchRepo) NextPending(ctx context.Context) (*domain.ImportBatch, error) {
	b, err := scanBatch(r.db.QueryRowContext(ctx, `
		UPDATE import_batches SET status = 'mapped'
		WHERE id = (
			SELECT id FROM import_batches
			WHERE status = 'received'
			  AND started_at < NOW() - INTERVAL '10 minutes'
			ORDER BY started_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+batchColumns))
	if err == sql.ErrNoRows {
		return nil, importer.ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending batch: %w", err)
	}
	return b, nil
}
