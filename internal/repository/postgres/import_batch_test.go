package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/service/importer"
)

var batchCols = []string{
	"id", "source_tag", "platform", "status", "rows_in", "rows_accepted",
	"rows_rejected", "rows_merged", "error_count", "warning_count",
	"fail_reason", "started_at", "completed_at",
}

func TestGetBatch(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewImportBatchRepo(db)
	started := time.Now()

	mock.ExpectQuery("SELECT id, source_tag, platform, status").
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows(batchCols).
			AddRow("batch-1", "upload:report.csv", "linkedin", "completed",
				100, 97, 3, 90, 3, 5, "", started, started))

	b, err := repo.GetBatch(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if b.Status != domain.ImportCompleted {
		t.Errorf("Status = %s, want completed", b.Status)
	}
	if b.RowsMerged != 90 {
		t.Errorf("RowsMerged = %d, want 90", b.RowsMerged)
	}
	if b.CompletedAt == nil {
		t.Errorf("CompletedAt should be set for a terminal batch")
	}
}

func TestGetBatchNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewImportBatchRepo(db)

	mock.ExpectQuery("SELECT id, source_tag, platform, status").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetBatch(context.Background(), "missing"); !errors.Is(err, importer.ErrNotFound) {
		t.Fatalf("got %v, want importer.ErrNotFound", err)
	}
}

func TestUpdateBatchNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewImportBatchRepo(db)

	mock.ExpectExec("UPDATE import_batches SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateBatch(context.Background(), &domain.ImportBatch{ID: "missing", Status: domain.ImportFailed})
	if !errors.Is(err, importer.ErrNotFound) {
		t.Fatalf("got %v, want importer.ErrNotFound", err)
	}
}

func TestNextPendingClaims(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewImportBatchRepo(db)
	started := time.Now()

	// UPDATE ... RETURNING goes through the query path. The claim must
	// carry the age guard so it never steals a batch mid-fetch.
	mock.ExpectQuery(`UPDATE import_batches SET status(?s:.*)started_at < NOW\(\) - INTERVAL '10 minutes'`).
		WillReturnRows(sqlmock.NewRows(batchCols).
			AddRow("batch-2", "url:https://ads.example.com/export.csv", "facebook", "mapped",
				50, 0, 0, 0, 0, 0, "", started, nil))

	b, err := repo.NextPending(context.Background())
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if b.ID != "batch-2" {
		t.Errorf("ID = %s, want batch-2", b.ID)
	}
	if b.Status != domain.ImportMapped {
		t.Errorf("Status = %s, want mapped after the claim", b.Status)
	}
	if b.CompletedAt != nil {
		t.Errorf("CompletedAt should be nil for an in-flight batch")
	}
}

func TestNextPendingEmpty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewImportBatchRepo(db)

	mock.ExpectQuery("UPDATE import_batches SET status").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.NextPending(context.Background()); !errors.Is(err, importer.ErrNoPending) {
		t.Fatalf("got %v, want importer.ErrNoPending", err)
	}
}
