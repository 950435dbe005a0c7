package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/revenue"
)

func TestListSourcesDecodesMapping(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRevenueRepo(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "campaign_id", "platform", "source_type", "is_active", "mapping",
		"orders_to_date", "orders_revenue", "created_at", "updated_at",
	}).
		AddRow("src-1", "camp-1", "facebook", "manual", true,
			[]byte(`{"mode":"conversion_value","conversion_value":7.5}`), 0, 0.0, now, now).
		AddRow("src-2", "camp-1", "facebook", "shopify", true,
			[]byte(`{"mode":"revenue"}`), 42, 1890.5, now, now)

	mock.ExpectQuery("SELECT id, campaign_id, platform, source_type, is_active, mapping").
		WithArgs("camp-1", "facebook").
		WillReturnRows(rows)

	sources, err := repo.ListSources(context.Background(), "camp-1", domain.PlatformFacebook)
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Mapping.Mode != domain.ModeConversionValue {
		t.Errorf("Mode = %s, want conversion_value", sources[0].Mapping.Mode)
	}
	if sources[0].Mapping.ConversionValue != 7.5 {
		t.Errorf("ConversionValue = %v, want 7.5", sources[0].Mapping.ConversionValue)
	}
	if sources[1].Mapping.Mode != domain.ModeRevenue {
		t.Errorf("Mode = %s, want revenue", sources[1].Mapping.Mode)
	}
	if sources[1].OrdersToDate != 42 || sources[1].OrdersRevenue != 1890.5 {
		t.Errorf("order stats not scanned: %+v", sources[1])
	}
}

func TestRevenueTotalForRange(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRevenueRepo(db)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("camp-1", "google", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(312.4))

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	total, err := repo.RevenueTotalForRange(context.Background(), "camp-1", domain.PlatformGoogle, start, end)
	if err != nil {
		t.Fatalf("revenue total: %v", err)
	}
	if total != 312.4 {
		t.Errorf("total = %v, want 312.4", total)
	}
}

func TestAddRevenueRowsTransaction(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRevenueRepo(db)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO revenue_rows")
	mock.ExpectExec("INSERT INTO revenue_rows").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO revenue_rows").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	err := repo.AddRevenueRows(context.Background(), []domain.RevenueRow{
		{SourceID: "src-1", CampaignID: "camp-1", Platform: domain.PlatformFacebook, Amount: 120, RecordedOn: day},
		{SourceID: "src-1", CampaignID: "camp-1", Platform: domain.PlatformFacebook, Amount: -15, RecordedOn: day},
	})
	if err != nil {
		t.Fatalf("add revenue rows: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetSourceActiveNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRevenueRepo(db)

	mock.ExpectExec("UPDATE revenue_sources SET is_active").
		WithArgs(false, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetSourceActive(context.Background(), "missing", false); err != revenue.ErrNotFound {
		t.Fatalf("got %v, want revenue.ErrNotFound", err)
	}
}

func TestEventsForRangeIncludesEndDay(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRevenueRepo(db)
	lateOnEndDay := time.Date(2024, 5, 31, 23, 45, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "campaign_id", "platform", "value", "occurred_at", "created_at"}).
		AddRow("ev-1", "camp-1", "facebook", 49.99, lateOnEndDay, lateOnEndDay)

	mock.ExpectQuery("SELECT id, campaign_id, platform, value, occurred_at").
		WithArgs("camp-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	events, err := repo.EventsForRange(context.Background(),
		"camp-1",
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("events for range: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Value != 49.99 {
		t.Errorf("Value = %v, want 49.99", events[0].Value)
	}
}
