package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/revenue"
	"github.com/adpulse/metrics-engine/internal/service/campaign"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var campaignCols = []string{
	"id", "name", "objective", "platform", "status",
	"start_date", "created_at", "updated_at",
}

func TestCampaignGet(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCampaignRepo(db)
	now := time.Now()

	mock.ExpectQuery("SELECT id, name, COALESCE").
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows(campaignCols).
			AddRow("camp-1", "Summer Sale", "conversions", "linkedin", "active", nil, now, now))

	c, err := repo.Get(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Name != "Summer Sale" {
		t.Errorf("Name = %s, want Summer Sale", c.Name)
	}
	if c.StartDate != nil {
		t.Errorf("StartDate should stay nil for NULL start_date")
	}
	if c.Platform != domain.PlatformLinkedIn {
		t.Errorf("Platform = %s, want linkedin", c.Platform)
	}
}

func TestCampaignGetNotFoundSentinels(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectQuery("SELECT id, name, COALESCE").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.Get(context.Background(), "missing"); err != campaign.ErrNotFound {
		t.Fatalf("Get sentinel = %v, want campaign.ErrNotFound", err)
	}

	// The same read through the revenue-facing method speaks the
	// resolver's sentinel instead.
	mock.ExpectQuery("SELECT id, name, COALESCE").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetCampaign(context.Background(), "missing"); err != revenue.ErrNotFound {
		t.Fatalf("GetCampaign sentinel = %v, want revenue.ErrNotFound", err)
	}
}

func TestCampaignUpdateDynamicSet(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCampaignRepo(db)
	name := "Renamed"

	mock.ExpectExec("UPDATE campaigns SET name = ").
		WithArgs(name, "camp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "camp-1", campaign.UpdateFields{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	// An empty update touches nothing
	if err := repo.Update(context.Background(), "camp-1", campaign.UpdateFields{}); err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCampaignDeleteOnlyDraft(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectExec("DELETE FROM campaigns").
		WithArgs("camp-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "camp-1"); err != campaign.ErrNotFound {
		t.Fatalf("delete of non-draft = %v, want campaign.ErrNotFound", err)
	}
}

func TestConnectionGetNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectQuery("SELECT id, campaign_id, platform, status").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetConnection(context.Background(), "camp-1", domain.PlatformGoogle); err != revenue.ErrNotFound {
		t.Fatalf("GetConnection sentinel = %v, want revenue.ErrNotFound", err)
	}
}

func TestSetConversionValue(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCampaignRepo(db)
	v := 9.5

	mock.ExpectExec("UPDATE platform_connections SET conversion_value").
		WithArgs(&v, "camp-1", "facebook").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetConversionValue(context.Background(), "camp-1", domain.PlatformFacebook, &v); err != nil {
		t.Fatalf("set conversion value: %v", err)
	}

	mock.ExpectExec("UPDATE platform_connections SET conversion_value").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.SetConversionValue(context.Background(), "camp-1", domain.PlatformFacebook, nil); err != revenue.ErrNotFound {
		t.Fatalf("missing connection = %v, want revenue.ErrNotFound", err)
	}
}

func TestClearConversionValue(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectExec("UPDATE platform_connections SET conversion_value = NULL").
		WithArgs("conn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ClearConversionValue(context.Background(), "conn-1"); err != nil {
		t.Fatalf("clear conversion value: %v", err)
	}
}
