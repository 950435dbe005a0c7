package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/revenue"
	"github.com/adpulse/metrics-engine/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL. It also
// satisfies revenue.CampaignStore and revenue.ConnectionStore; connection
// methods live in connection.go.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var start sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(objective,''), platform, status,
		       start_date, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.Objective, &c.Platform, &c.Status,
		&start, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if start.Valid {
		c.StartDate = &start.Time
	}
	return c, nil
}

// GetCampaign satisfies revenue.CampaignStore, translating absence to the
// revenue package's sentinel.
func (r *CampaignRepo) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := r.Get(ctx, id)
	if errors.Is(err, campaign.ErrNotFound) {
		return nil, revenue.ErrNotFound
	}
	return c, err
}

func (r *CampaignRepo) List(ctx context.Context, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f.Status != "" {
		countQ += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Platform != "" {
		countQ += fmt.Sprintf(" AND platform = $%d", idx)
		args = append(args, f.Platform)
		idx++
	}
	if f.Search != "" {
		countQ += fmt.Sprintf(" AND name ILIKE $%d", idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `
		SELECT id, name, COALESCE(objective,''), platform, status,
		       start_date, created_at, updated_at
		FROM campaigns
		WHERE 1=1`

	qArgs := []interface{}{}
	qIdx := 1
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", qIdx)
		qArgs = append(qArgs, f.Status)
		qIdx++
	}
	if f.Platform != "" {
		q += fmt.Sprintf(" AND platform = $%d", qIdx)
		qArgs = append(qArgs, f.Platform)
		qIdx++
	}
	if f.Search != "" {
		q += fmt.Sprintf(" AND name ILIKE $%d", qIdx)
		qArgs = append(qArgs, "%"+f.Search+"%")
		qIdx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", qIdx, qIdx+1)
	qArgs = append(qArgs, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, qArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		var start sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Objective, &c.Platform, &c.Status,
			&start, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		if start.Valid {
			c.StartDate = &start.Time
		}
		out = append(out, c)
	}
	return out, total, nil
}

// ListActive satisfies refresher.CampaignLister: every campaign the
// periodic revenue sweep should touch.
func (r *CampaignRepo) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	out, _, err := r.List(ctx, campaign.ListFilter{Status: string(domain.CampaignActive), Limit: 1000})
	return out, err
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, name, objective, platform, status, start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`, c.ID, c.Name, c.Objective, c.Platform, c.Status, c.StartDate)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return c.ID, nil
}

func (r *CampaignRepo) Update(ctx context.Context, id string, u campaign.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Objective != nil {
		add("objective", *u.Objective)
	}
	if u.StartDate != nil {
		add("start_date", *u.StartDate)
	}

	if len(sets) == 0 {
		return nil
	}

	q := fmt.Sprintf("UPDATE campaigns SET %s, updated_at = NOW() WHERE id = $%d",
		joinComma(sets), idx)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM campaigns
		WHERE id = $1 AND status = 'draft'
	`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}
