package revenue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse/metrics-engine/internal/domain"
)

// SourceAdmin extends SourceStore with the write operations behind the
// revenue-source admin surface.
type SourceAdmin interface {
	SourceStore

	// CreateSource inserts a new revenue source and returns its ID.
	CreateSource(ctx context.Context, src *domain.RevenueSource) (string, error)

	// SetSourceActive flips a source's active flag. Returns ErrNotFound
	// for unknown sources.
	SetSourceActive(ctx context.Context, id string, active bool) error

	// AddRevenueRows appends imported revenue-to-date rows.
	AddRevenueRows(ctx context.Context, rows []domain.RevenueRow) error
}

// EventSink extends EventStore with webhook ingestion.
type EventSink interface {
	EventStore

	// RecordEvent persists one conversion event and returns its ID.
	RecordEvent(ctx context.Context, ev *domain.ConversionEvent) (string, error)
}

// Manager owns the write side of revenue configuration: source CRUD,
// imported revenue rows, and the conversion event feed. Every write
// invalidates the cached context for the touched campaign+platform so the
// next resolution sees it.
type Manager struct {
	sources SourceAdmin
	events  EventSink
	cache   *Cache
}

// NewManager creates a revenue manager. cache may be nil.
func NewManager(sources SourceAdmin, events EventSink, cache *Cache) *Manager {
	return &Manager{sources: sources, events: events, cache: cache}
}

// ListSources returns every revenue source for the campaign+platform.
func (m *Manager) ListSources(ctx context.Context, campaignID string, platform domain.Platform) ([]domain.RevenueSource, error) {
	return m.sources.ListSources(ctx, campaignID, platform)
}

// CreateSourceInput holds the fields for configuring a revenue source.
type CreateSourceInput struct {
	CampaignID      string  `json:"campaign_id"`
	Platform        string  `json:"platform"`
	SourceType      string  `json:"source_type"`
	Mode            string  `json:"mode"`
	ConversionValue float64 `json:"conversion_value"`
}

var knownSourceTypes = map[domain.SourceType]bool{
	domain.SourceTypeCSV:         true,
	domain.SourceTypeSpreadsheet: true,
	domain.SourceTypeManual:      true,
	domain.SourceTypeWebhook:     true,
	domain.SourceTypeShopify:     true,
}

// CreateSource validates and persists a new active revenue source.
func (m *Manager) CreateSource(ctx context.Context, input CreateSourceInput) (*domain.RevenueSource, error) {
	if input.CampaignID == "" {
		return nil, fmt.Errorf("campaign_id is required")
	}
	st := domain.SourceType(input.SourceType)
	if !knownSourceTypes[st] {
		return nil, fmt.Errorf("unknown source type %q", input.SourceType)
	}
	switch input.Mode {
	case domain.ModeRevenue, "":
	case domain.ModeConversionValue:
		if input.ConversionValue <= 0 {
			return nil, fmt.Errorf("conversion_value mode requires a positive value")
		}
	default:
		return nil, fmt.Errorf("unknown mapping mode %q", input.Mode)
	}

	src := &domain.RevenueSource{
		ID:         uuid.New().String(),
		CampaignID: input.CampaignID,
		Platform:   domain.Platform(input.Platform),
		SourceType: st,
		IsActive:   true,
		Mapping: domain.SourceMapping{
			Mode:            input.Mode,
			ConversionValue: input.ConversionValue,
		},
	}
	id, err := m.sources.CreateSource(ctx, src)
	if err != nil {
		return nil, err
	}
	src.ID = id

	m.cache.Invalidate(ctx, src.CampaignID, src.Platform)
	log.Printf("[revenue] source %s (%s) configured for campaign %s", id, st, input.CampaignID)
	return src, nil
}

// DeactivateSource turns a source off without deleting its imported rows.
// Deactivating the last source triggers stale-value clearing on the next
// resolution.
func (m *Manager) DeactivateSource(ctx context.Context, campaignID string, platform domain.Platform, sourceID string) error {
	if err := m.sources.SetSourceActive(ctx, sourceID, false); err != nil {
		return err
	}
	m.cache.Invalidate(ctx, campaignID, platform)
	return nil
}

// RevenueRowInput is one imported revenue amount attributed to a day.
type RevenueRowInput struct {
	Amount     float64   `json:"amount"`
	RecordedOn time.Time `json:"recorded_on"`
}

// ImportRevenueRows appends imported revenue-to-date rows for a source.
// Negative amounts are refunds and are accepted.
func (m *Manager) ImportRevenueRows(ctx context.Context, campaignID string, platform domain.Platform, sourceID string, inputs []RevenueRowInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}
	rows := make([]domain.RevenueRow, 0, len(inputs))
	for _, in := range inputs {
		if in.RecordedOn.IsZero() {
			return 0, fmt.Errorf("recorded_on is required on every row")
		}
		rows = append(rows, domain.RevenueRow{
			ID:         uuid.New().String(),
			SourceID:   sourceID,
			CampaignID: campaignID,
			Platform:   platform,
			Amount:     in.Amount,
			RecordedOn: in.RecordedOn,
		})
	}
	if err := m.sources.AddRevenueRows(ctx, rows); err != nil {
		return 0, err
	}
	m.cache.Invalidate(ctx, campaignID, platform)
	return len(rows), nil
}

// ConversionInput is one webhook-reported conversion.
type ConversionInput struct {
	CampaignID string    `json:"campaign_id"`
	Platform   string    `json:"platform"`
	Value      float64   `json:"value"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RecordConversion ingests a conversion event from the webhook feed.
// A zero value counts the conversion without attributing revenue.
func (m *Manager) RecordConversion(ctx context.Context, input ConversionInput) (*domain.ConversionEvent, error) {
	if input.CampaignID == "" {
		return nil, fmt.Errorf("campaign_id is required")
	}
	if input.Value < 0 {
		return nil, fmt.Errorf("value must not be negative")
	}
	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	ev := &domain.ConversionEvent{
		ID:         uuid.New().String(),
		CampaignID: input.CampaignID,
		Platform:   domain.Platform(input.Platform),
		Value:      input.Value,
		OccurredAt: occurred,
	}
	id, err := m.events.RecordEvent(ctx, ev)
	if err != nil {
		return nil, err
	}
	ev.ID = id

	m.cache.Invalidate(ctx, ev.CampaignID, ev.Platform)
	return ev, nil
}
