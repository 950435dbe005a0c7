package campaign

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/normalize"
	"github.com/adpulse/metrics-engine/internal/pkg/logger"
)

// Service implements campaign business logic. It coordinates between the
// repository layer and connection administration. All public methods are
// safe for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a campaign service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Campaign, int, error) {
	return s.repo.List(ctx, f)
}

// Create validates and persists a new campaign in draft status.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	platform := domain.Platform(normalize.Platform(input.Platform))
	if !platform.IsKnown() {
		return nil, fmt.Errorf("unknown platform %q", input.Platform)
	}

	c := &domain.Campaign{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Objective: input.Objective,
		Platform:  platform,
		Status:    domain.CampaignDraft,
	}
	if input.StartDate != nil {
		c.StartDate = input.StartDate
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// Update modifies mutable campaign fields.
func (s *Service) Update(ctx context.Context, id string, u UpdateFields) error {
	return s.repo.Update(ctx, id, u)
}

// Delete removes a campaign (only draft).
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// allowedTransitions maps each status to the statuses reachable from it.
var allowedTransitions = map[domain.CampaignStatus][]domain.CampaignStatus{
	domain.CampaignDraft:     {domain.CampaignActive},
	domain.CampaignActive:    {domain.CampaignPaused, domain.CampaignCompleted},
	domain.CampaignPaused:    {domain.CampaignActive, domain.CampaignCompleted},
	domain.CampaignCompleted: {},
}

// UpdateStatus transitions a campaign through its lifecycle. Returns
// ErrInvalidTransition when the move is not allowed.
func (s *Service) UpdateStatus(ctx context.Context, id string, next domain.CampaignStatus) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	ok := false
	for _, allowed := range allowedTransitions[c.Status] {
		if next == allowed {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, next)
	}

	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return err
	}
	log.Printf("[campaign.Service] Campaign %s: %s -> %s", id, c.Status, next)
	return nil
}

// GetConnection returns the campaign's connection for one platform.
func (s *Service) GetConnection(ctx context.Context, campaignID string, platform domain.Platform) (*domain.Connection, error) {
	return s.repo.GetConnection(ctx, campaignID, platform)
}

// ConnectPlatform creates or replaces the campaign's platform connection.
func (s *Service) ConnectPlatform(ctx context.Context, campaignID string, input ConnectInput) (*domain.Connection, error) {
	if _, err := s.repo.Get(ctx, campaignID); err != nil {
		return nil, err
	}
	platform := domain.Platform(normalize.Platform(input.Platform))
	if !platform.IsKnown() {
		return nil, fmt.Errorf("unknown platform %q", input.Platform)
	}
	if input.AccountID == "" {
		return nil, fmt.Errorf("account_id is required")
	}

	conn := &domain.Connection{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		Platform:   platform,
		Status:     domain.ConnectionConnected,
		AccountID:  input.AccountID,
		APIKey:     input.APIKey,
	}
	id, err := s.repo.UpsertConnection(ctx, conn)
	if err != nil {
		return nil, err
	}
	conn.ID = id
	log.Printf("[campaign.Service] Campaign %s connected to %s (account %s, key %s)",
		campaignID, platform, input.AccountID, logger.RedactSecret(input.APIKey))
	return conn, nil
}

// SetConversionValue pins an explicit revenue-per-conversion figure on the
// campaign's connection. The value must be positive; use ClearConversionValue
// to remove it.
func (s *Service) SetConversionValue(ctx context.Context, campaignID string, platform domain.Platform, value float64) error {
	if value <= 0 {
		return ErrInvalidValue
	}
	if err := s.repo.SetConversionValue(ctx, campaignID, platform, &value); err != nil {
		return err
	}
	log.Printf("[campaign.Service] Campaign %s/%s: conversion value set to %.2f", campaignID, platform, value)
	return nil
}

// ClearConversionValue removes the explicit conversion value from the
// campaign's connection.
func (s *Service) ClearConversionValue(ctx context.Context, campaignID string, platform domain.Platform) error {
	return s.repo.SetConversionValue(ctx, campaignID, platform, nil)
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name      string     `json:"name"`
	Objective string     `json:"objective"`
	Platform  string     `json:"platform"`
	StartDate *time.Time `json:"start_date"`
}

// ConnectInput holds the fields for connecting a campaign to its platform
// account.
type ConnectInput struct {
	Platform  string `json:"platform"`
	AccountID string `json:"account_id"`
	APIKey    string `json:"api_key"`
}
