package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/normalize"
	"github.com/adpulse/metrics-engine/internal/pkg/httputil"
	"github.com/adpulse/metrics-engine/internal/revenue"
	"github.com/adpulse/metrics-engine/internal/service/campaign"
)

// GET /api/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	list, total, err := s.campaigns.List(r.Context(), campaign.ListFilter{
		Status:   q.Get("status"),
		Platform: normalize.Platform(q.Get("platform")),
		Search:   q.Get("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"campaigns": list, "total": total})
}

// POST /api/campaigns
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := s.campaigns.Create(r.Context(), input)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, c)
}

// GET /api/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.campaignError(w, err)
		return
	}
	httputil.OK(w, c)
}

// PATCH /api/campaigns/{id}
func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name      *string `json:"name"`
		Objective *string `json:"objective"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	err := s.campaigns.Update(r.Context(), chi.URLParam(r, "id"), campaign.UpdateFields{
		Name:      input.Name,
		Objective: input.Objective,
	})
	if err != nil {
		s.campaignError(w, err)
		return
	}
	httputil.NoContent(w)
}

// DELETE /api/campaigns/{id}
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.campaignError(w, err)
		return
	}
	httputil.NoContent(w)
}

// POST /api/campaigns/{id}/status
func (s *Server) handleCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status string `json:"status"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	err := s.campaigns.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domain.CampaignStatus(input.Status))
	if err != nil {
		if errors.Is(err, campaign.ErrInvalidTransition) {
			httputil.Conflict(w, err.Error())
			return
		}
		s.campaignError(w, err)
		return
	}
	httputil.NoContent(w)
}

// GET /api/campaigns/{id}/connection?platform=
func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	platform, ok := s.campaignPlatform(w, r, id)
	if !ok {
		return
	}
	conn, err := s.campaigns.GetConnection(r.Context(), id, platform)
	if err != nil {
		if errors.Is(err, revenue.ErrNotFound) {
			httputil.NotFound(w, "no connection for that platform")
			return
		}
		s.campaignError(w, err)
		return
	}
	httputil.OK(w, conn)
}

// POST /api/campaigns/{id}/connection
func (s *Server) handleConnectPlatform(w http.ResponseWriter, r *http.Request) {
	var input campaign.ConnectInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	conn, err := s.campaigns.ConnectPlatform(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, conn)
}

// POST /api/campaigns/{id}/conversion-value
func (s *Server) handleSetConversionValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var input struct {
		Platform string  `json:"platform"`
		Value    float64 `json:"value"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	platform := domain.Platform(normalize.Platform(input.Platform))
	err := s.campaigns.SetConversionValue(r.Context(), id, platform, input.Value)
	if err != nil {
		if errors.Is(err, campaign.ErrInvalidValue) {
			httputil.BadRequest(w, err.Error())
			return
		}
		if errors.Is(err, revenue.ErrNotFound) {
			httputil.NotFound(w, "no connection for that platform")
			return
		}
		s.campaignError(w, err)
		return
	}
	httputil.NoContent(w)
}

// DELETE /api/campaigns/{id}/conversion-value?platform=
func (s *Server) handleClearConversionValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	platform, ok := s.campaignPlatform(w, r, id)
	if !ok {
		return
	}
	err := s.campaigns.ClearConversionValue(r.Context(), id, platform)
	if err != nil {
		if errors.Is(err, revenue.ErrNotFound) {
			httputil.NotFound(w, "no connection for that platform")
			return
		}
		s.campaignError(w, err)
		return
	}
	httputil.NoContent(w)
}

// campaignPlatform resolves the platform for a campaign-scoped request:
// the explicit query parameter when present, else the campaign's own
// platform. False means a response has already been written.
func (s *Server) campaignPlatform(w http.ResponseWriter, r *http.Request, campaignID string) (domain.Platform, bool) {
	if raw := r.URL.Query().Get("platform"); raw != "" {
		p := domain.Platform(normalize.Platform(raw))
		if !p.IsKnown() {
			httputil.BadRequest(w, "unknown platform "+strconv.Quote(raw))
			return "", false
		}
		return p, true
	}
	c, err := s.campaigns.Get(r.Context(), campaignID)
	if err != nil {
		s.campaignError(w, err)
		return "", false
	}
	return c.Platform, true
}

func (s *Server) campaignError(w http.ResponseWriter, err error) {
	if errors.Is(err, campaign.ErrNotFound) {
		httputil.NotFound(w, "campaign not found")
		return
	}
	httputil.InternalError(w, err)
}
