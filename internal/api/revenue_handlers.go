package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/adpulse/metrics-engine/internal/pkg/httputil"
	"github.com/adpulse/metrics-engine/internal/revenue"
	"github.com/adpulse/metrics-engine/internal/service/refresher"
)

// GET /api/campaigns/{id}/revenue-context?platform=&legacy_value=&refresh=true
//
// Serves the cached context when warm; a cold cache or refresh=true runs a
// locked resolution. legacy_value carries a session-supplied conversion
// value from older clients; the resolver decides whether to honor it.
func (s *Server) handleRevenueContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.campaigns.Get(r.Context(), id)
	if err != nil {
		s.campaignError(w, err)
		return
	}
	platform, ok := s.campaignPlatform(w, r, id)
	if !ok {
		return
	}

	var sessionValue *float64
	if raw := r.URL.Query().Get("legacy_value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httputil.BadRequest(w, "legacy_value must be a number")
			return
		}
		sessionValue = &v
	}

	var rc interface{}
	if r.URL.Query().Get("refresh") == "true" {
		rc, err = s.refresher.Refresh(r.Context(), c, platform, sessionValue)
	} else {
		rc, err = s.refresher.Context(r.Context(), c, platform, sessionValue)
	}
	if err != nil {
		if errors.Is(err, refresher.ErrBusy) {
			w.Header().Set("Retry-After", "2")
			httputil.Error(w, http.StatusServiceUnavailable, "revenue resolution in progress, retry shortly")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, rc)
}

// GET /api/campaigns/{id}/revenue-sources?platform=
func (s *Server) handleListRevenueSources(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	platform, ok := s.campaignPlatform(w, r, id)
	if !ok {
		return
	}
	sources, err := s.revenueMgr.ListSources(r.Context(), id, platform)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"sources": sources})
}

// POST /api/campaigns/{id}/revenue-sources
func (s *Server) handleCreateRevenueSource(w http.ResponseWriter, r *http.Request) {
	var input revenue.CreateSourceInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	input.CampaignID = chi.URLParam(r, "id")
	src, err := s.revenueMgr.CreateSource(r.Context(), input)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, src)
}

// DELETE /api/campaigns/{id}/revenue-sources/{sourceID}?platform=
//
// Deactivates, never deletes: imported rows stay for the audit trail. The
// next resolution notices the configuration is gone and clears any stale
// connection value.
func (s *Server) handleDeactivateRevenueSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	platform, ok := s.campaignPlatform(w, r, id)
	if !ok {
		return
	}
	err := s.revenueMgr.DeactivateSource(r.Context(), id, platform, chi.URLParam(r, "sourceID"))
	if err != nil {
		if errors.Is(err, revenue.ErrNotFound) {
			httputil.NotFound(w, "revenue source not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// POST /api/campaigns/{id}/revenue-sources/{sourceID}/rows
func (s *Server) handleImportRevenueRows(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	platform, ok := s.campaignPlatform(w, r, id)
	if !ok {
		return
	}
	var input struct {
		Rows []revenue.RevenueRowInput `json:"rows"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	n, err := s.revenueMgr.ImportRevenueRows(r.Context(), id, platform, chi.URLParam(r, "sourceID"), input.Rows)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, map[string]any{"imported": n})
}

// POST /api/webhooks/conversions
//
// The real-time conversion feed. Zero-value events count conversions
// without attributing revenue.
func (s *Server) handleConversionWebhook(w http.ResponseWriter, r *http.Request) {
	var input revenue.ConversionInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	ev, err := s.revenueMgr.RecordConversion(r.Context(), input)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, ev)
}
