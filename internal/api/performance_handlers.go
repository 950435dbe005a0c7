package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/normalize"
	"github.com/adpulse/metrics-engine/internal/pkg/httputil"
)

// GET /api/performance?campaign=&platform=&start=&end=
//
// Returns stored canonical rows. Dates are YYYY-MM-DD inclusive; the
// default range is the trailing 30 days.
func (s *Server) handleListPerformance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	end := q.Get("end")
	start := q.Get("start")
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	if start == "" {
		start = time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	}
	for _, d := range []string{start, end} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			httputil.BadRequest(w, "dates must be YYYY-MM-DD")
			return
		}
	}

	platform := domain.Platform(normalize.Platform(q.Get("platform")))
	rows, err := s.performance.Range(r.Context(), q.Get("campaign"), platform, start, end)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"rows":  rows,
		"start": start,
		"end":   end,
	})
}

// GET /api/metrics/summary?campaign=&platform=&days=
func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, _ := strconv.Atoi(q.Get("days"))
	platform := domain.Platform(normalize.Platform(q.Get("platform")))

	ov, err := s.summary.Overview(r.Context(), q.Get("campaign"), platform, days)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, ov)
}
