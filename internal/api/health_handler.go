package api

import (
	"context"
	"net/http"
	"time"

	"github.com/adpulse/metrics-engine/internal/pkg/httputil"
)

// GET /api/health
//
// Reports per-dependency status. Postgres down makes the service
// unhealthy; Redis down only degrades it (cache and locks fall back).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := "healthy"
	code := http.StatusOK

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			checks["postgres"] = "down: " + err.Error()
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		} else {
			checks["postgres"] = "up"
		}
	} else {
		checks["postgres"] = "not_configured"
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down: " + err.Error()
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["redis"] = "up"
		}
	} else {
		checks["redis"] = "not_configured"
	}

	httputil.JSON(w, code, map[string]any{
		"status": status,
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
