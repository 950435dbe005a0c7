package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// routes builds the router. Handlers are grouped by resource; every
// response goes through the httputil envelope helpers.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/campaigns", func(r chi.Router) {
		r.Get("/", s.handleListCampaigns)
		r.Post("/", s.handleCreateCampaign)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetCampaign)
			r.Patch("/", s.handleUpdateCampaign)
			r.Delete("/", s.handleDeleteCampaign)
			r.Post("/status", s.handleCampaignStatus)

			r.Get("/connection", s.handleGetConnection)
			r.Post("/connection", s.handleConnectPlatform)
			r.Post("/conversion-value", s.handleSetConversionValue)
			r.Delete("/conversion-value", s.handleClearConversionValue)

			r.Get("/revenue-context", s.handleRevenueContext)
			r.Get("/revenue-sources", s.handleListRevenueSources)
			r.Post("/revenue-sources", s.handleCreateRevenueSource)
			r.Delete("/revenue-sources/{sourceID}", s.handleDeactivateRevenueSource)
			r.Post("/revenue-sources/{sourceID}/rows", s.handleImportRevenueRows)
		})
	})

	r.Route("/api/imports", func(r chi.Router) {
		r.Get("/", s.handleListImports)
		r.Post("/", s.handleRunImport)
		r.Get("/{id}", s.handleGetImport)
		r.Get("/{id}/report", s.handleImportReport)
	})

	r.Post("/api/mappings/preview", s.handleMappingPreview)

	r.Get("/api/performance", s.handleListPerformance)
	r.Get("/api/metrics/summary", s.handleMetricsSummary)

	r.Post("/api/webhooks/conversions", s.handleConversionWebhook)

	return r
}
