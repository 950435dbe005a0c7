package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adpulse/metrics-engine/internal/config"
	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/insights"
	"github.com/adpulse/metrics-engine/internal/report"
	"github.com/adpulse/metrics-engine/internal/revenue"
	"github.com/adpulse/metrics-engine/internal/service/campaign"
	"github.com/adpulse/metrics-engine/internal/service/importer"
	"github.com/adpulse/metrics-engine/internal/service/refresher"
	"github.com/adpulse/metrics-engine/internal/service/summary"
)

// PerformanceReader serves stored canonical rows to the performance
// endpoints. Implemented by the Postgres performance repository.
type PerformanceReader interface {
	Range(ctx context.Context, campaignName string, platform domain.Platform, startDate, endDate string) ([]domain.CanonicalRow, error)
}

// Server wires the service layer to HTTP. Construct with NewServer, then
// ListenAndServe.
type Server struct {
	cfg config.ServerConfig

	campaigns   *campaign.Service
	imports     *importer.Service
	summary     *summary.Service
	revenueMgr  *revenue.Manager
	refresher   *refresher.Service
	performance PerformanceReader
	renderer    *report.Renderer
	narrator    *insights.Generator

	importCfg config.ImportConfig

	db    *sql.DB
	redis *redis.Client

	server *http.Server
}

// Deps carries everything the server needs. db and redis feed the health
// endpoint only; narrator may be nil when insights are disabled.
type Deps struct {
	Campaigns   *campaign.Service
	Imports     *importer.Service
	Summary     *summary.Service
	RevenueMgr  *revenue.Manager
	Refresher   *refresher.Service
	Performance PerformanceReader
	Renderer    *report.Renderer
	Narrator    *insights.Generator
	ImportCfg   config.ImportConfig
	DB          *sql.DB
	Redis       *redis.Client
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	return &Server{
		cfg:         cfg,
		campaigns:   deps.Campaigns,
		imports:     deps.Imports,
		summary:     deps.Summary,
		revenueMgr:  deps.RevenueMgr,
		refresher:   deps.Refresher,
		performance: deps.Performance,
		renderer:    deps.Renderer,
		narrator:    deps.Narrator,
		importCfg:   deps.ImportCfg,
		db:          deps.DB,
		redis:       deps.Redis,
	}
}

// ListenAndServe starts the HTTP server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
