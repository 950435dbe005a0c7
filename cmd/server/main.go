package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/adpulse/metrics-engine/internal/api"
	"github.com/adpulse/metrics-engine/internal/archive"
	"github.com/adpulse/metrics-engine/internal/config"
	"github.com/adpulse/metrics-engine/internal/insights"
	"github.com/adpulse/metrics-engine/internal/pkg/logger"
	"github.com/adpulse/metrics-engine/internal/report"
	"github.com/adpulse/metrics-engine/internal/repository/postgres"
	"github.com/adpulse/metrics-engine/internal/revenue"
	"github.com/adpulse/metrics-engine/internal/service/campaign"
	"github.com/adpulse/metrics-engine/internal/service/importer"
	"github.com/adpulse/metrics-engine/internal/service/refresher"
	"github.com/adpulse/metrics-engine/internal/service/summary"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale/stub processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  AdPulse Metrics Engine (cmd/server/main.go)               ║")
	log.Println("║  Schema-agnostic import pipeline + revenue attribution     ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
	if cfg.Database.URL == "" {
		log.Fatal("database.url is required (or set DATABASE_URL)")
	}
	dbURL := cfg.Database.URL
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	if !strings.Contains(dbURL, "connect_timeout") {
		dbURL += sep + "connect_timeout=5"
	}
	log.Printf("Database URL: %s", logger.RedactURL(dbURL))

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Printf("Warning: database ping failed: %v — starting anyway, health endpoint will report it", err)
	} else {
		log.Println("Database connected successfully")
	}
	pingCancel()

	// Redis (optional): revenue-context cache and distributed locks. Without
	// it locks fall back to PG advisory locks and the cache is a no-op.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v — falling back to PG advisory locks", cfg.Redis.Addr, err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Printf("Redis connected: %s (context cache + distributed locking enabled)", cfg.Redis.Addr)
		}
		pingCancel()
	} else {
		log.Println("Redis not configured — using PG advisory locks, no context cache")
	}

	// Repositories
	campaignRepo := postgres.NewCampaignRepo(db)
	batchRepo := postgres.NewImportBatchRepo(db)
	perfRepo := postgres.NewPerformanceRepo(db)
	revenueRepo := postgres.NewRevenueRepo(db)

	// Report archive: local disk, S3, or DynamoDB per config.
	reportStore, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		log.Printf("Warning: report archive init failed: %v — batches will complete without archived reports", err)
		reportStore = nil
	} else {
		log.Printf("Report archive initialized (type: %s)", cfg.Archive.Type)
	}

	// Bedrock narrative generator (optional)
	var narrator *insights.Generator
	if cfg.Insights.Enabled {
		narrator, err = insights.New(ctx, cfg.Insights)
		if err != nil {
			log.Printf("Warning: insights generator init failed: %v", err)
			narrator = nil
		} else {
			log.Printf("Insights generator initialized (model: %s)", cfg.Insights.ModelID)
		}
	} else {
		log.Println("Insights generator not configured (disabled)")
	}

	// Services
	cache := revenue.NewCache(redisClient)
	resolver := revenue.NewResolver(campaignRepo, campaignRepo, revenueRepo, revenueRepo)

	deps := api.Deps{
		Campaigns:   campaign.NewService(campaignRepo),
		Imports:     importer.NewService(batchRepo, perfRepo, reportStore, cfg.Import.MinConfidence, cfg.Import.MaxRows),
		Summary:     summary.NewService(perfRepo),
		RevenueMgr:  revenue.NewManager(revenueRepo, revenueRepo, cache),
		Refresher:   refresher.NewService(campaignRepo, perfRepo, resolver, cache, redisClient, db, cfg.Worker.LockTTL()),
		Performance: perfRepo,
		Renderer:    report.NewRenderer(),
		Narrator:    narrator,
		ImportCfg:   cfg.Import,
		DB:          db,
		Redis:       redisClient,
	}
	server := api.NewServer(cfg.Server, deps)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	log.Println("Server stopped")
}
