package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/adpulse/metrics-engine/internal/archive"
	"github.com/adpulse/metrics-engine/internal/config"
	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/pkg/distlock"
	"github.com/adpulse/metrics-engine/internal/pkg/httpretry"
	"github.com/adpulse/metrics-engine/internal/repository/postgres"
	"github.com/adpulse/metrics-engine/internal/revenue"
	"github.com/adpulse/metrics-engine/internal/rowsource"
	"github.com/adpulse/metrics-engine/internal/service/importer"
	"github.com/adpulse/metrics-engine/internal/service/refresher"
)

// The worker owns the periodic jobs the API must not block on: the
// revenue-context sweep over active campaigns, the S3 ingest poll for
// scheduled platform exports, and reclaiming batches orphaned by a
// crashed import.
func main() {
	log.Println("[worker] AdPulse background worker starting")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database.url is required (or set DATABASE_URL)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("[worker] Redis unavailable (%s): %v — using PG advisory locks", cfg.Redis.Addr, err)
			redisClient.Close()
			redisClient = nil
		}
	}

	campaignRepo := postgres.NewCampaignRepo(db)
	batchRepo := postgres.NewImportBatchRepo(db)
	perfRepo := postgres.NewPerformanceRepo(db)
	revenueRepo := postgres.NewRevenueRepo(db)

	reportStore, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		log.Printf("[worker] report archive init failed: %v — importing without archived reports", err)
		reportStore = nil
	}

	imports := importer.NewService(batchRepo, perfRepo, reportStore, cfg.Import.MinConfidence, cfg.Import.MaxRows)
	cache := revenue.NewCache(redisClient)
	resolver := revenue.NewResolver(campaignRepo, campaignRepo, revenueRepo, revenueRepo)
	sweep := refresher.NewService(campaignRepo, perfRepo, resolver, cache, redisClient, db, cfg.Worker.LockTTL())

	retryClient := httpretry.NewRetryClient(&http.Client{Timeout: cfg.Ingest.Timeout()}, 3)
	runner := &importRunner{
		imports: imports,
		redis:   redisClient,
		db:      db,
		lockTTL: cfg.Worker.LockTTL(),
	}

	var poller *s3Poller
	if cfg.Ingest.S3Bucket != "" {
		s3Client, err := rowsource.NewS3Client(ctx, cfg.Ingest.S3Region, cfg.Ingest.AWSProfile)
		if err != nil {
			log.Printf("[worker] S3 client init failed: %v — ingest poll disabled", err)
		} else {
			poller = newS3Poller(s3Client, cfg.Ingest.S3Bucket, runner, cfg.Import)
			poller.seedSeen(ctx, batchRepo)
			log.Printf("[worker] S3 ingest poll enabled (bucket: %s)", cfg.Ingest.S3Bucket)
		}
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	interval := cfg.Worker.Interval()
	log.Printf("[worker] sweep interval %s, lock TTL %s", interval, cfg.Worker.LockTTL())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		if err := sweep.RefreshAll(ctx); err != nil {
			log.Printf("[worker] revenue sweep: %v", err)
		}
		if poller != nil {
			poller.poll(ctx)
		}
		reclaimOrphans(ctx, batchRepo, runner, poller, retryClient, cfg)
	}
	runOnce()

	for {
		select {
		case <-done:
			log.Println("[worker] shutting down")
			cancel()
			if redisClient != nil {
				redisClient.Close()
			}
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// importRunner serializes worker-initiated imports across hosts: two
// workers polling the same bucket, or a reclaim sweep racing a poll, must
// not run the same export twice.
type importRunner struct {
	imports *importer.Service
	redis   *redis.Client
	db      *sql.DB
	lockTTL time.Duration
}

// run imports one source under the per-source lock. The second return is
// false when the source is locked elsewhere, so callers can retry on a
// later tick instead of treating the source as handled.
func (r *importRunner) run(ctx context.Context, src rowsource.Source, platform string) (*domain.ImportBatch, bool) {
	lock := distlock.NewLock(r.redis, r.db, distlock.ImportKey(platform, src.Tag()), r.lockTTL)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		log.Printf("[worker] acquire import lock for %s: %v", src.Tag(), err)
		return nil, false
	}
	if !ok {
		log.Printf("[worker] %s is being imported elsewhere, skipping", src.Tag())
		return nil, false
	}
	defer func() {
		if rerr := lock.Release(ctx); rerr != nil && !errors.Is(rerr, distlock.ErrNotHeld) {
			log.Printf("[worker] release import lock for %s: %v", src.Tag(), rerr)
		}
	}()

	batch, _, err := r.imports.Run(ctx, src, platform, false)
	if err != nil {
		log.Printf("[worker] import %s: %v", src.Tag(), err)
	}
	return batch, true
}

// reclaimOrphans drains batches stuck in received status, left behind when
// a worker died between creating the batch and finishing the pipeline.
// Re-fetchable sources (s3:, url:) are retried as a fresh batch; upload
// bodies are gone and their batches just get failed.
func reclaimOrphans(ctx context.Context, batches *postgres.ImportBatchRepo, runner *importRunner, poller *s3Poller, retryClient *httpretry.RetryClient, cfg *config.Config) {
	for {
		orphan, err := batches.NextPending(ctx)
		if err != nil {
			if !errors.Is(err, importer.ErrNoPending) {
				log.Printf("[worker] claim pending batch: %v", err)
			}
			return
		}

		src := rebuildSource(orphan.SourceTag, poller, retryClient, cfg)
		orphan.Status = domain.ImportFailed
		if src != nil {
			orphan.FailReason = "orphaned batch, retried as a new batch"
		} else {
			orphan.FailReason = "orphaned batch, source not re-fetchable"
		}
		now := time.Now().UTC()
		orphan.CompletedAt = &now
		if err := batches.UpdateBatch(ctx, orphan); err != nil {
			log.Printf("[worker] fail orphan %s: %v", orphan.ID, err)
		}
		if src == nil {
			log.Printf("[worker] orphan %s (%s) dropped", orphan.ID, orphan.SourceTag)
			continue
		}

		log.Printf("[worker] retrying orphan %s (%s)", orphan.ID, orphan.SourceTag)
		runner.run(ctx, src, string(orphan.Platform))
	}
}

// rebuildSource reconstructs a row source from a batch's source tag.
// Returns nil for tags whose payload cannot be fetched again.
func rebuildSource(tag string, poller *s3Poller, retryClient *httpretry.RetryClient, cfg *config.Config) rowsource.Source {
	switch {
	case strings.HasPrefix(tag, "s3:") && poller != nil:
		rest := strings.TrimPrefix(tag, "s3:")
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return nil
		}
		return &rowsource.S3Source{
			Client:  poller.client,
			Bucket:  rest[:slash],
			Key:     rest[slash+1:],
			MaxRows: cfg.Import.MaxRows,
		}
	case strings.HasPrefix(tag, "url:"):
		return &rowsource.URLSource{
			Client:  retryClient,
			URL:     strings.TrimPrefix(tag, "url:"),
			MaxRows: cfg.Import.MaxRows,
		}
	default:
		return nil
	}
}

// s3Poller imports new objects dropped into the ingest bucket. Platform is
// taken from the object's top-level prefix (linkedin/export.csv) when it
// names a known platform.
type s3Poller struct {
	client *s3.Client
	bucket string
	runner *importRunner
	cfg    config.ImportConfig

	seen map[string]bool
}

func newS3Poller(client *s3.Client, bucket string, runner *importRunner, cfg config.ImportConfig) *s3Poller {
	return &s3Poller{
		client: client,
		bucket: bucket,
		runner: runner,
		cfg:    cfg,
		seen:   make(map[string]bool),
	}
}

// seedSeen marks objects already imported in earlier runs so a worker
// restart does not re-import the whole bucket.
func (p *s3Poller) seedSeen(ctx context.Context, batches *postgres.ImportBatchRepo) {
	recent, err := batches.ListBatches(ctx, 500)
	if err != nil {
		log.Printf("[worker] seed seen set: %v", err)
		return
	}
	prefix := "s3:" + p.bucket + "/"
	for _, b := range recent {
		if strings.HasPrefix(b.SourceTag, prefix) {
			p.seen[strings.TrimPrefix(b.SourceTag, prefix)] = true
		}
	}
	log.Printf("[worker] seeded %d already-imported keys", len(p.seen))
}

func (p *s3Poller) poll(ctx context.Context) {
	var token *string
	for {
		out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(p.bucket),
			ContinuationToken: token,
		})
		if err != nil {
			log.Printf("[worker] list ingest bucket: %v", err)
			return
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if p.seen[key] || strings.HasSuffix(key, "/") {
				continue
			}
			if p.importKey(ctx, key) {
				p.seen[key] = true
			}
		}
		if out.NextContinuationToken == nil {
			return
		}
		token = out.NextContinuationToken
	}
}

// importKey imports one bucket object. Returns false when the object was
// locked by another worker, so the next poll tick tries it again.
func (p *s3Poller) importKey(ctx context.Context, key string) bool {
	platform := p.cfg.DefaultPlatform
	if slash := strings.Index(key, "/"); slash > 0 {
		if domain.Platform(key[:slash]).IsKnown() {
			platform = key[:slash]
		}
	}
	src := &rowsource.S3Source{
		Client:  p.client,
		Bucket:  p.bucket,
		Key:     key,
		MaxRows: p.cfg.MaxRows,
	}
	batch, ran := p.runner.run(ctx, src, platform)
	if !ran {
		return false
	}
	if batch != nil && batch.Status == domain.ImportCompleted {
		log.Printf("[worker] imported %s as batch %s (%d merged rows)", key, batch.ID, batch.RowsMerged)
	}
	return true
}
