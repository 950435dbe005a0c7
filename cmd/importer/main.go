package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/adpulse/metrics-engine/internal/archive"
	"github.com/adpulse/metrics-engine/internal/config"
	"github.com/adpulse/metrics-engine/internal/pkg/httpretry"
	"github.com/adpulse/metrics-engine/internal/report"
	"github.com/adpulse/metrics-engine/internal/repository/postgres"
	"github.com/adpulse/metrics-engine/internal/rowsource"
	"github.com/adpulse/metrics-engine/internal/service/importer"
)

// CLI entry point for one-off imports: local export files, remote URLs, S3
// drops, or warehouse tables. Dry runs report what the pipeline would do
// without touching the database, which makes them handy for checking an
// unfamiliar export's column mapping.
func main() {
	var (
		file          = flag.String("file", "", "path to a local export file (csv/tsv/xlsx)")
		fetchURL      = flag.String("url", "", "export URL to download")
		s3Key         = flag.String("s3-key", "", "object key in the configured ingest bucket")
		warehouse     = flag.String("warehouse-table", "", "Snowflake table or view holding the export")
		platform      = flag.String("platform", "", "ad platform the export came from (default from config)")
		minConfidence = flag.Float64("min-confidence", 0, "auto-mapper threshold override")
		dryRun        = flag.Bool("dry-run", false, "run the pipeline without persisting anything")
		format        = flag.String("format", "text", "report output: text or json")
		configPath    = flag.String("config", "config/config.yaml", "config file path")
	)
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *platform == "" {
		*platform = cfg.Import.DefaultPlatform
	}
	confidence := cfg.Import.MinConfidence
	if *minConfidence > 0 {
		confidence = *minConfidence
	}

	ctx := context.Background()
	src, err := buildSource(ctx, cfg, *file, *fetchURL, *s3Key, *warehouse)
	if err != nil {
		log.Fatal(err)
	}

	// A dry run needs no database at all.
	var db *sql.DB
	var svc *importer.Service
	if *dryRun {
		svc = importer.NewService(nil, nil, nil, confidence, cfg.Import.MaxRows)
	} else {
		if cfg.Database.URL == "" {
			log.Fatal("database.url is required (or set DATABASE_URL); use -dry-run to skip persistence")
		}
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("database ping failed: %v", err)
		}

		reportStore, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			log.Printf("report archive init failed: %v — continuing without archiving", err)
			reportStore = nil
		}
		svc = importer.NewService(
			postgres.NewImportBatchRepo(db),
			postgres.NewPerformanceRepo(db),
			reportStore,
			confidence,
			cfg.Import.MaxRows,
		)
	}

	batch, rep, runErr := svc.Run(ctx, src, *platform, *dryRun)

	if rep != nil {
		if err := printReport(rep, *format); err != nil {
			log.Printf("render report: %v", err)
		}
	}

	if runErr != nil {
		var mce *importer.MappingConflictError
		if errors.As(runErr, &mce) {
			fmt.Fprintln(os.Stderr, "\nmapping conflict:")
			for _, p := range mce.Problems {
				fmt.Fprintf(os.Stderr, "  - %s\n", p)
			}
			os.Exit(1)
		}
		log.Fatalf("import failed: %v", runErr)
	}

	if *dryRun {
		log.Printf("dry run complete: %d rows would merge to %d canonical rows", batch.RowsAccepted, batch.RowsMerged)
	} else {
		log.Printf("batch %s complete: %d merged rows written", batch.ID, batch.RowsMerged)
	}
}

func buildSource(ctx context.Context, cfg *config.Config, file, fetchURL, s3Key, warehouse string) (rowsource.Source, error) {
	named := 0
	for _, v := range []string{file, fetchURL, s3Key, warehouse} {
		if v != "" {
			named++
		}
	}
	if named != 1 {
		return nil, fmt.Errorf("exactly one of -file, -url, -s3-key, -warehouse-table is required")
	}

	switch {
	case file != "":
		return &rowsource.FileSource{Path: file, MaxRows: cfg.Import.MaxRows}, nil

	case fetchURL != "":
		client := httpretry.NewRetryClient(&http.Client{Timeout: cfg.Ingest.Timeout()}, 3)
		return &rowsource.URLSource{Client: client, URL: fetchURL, MaxRows: cfg.Import.MaxRows}, nil

	case s3Key != "":
		if cfg.Ingest.S3Bucket == "" {
			return nil, fmt.Errorf("-s3-key needs ingest.s3_bucket configured")
		}
		client, err := rowsource.NewS3Client(ctx, cfg.Ingest.S3Region, cfg.Ingest.AWSProfile)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return &rowsource.S3Source{
			Client:  client,
			Bucket:  cfg.Ingest.S3Bucket,
			Key:     s3Key,
			MaxRows: cfg.Import.MaxRows,
		}, nil

	default:
		if !cfg.Snowflake.Enabled {
			return nil, fmt.Errorf("-warehouse-table needs snowflake enabled in config")
		}
		db, err := rowsource.OpenWarehouse(cfg.Snowflake)
		if err != nil {
			return nil, fmt.Errorf("open warehouse: %w", err)
		}
		return &rowsource.WarehouseSource{DB: db, Table: warehouse, MaxRows: cfg.Import.MaxRows}, nil
	}
}

func printReport(rep *report.ImportReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	default:
		text, err := report.NewRenderer().Summary(rep)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}
}
