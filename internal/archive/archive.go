// Package archive persists import reports outside the relational store.
// Batches in Postgres keep only counters; the full diagnostics document
// (schema discovery, mapping decisions, row problems) lands here and is
// retrievable by batch id for as long as the backend keeps it.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adpulse/metrics-engine/internal/config"
)

// ErrNotFound is returned when no report is archived under a batch id.
var ErrNotFound = errors.New("archived report not found")

// Store archives one JSON document per import batch.
type Store interface {
	SaveReport(ctx context.Context, batchID string, doc interface{}) error
	LoadReport(ctx context.Context, batchID string, target interface{}) error
}

// New picks the backend from configuration: "s3", "dynamodb", or the
// default local directory.
func New(ctx context.Context, cfg config.ArchiveConfig) (Store, error) {
	switch cfg.Type {
	case "s3":
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, err
		}
		return NewS3Store(awsCfg, cfg.S3Bucket), nil
	case "dynamodb":
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, err
		}
		return NewDynamoStore(awsCfg, cfg.DynamoDBTable), nil
	default:
		return NewLocalStore(cfg.LocalPath)
	}
}

// LocalStore writes reports as JSON files under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates the report directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = "./data/archive"
	}
	if err := os.MkdirAll(filepath.Join(root, "reports"), 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) reportPath(batchID string) string {
	// Base strips any path separators an id could smuggle in.
	return filepath.Join(s.root, "reports", filepath.Base(batchID)+".json")
}

func (s *LocalStore) SaveReport(ctx context.Context, batchID string, doc interface{}) error {
	file, err := os.Create(s.reportPath(batchID))
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (s *LocalStore) LoadReport(ctx context.Context, batchID string, target interface{}) error {
	file, err := os.Open(s.reportPath(batchID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(target)
}
