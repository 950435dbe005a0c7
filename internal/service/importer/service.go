package importer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse/metrics-engine/internal/archive"
	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/fieldmap"
	"github.com/adpulse/metrics-engine/internal/normalize"
	"github.com/adpulse/metrics-engine/internal/report"
	"github.com/adpulse/metrics-engine/internal/rowsource"
	"github.com/adpulse/metrics-engine/internal/tabular"
)

// Service runs the normalization pipeline end to end for one row source
// and records the outcome. Safe for concurrent use; each Run touches only
// its own batch.
type Service struct {
	batches BatchStore
	rows    RowStore

	// reports archives the full diagnostics document per batch. Nil
	// disables archiving; batches still complete.
	reports archive.Store

	minConfidence float64
	maxRows       int

	now func() time.Time
}

// NewService creates an importer service. minConfidence is the auto-mapper
// threshold for required fields (0 means the mapper default); maxRows caps
// rows read per batch (0 means unlimited).
func NewService(batches BatchStore, rows RowStore, reports archive.Store, minConfidence float64, maxRows int) *Service {
	return &Service{
		batches:       batches,
		rows:          rows,
		reports:       reports,
		minConfidence: minConfidence,
		maxRows:       maxRows,
		now:           time.Now,
	}
}

// Run fetches rows from src, pushes them through parse → detect →
// discover → map → transform → merge, and upserts the surviving canonical
// rows. When dryRun is set nothing is persisted and no batch record is
// written; the returned batch and report describe what would have
// happened.
//
// A mapping conflict fails the batch and returns a *MappingConflictError;
// row-level problems never do. The report is returned even for failed
// batches so operators can see how far the pipeline got.
func (s *Service) Run(ctx context.Context, src rowsource.Source, platform string, dryRun bool) (*domain.ImportBatch, *report.ImportReport, error) {
	batch := &domain.ImportBatch{
		ID:        uuid.New().String(),
		SourceTag: src.Tag(),
		Platform:  domain.Platform(normalize.Platform(platform)),
		Status:    domain.ImportReceived,
		StartedAt: s.now().UTC(),
	}
	if !dryRun {
		id, err := s.batches.CreateBatch(ctx, batch)
		if err != nil {
			return nil, nil, fmt.Errorf("create batch: %w", err)
		}
		batch.ID = id
	}

	parsed, err := src.Fetch(ctx)
	if err != nil {
		ferr := fmt.Errorf("fetch rows from %s: %w", src.Tag(), err)
		rep := s.finishFailed(ctx, batch, nil, ferr.Error(), dryRun)
		return batch, rep, ferr
	}
	if s.maxRows > 0 && len(parsed.Rows) > s.maxRows {
		parsed.Rows = parsed.Rows[:s.maxRows]
		parsed.Warnings = append(parsed.Warnings,
			fmt.Sprintf("row cap reached: kept first %d rows", s.maxRows))
	}
	batch.RowsIn = len(parsed.Rows)

	cols := tabular.DetectColumns(parsed.Headers, parsed.Rows)
	schema := tabular.DiscoverSchema(parsed.Headers, parsed.Rows, cols)

	fields := fieldmap.FieldsForPlatform(string(batch.Platform))
	mappings := fieldmap.AutoMap(cols, fields, s.minConfidence)
	if problems := fieldmap.Validate(mappings, fields); len(problems) > 0 {
		mce := &MappingConflictError{Problems: problems}
		rep := s.finishFailed(ctx, batch, &pipelineState{
			parsed: parsed, cols: cols, schema: schema, mappings: mappings,
		}, mce.Error(), dryRun)
		return batch, rep, mce
	}
	batch.Status = domain.ImportMapped
	s.checkpoint(ctx, batch, dryRun)

	res := normalize.Transform(parsed.Rows, mappings, fields, string(batch.Platform))
	batch.Status = domain.ImportTransformed
	batch.RowsAccepted = res.Accepted
	batch.RowsRejected = res.Rejected
	batch.ErrorCount = len(res.Errors)
	s.checkpoint(ctx, batch, dryRun)

	canonical := make([]domain.CanonicalRow, 0, len(res.Rows))
	for _, row := range res.Rows {
		canonical = append(canonical, normalize.ToCanonicalRow(row, batch.SourceTag))
	}
	merged := normalize.MergeCanonicalRows(canonical)
	batch.RowsMerged = len(merged)

	if !dryRun {
		if err := s.rows.UpsertRows(ctx, merged); err != nil {
			uerr := fmt.Errorf("persist %d rows: %w", len(merged), err)
			rep := s.finishFailed(ctx, batch, &pipelineState{
				parsed: parsed, cols: cols, schema: schema,
				mappings: mappings, transform: res,
			}, uerr.Error(), dryRun)
			return batch, rep, uerr
		}
	}

	warnings := append(append([]string{}, parsed.Warnings...), res.Warnings...)
	batch.WarningCount = len(warnings)
	batch.Status = domain.ImportCompleted
	done := s.now().UTC()
	batch.CompletedAt = &done
	s.checkpoint(ctx, batch, dryRun)

	rep := buildReport(batch, &pipelineState{
		parsed: parsed, cols: cols, schema: schema,
		mappings: mappings, transform: res, warnings: warnings,
	})
	s.archiveReport(ctx, rep, dryRun)

	log.Printf("[importer] batch %s (%s): %d in, %d accepted, %d rejected, %d merged",
		batch.ID, batch.SourceTag, batch.RowsIn, batch.RowsAccepted, batch.RowsRejected, batch.RowsMerged)
	return batch, rep, nil
}

// Batch returns one batch record.
func (s *Service) Batch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	return s.batches.GetBatch(ctx, id)
}

// Batches returns recent batches, newest first.
func (s *Service) Batches(ctx context.Context, limit int) ([]domain.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.batches.ListBatches(ctx, limit)
}

// Report loads the archived diagnostics document for a batch. Returns
// ErrNotFound when the batch was never archived (dry runs, archive
// disabled, or archive write failed).
func (s *Service) Report(ctx context.Context, batchID string) (*report.ImportReport, error) {
	if s.reports == nil {
		return nil, ErrNotFound
	}
	var rep report.ImportReport
	if err := s.reports.LoadReport(ctx, batchID, &rep); err != nil {
		if err == archive.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load report %s: %w", batchID, err)
	}
	return &rep, nil
}

// pipelineState carries whatever intermediate outputs exist when a report
// is built; later stages are nil for batches that failed early.
type pipelineState struct {
	parsed    *tabular.ParseResult
	cols      []tabular.DetectedColumn
	schema    *tabular.DatasetSchema
	mappings  []fieldmap.FieldMapping
	transform *normalize.TransformResult
	warnings  []string
}

func buildReport(batch *domain.ImportBatch, st *pipelineState) *report.ImportReport {
	rep := &report.ImportReport{
		BatchID:      batch.ID,
		SourceTag:    batch.SourceTag,
		Platform:     string(batch.Platform),
		Status:       string(batch.Status),
		GeneratedAt:  time.Now().UTC(),
		RowsIn:       batch.RowsIn,
		RowsAccepted: batch.RowsAccepted,
		RowsRejected: batch.RowsRejected,
		RowsMerged:   batch.RowsMerged,
		FailReason:   batch.FailReason,
	}
	if st == nil {
		return rep
	}
	rep.Schema = st.schema
	rep.Columns = st.cols
	rep.Mappings = st.mappings
	rep.MeanMappingConfidence = meanConfidence(st.mappings)
	if st.transform != nil {
		rep.RowErrors = st.transform.Errors
	}
	rep.Warnings = st.warnings
	if rep.Warnings == nil && st.parsed != nil {
		rep.Warnings = st.parsed.Warnings
	}
	return rep
}

func meanConfidence(mappings []fieldmap.FieldMapping) float64 {
	if len(mappings) == 0 {
		return 0
	}
	var sum float64
	for _, m := range mappings {
		sum += m.Confidence
	}
	return sum / float64(len(mappings))
}

// checkpoint writes the batch's current state back. Checkpoint failures
// are logged, not returned: the pipeline outcome matters more than the
// audit trail keeping pace.
func (s *Service) checkpoint(ctx context.Context, batch *domain.ImportBatch, dryRun bool) {
	if dryRun {
		return
	}
	if err := s.batches.UpdateBatch(ctx, batch); err != nil {
		log.Printf("[importer] checkpoint batch %s at %s: %v", batch.ID, batch.Status, err)
	}
}

func (s *Service) finishFailed(ctx context.Context, batch *domain.ImportBatch, st *pipelineState, reason string, dryRun bool) *report.ImportReport {
	batch.Status = domain.ImportFailed
	batch.FailReason = reason
	done := s.now().UTC()
	batch.CompletedAt = &done
	s.checkpoint(ctx, batch, dryRun)

	rep := buildReport(batch, st)
	s.archiveReport(ctx, rep, dryRun)
	return rep
}

func (s *Service) archiveReport(ctx context.Context, rep *report.ImportReport, dryRun bool) {
	if dryRun || s.reports == nil {
		return
	}
	if err := s.reports.SaveReport(ctx, rep.BatchID, rep); err != nil {
		log.Printf("[importer] archive report %s: %v", rep.BatchID, err)
	}
}
