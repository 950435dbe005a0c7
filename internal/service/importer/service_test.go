package importer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/metrics-engine/internal/archive"
	"github.com/adpulse/metrics-engine/internal/domain"
	"github.com/adpulse/metrics-engine/internal/rowsource"
	"github.com/adpulse/metrics-engine/internal/service/importer"
	"github.com/adpulse/metrics-engine/internal/tabular"
)

// memBatchStore is an in-memory batch store for unit testing.
type memBatchStore struct {
	mu      sync.Mutex
	batches map[string]*domain.ImportBatch
	order   []string
}

func newMemBatchStore() *memBatchStore {
	return &memBatchStore{batches: make(map[string]*domain.ImportBatch)}
}

func (m *memBatchStore) CreateBatch(_ context.Context, b *domain.ImportBatch) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.batches[cp.ID] = &cp
	m.order = append(m.order, cp.ID)
	return cp.ID, nil
}

func (m *memBatchStore) GetBatch(_ context.Context, id string) (*domain.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, importer.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBatchStore) ListBatches(_ context.Context, limit int) ([]domain.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ImportBatch
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *m.batches[m.order[i]])
	}
	return out, nil
}

func (m *memBatchStore) UpdateBatch(_ context.Context, b *domain.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[b.ID]; !ok {
		return importer.ErrNotFound
	}
	cp := *b
	m.batches[cp.ID] = &cp
	return nil
}

func (m *memBatchStore) NextPending(_ context.Context) (*domain.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		b := m.batches[id]
		if b.Status == domain.ImportReceived {
			b.Status = domain.ImportMapped
			cp := *b
			return &cp, nil
		}
	}
	return nil, importer.ErrNoPending
}

// memRowStore records upserted canonical rows, keyed by merge identity.
type memRowStore struct {
	mu   sync.Mutex
	rows map[string]domain.CanonicalRow
	err  error
}

func newMemRowStore() *memRowStore {
	return &memRowStore{rows: make(map[string]domain.CanonicalRow)}
}

func (m *memRowStore) UpsertRows(_ context.Context, rows []domain.CanonicalRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, r := range rows {
		m.rows[r.MergeKey()] = r
	}
	return nil
}

// failSource always fails its fetch.
type failSource struct{}

func (failSource) Tag() string { return "test:boom" }
func (failSource) Fetch(context.Context) (*tabular.ParseResult, error) {
	return nil, errors.New("connection reset")
}

const goodCSV = `Campaign Name,Date,Amount Spent,Impressions,Clicks
Summer Sale,2024-05-01,"$120.50","10,000",400
Summer Sale,2024-05-01,$80.00,5000,100
Brand Push,2024-05-02,$45.25,2000,80
`

func newTestService(t *testing.T) (*importer.Service, *memBatchStore, *memRowStore) {
	t.Helper()
	store, err := archive.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	batches := newMemBatchStore()
	rows := newMemRowStore()
	return importer.NewService(batches, rows, store, 0.6, 0), batches, rows
}

func TestRunCompletesBatch(t *testing.T) {
	svc, batches, rows := newTestService(t)
	src := &rowsource.BytesSource{Filename: "report.csv", Data: []byte(goodCSV)}

	batch, rep, err := svc.Run(context.Background(), src, "linkedin", false)
	require.NoError(t, err)

	assert.Equal(t, domain.ImportCompleted, batch.Status)
	assert.Equal(t, 3, batch.RowsIn)
	assert.Equal(t, 3, batch.RowsAccepted)
	assert.Equal(t, 0, batch.RowsRejected)
	// Two Summer Sale rows on 2024-05-01 collapse to one.
	assert.Equal(t, 2, batch.RowsMerged)
	require.NotNil(t, batch.CompletedAt)

	// The merged row sums spend and recomputes CPC from the sums.
	merged, ok := rows.rows["Summer Sale|linkedin|2024-05-01"]
	require.True(t, ok)
	require.NotNil(t, merged.Spend)
	assert.InDelta(t, 200.50, *merged.Spend, 0.001)
	require.NotNil(t, merged.Clicks)
	assert.InDelta(t, 500, *merged.Clicks, 0.001)
	require.NotNil(t, merged.CPC)
	assert.InDelta(t, 0.401, *merged.CPC, 0.001)

	// The batch record reached the store and the report was archived.
	stored, err := batches.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportCompleted, stored.Status)

	loaded, err := svc.Report(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.BatchID, loaded.BatchID)
	assert.Len(t, loaded.Mappings, 5)
	assert.Greater(t, loaded.MeanMappingConfidence, 0.6)
}

func TestRunMappingConflictFailsBatch(t *testing.T) {
	svc, batches, rows := newTestService(t)
	// No spend column anywhere: the required field cannot map.
	csv := "Campaign Name,Date,Impressions\nSummer Sale,2024-05-01,1000\n"
	src := &rowsource.BytesSource{Filename: "broken.csv", Data: []byte(csv)}

	batch, rep, err := svc.Run(context.Background(), src, "linkedin", false)
	require.Error(t, err)
	assert.True(t, importer.IsMappingConflict(err))

	assert.Equal(t, domain.ImportFailed, batch.Status)
	assert.Contains(t, batch.FailReason, "Spend")
	assert.Empty(t, rows.rows)

	// The report still records how far the pipeline got.
	require.NotNil(t, rep)
	assert.NotEmpty(t, rep.Columns)
	assert.Equal(t, string(domain.ImportFailed), rep.Status)

	stored, err := batches.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportFailed, stored.Status)
}

func TestRunDryRunPersistsNothing(t *testing.T) {
	svc, batches, rows := newTestService(t)
	src := &rowsource.BytesSource{Filename: "report.csv", Data: []byte(goodCSV)}

	batch, rep, err := svc.Run(context.Background(), src, "linkedin", true)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportCompleted, batch.Status)
	assert.Equal(t, 2, batch.RowsMerged)
	require.NotNil(t, rep)

	assert.Empty(t, rows.rows)
	assert.Empty(t, batches.batches)
	_, err = svc.Report(context.Background(), batch.ID)
	assert.ErrorIs(t, err, importer.ErrNotFound)
}

func TestRunFetchFailure(t *testing.T) {
	svc, batches, _ := newTestService(t)

	batch, _, err := svc.Run(context.Background(), failSource{}, "linkedin", false)
	require.Error(t, err)
	assert.False(t, importer.IsMappingConflict(err))
	assert.Equal(t, domain.ImportFailed, batch.Status)
	assert.Contains(t, batch.FailReason, "connection reset")

	stored, err := batches.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportFailed, stored.Status)
}

func TestRunRejectsRowsMissingRequiredFields(t *testing.T) {
	svc, _, rows := newTestService(t)
	csv := "Campaign Name,Date,Amount Spent\nSummer Sale,2024-05-01,$10.00\n,2024-05-02,$20.00\n"
	src := &rowsource.BytesSource{Filename: "report.csv", Data: []byte(csv)}

	batch, rep, err := svc.Run(context.Background(), src, "linkedin", false)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportCompleted, batch.Status)
	assert.Equal(t, 1, batch.RowsAccepted)
	assert.Equal(t, 1, batch.RowsRejected)
	assert.Len(t, rows.rows, 1)
	assert.NotEmpty(t, rep.RowErrors)
}

func TestRunPersistFailure(t *testing.T) {
	svc, _, rows := newTestService(t)
	rows.err = fmt.Errorf("deadlock detected")
	src := &rowsource.BytesSource{Filename: "report.csv", Data: []byte(goodCSV)}

	batch, _, err := svc.Run(context.Background(), src, "linkedin", false)
	require.Error(t, err)
	assert.Equal(t, domain.ImportFailed, batch.Status)
	assert.Contains(t, batch.FailReason, "deadlock")
}

func TestBatchesNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	for i := 0; i < 3; i++ {
		src := &rowsource.BytesSource{Filename: fmt.Sprintf("r%d.csv", i), Data: []byte(goodCSV)}
		_, _, err := svc.Run(context.Background(), src, "linkedin", false)
		require.NoError(t, err)
	}
	list, err := svc.Batches(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "upload:r2.csv", list[0].SourceTag)
}
