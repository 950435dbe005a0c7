package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/metrics-engine/internal/config"
)

type testDoc struct {
	BatchID  string   `json:"batch_id"`
	Warnings []string `json:"warnings"`
}

func newTestStore(t *testing.T) *LocalStore {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNewDefaultsToLocal(t *testing.T) {
	tmpDir := t.TempDir()
	s, err := New(context.Background(), config.ArchiveConfig{Type: "local", LocalPath: tmpDir})
	require.NoError(t, err)
	require.NotNil(t, s)

	// The reports directory exists up front.
	_, err = os.Stat(filepath.Join(tmpDir, "reports"))
	assert.NoError(t, err)
}

func TestSaveAndLoadReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := testDoc{BatchID: "batch-1", Warnings: []string{"delimiter assumed comma"}}
	require.NoError(t, s.SaveReport(ctx, "batch-1", doc))

	var got testDoc
	require.NoError(t, s.LoadReport(ctx, "batch-1", &got))
	assert.Equal(t, doc, got)
}

func TestLoadReportNotFound(t *testing.T) {
	s := newTestStore(t)

	var got testDoc
	err := s.LoadReport(context.Background(), "missing", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportPathStripsSeparators(t *testing.T) {
	s := newTestStore(t)

	p := s.reportPath("../../etc/passwd")
	assert.Equal(t, filepath.Join(s.root, "reports", "passwd.json"), p)
}
