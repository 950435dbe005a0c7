package rowsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adpulse/metrics-engine/internal/tabular"
)

// FileSource reads a local export file. Used by the CLI importer.
type FileSource struct {
	Path    string
	MaxRows int
}

func (s *FileSource) Tag() string { return "file:" + filepath.Base(s.Path) }

func (s *FileSource) Fetch(ctx context.Context) (*tabular.ParseResult, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return parsePayload(s.Path, data, s.MaxRows)
}
