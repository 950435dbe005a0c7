// Package rowsource supplies raw tabular rows to the import pipeline.
// Every source, whether an uploaded file, a remote URL, an S3 object, a
// spreadsheet workbook, or a warehouse table, resolves to the same parsed
// form so the pipeline never cares where rows came from.
package rowsource

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/adpulse/metrics-engine/internal/tabular"
)

// Source is one fetchable batch of raw rows.
type Source interface {
	// Tag identifies the source in import batches and reports, e.g.
	// "upload:report.csv" or "s3:exports/may.xlsx".
	Tag() string

	Fetch(ctx context.Context) (*tabular.ParseResult, error)
}

// parsePayload routes raw bytes by file name: workbook extensions go
// through the spreadsheet reader, everything else through delimiter
// inference.
func parsePayload(name string, data []byte, maxRows int) (*tabular.ParseResult, error) {
	if isWorkbook(name) {
		return parseWorkbook(data, maxRows)
	}
	return tabular.Parse(string(data), maxRows), nil
}

func isWorkbook(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// BytesSource wraps rows already in memory, typically a multipart upload.
type BytesSource struct {
	Filename string
	Data     []byte
	MaxRows  int
}

func (s *BytesSource) Tag() string { return "upload:" + path.Base(s.Filename) }

func (s *BytesSource) Fetch(ctx context.Context) (*tabular.ParseResult, error) {
	if len(s.Data) == 0 {
		return nil, fmt.Errorf("upload %s is empty", s.Filename)
	}
	return parsePayload(s.Filename, s.Data, s.MaxRows)
}
