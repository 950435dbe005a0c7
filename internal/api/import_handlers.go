package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/adpulse/metrics-engine/internal/fieldmap"
	"github.com/adpulse/metrics-engine/internal/insights"
	"github.com/adpulse/metrics-engine/internal/pkg/httputil"
	"github.com/adpulse/metrics-engine/internal/report"
	"github.com/adpulse/metrics-engine/internal/rowsource"
	"github.com/adpulse/metrics-engine/internal/service/importer"
	"github.com/adpulse/metrics-engine/internal/tabular"
)

// maxUploadBytes caps import uploads. Ad platform exports are a few MB;
// anything larger belongs on S3.
const maxUploadBytes = 64 << 20

// POST /api/imports
//
// Accepts either a JSON body {text, filename, platform, dry_run} or a
// multipart form with a "file" part and "platform"/"dry_run" fields. Runs
// the pipeline synchronously and returns the batch with its report.
func (s *Server) handleRunImport(w http.ResponseWriter, r *http.Request) {
	src, platform, dryRun, ok := s.importRequest(w, r)
	if !ok {
		return
	}
	if platform == "" {
		platform = s.importCfg.DefaultPlatform
	}

	batch, rep, err := s.imports.Run(r.Context(), src, platform, dryRun)
	if err != nil {
		var mce *importer.MappingConflictError
		if errors.As(err, &mce) {
			httputil.ErrorWithDetails(w, http.StatusConflict,
				"column mapping cannot satisfy required fields", "mapping_conflict",
				map[string]any{"problems": mce.Problems, "batch": batch, "report": rep})
			return
		}
		httputil.ErrorWithDetails(w, http.StatusBadGateway,
			err.Error(), "import_failed", map[string]any{"batch": batch})
		return
	}
	httputil.Created(w, map[string]any{"batch": batch, "report": rep})
}

func (s *Server) importRequest(w http.ResponseWriter, r *http.Request) (rowsource.Source, string, bool, bool) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			httputil.BadRequest(w, "invalid multipart form: "+err.Error())
			return nil, "", false, false
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.BadRequest(w, `multipart form needs a "file" part`)
			return nil, "", false, false
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			httputil.InternalError(w, fmt.Errorf("read upload: %w", err))
			return nil, "", false, false
		}
		src := &rowsource.BytesSource{
			Filename: header.Filename,
			Data:     data,
			MaxRows:  s.importCfg.MaxRows,
		}
		return src, r.FormValue("platform"), r.FormValue("dry_run") == "true", true
	}

	var input struct {
		Text     string `json:"text"`
		Filename string `json:"filename"`
		Platform string `json:"platform"`
		DryRun   bool   `json:"dry_run"`
	}
	if !httputil.Decode(w, r, &input) {
		return nil, "", false, false
	}
	if strings.TrimSpace(input.Text) == "" {
		httputil.BadRequest(w, "text is required")
		return nil, "", false, false
	}
	if input.Filename == "" {
		input.Filename = "inline.csv"
	}
	src := &rowsource.BytesSource{
		Filename: input.Filename,
		Data:     []byte(input.Text),
		MaxRows:  s.importCfg.MaxRows,
	}
	return src, input.Platform, input.DryRun, true
}

// GET /api/imports
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	batches, err := s.imports.Batches(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"batches": batches})
}

// GET /api/imports/{id}
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	batch, err := s.imports.Batch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, importer.ErrNotFound) {
			httputil.NotFound(w, "import batch not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, batch)
}

// GET /api/imports/{id}/report?format=json|text&narrative=true
func (s *Server) handleImportReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.imports.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, importer.ErrNotFound) {
			httputil.NotFound(w, "no archived report for that batch")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		text, err := s.renderer.Summary(rep)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, text)
		return
	}

	out := map[string]any{"report": rep}
	if r.URL.Query().Get("narrative") == "true" && s.narrator != nil && s.narrator.Enabled() {
		if n, err := s.narrator.Narrative(r.Context(), narrativeInput(rep)); err == nil {
			out["narrative"] = n
		}
	}
	httputil.OK(w, out)
}

func narrativeInput(rep *report.ImportReport) insights.NarrativeInput {
	lines := []string{
		fmt.Sprintf("rows in: %d", rep.RowsIn),
		fmt.Sprintf("rows accepted: %d", rep.RowsAccepted),
		fmt.Sprintf("rows rejected: %d", rep.RowsRejected),
		fmt.Sprintf("mapping confidence: %.0f%%", rep.MeanMappingConfidence*100),
	}
	if rep.Schema != nil {
		lines = append(lines, fmt.Sprintf("completeness: %.0f%%", rep.Schema.Completeness*100))
	}
	return insights.NarrativeInput{
		CampaignName: rep.SourceTag,
		Platform:     rep.Platform,
		MetricLines:  lines,
	}
}

// POST /api/mappings/preview
//
// Runs parse → detect → discover → map over inline text without touching
// storage, so the UI can show suggested mappings before a real import.
func (s *Server) handleMappingPreview(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text          string  `json:"text"`
		Platform      string  `json:"platform"`
		MinConfidence float64 `json:"min_confidence"`
	}
	if !httputil.Decode(w, r, &input) {
		return
	}
	if strings.TrimSpace(input.Text) == "" {
		httputil.BadRequest(w, "text is required")
		return
	}
	if input.Platform == "" {
		input.Platform = s.importCfg.DefaultPlatform
	}
	minConfidence := input.MinConfidence
	if minConfidence <= 0 {
		minConfidence = s.importCfg.MinConfidence
	}

	parsed := tabular.Parse(input.Text, s.importCfg.MaxRows)
	cols := tabular.DetectColumns(parsed.Headers, parsed.Rows)
	schema := tabular.DiscoverSchema(parsed.Headers, parsed.Rows, cols)
	fields := fieldmap.FieldsForPlatform(input.Platform)
	mappings := fieldmap.AutoMap(cols, fields, minConfidence)
	problems := fieldmap.Validate(mappings, fields)

	httputil.OK(w, map[string]any{
		"headers":  parsed.Headers,
		"columns":  cols,
		"schema":   schema,
		"mappings": mappings,
		"problems": problems,
		"warnings": parsed.Warnings,
	})
}
