// Package tabular turns raw delimited text into typed, analyzable tables.
// It owns delimiter inference, column type detection, and dataset schema
// discovery; it never modifies the data it inspects.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// candidate delimiters, in tie-break order
var delimiters = []rune{',', ';', '\t', '|'}

// ParseResult is the outcome of parsing one raw export.
type ParseResult struct {
	Headers   []string            `json:"headers"`
	Rows      []map[string]string `json:"rows"`
	Delimiter rune                `json:"-"`
	// Warnings collects parse ambiguities. They are advisory; parsing
	// always completes with a best guess.
	Warnings []string `json:"warnings,omitempty"`
}

// Parse splits raw text into a header row and string-keyed data rows,
// inferring the delimiter. maxRows caps the number of data rows when > 0.
// Blank rows are dropped and blank header cells are synthesized as
// "Column N". Parse never fails; ambiguity is reported through Warnings.
func Parse(text string, maxRows int) *ParseResult {
	res := &ParseResult{}

	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if strings.TrimSpace(text) == "" {
		res.Delimiter = ','
		return res
	}

	delim, ambiguous := detectDelimiter(text)
	res.Delimiter = delim
	if ambiguous {
		res.Warnings = append(res.Warnings, "delimiter could not be determined with confidence, assuming comma")
	}

	headers, records, warns := readRecords(text, delim, maxRows)
	res.Warnings = append(res.Warnings, warns...)

	// A single surviving column usually means the real delimiter is hiding
	// inside the cells (exports wrapped by a second tool) or quoting defeated
	// the reader.
	if len(headers) == 1 {
		if h2, r2, d2, ok := splitEmbedded(headers, records); ok {
			headers, records = h2, r2
			res.Delimiter = d2
			res.Warnings = append(res.Warnings, fmt.Sprintf("single column input re-split on embedded %q", string(d2)))
		} else if strings.ContainsRune(headers[0], delim) {
			headers, records = naiveSplit(headers[0], records, delim)
			res.Warnings = append(res.Warnings, "single column input re-split naively on detected delimiter")
		}
	}

	res.Headers = fillBlankHeaders(headers)
	res.Rows = buildRowMaps(res.Headers, records)
	return res
}

// FromRecords builds a ParseResult from rows that are already split into
// cells, as produced by spreadsheet sheets or warehouse queries. Blank rows
// and blank header cells get the same treatment as Parse; maxRows caps the
// number of data rows when > 0.
func FromRecords(headers []string, records [][]string, maxRows int) *ParseResult {
	if maxRows > 0 && len(records) > maxRows {
		records = records[:maxRows]
	}
	res := &ParseResult{Delimiter: ','}
	res.Headers = fillBlankHeaders(headers)
	res.Rows = buildRowMaps(res.Headers, records)
	return res
}

// detectDelimiter picks the most plausible delimiter. A delimiter seen at
// least twice in the header line wins outright; otherwise the highest total
// count over the first ~10 non-blank lines wins. Returns ambiguous=true when
// no candidate appears at all.
func detectDelimiter(text string) (rune, bool) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 10 {
			break
		}
	}
	if len(lines) == 0 {
		return ',', true
	}

	best, bestCount := ',', 0
	for _, d := range delimiters {
		if n := strings.Count(lines[0], string(d)); n >= 2 && n > bestCount {
			best, bestCount = d, n
		}
	}
	if bestCount > 0 {
		return best, false
	}

	for _, d := range delimiters {
		total := 0
		for _, line := range lines {
			total += strings.Count(line, string(d))
		}
		if total > bestCount {
			best, bestCount = d, total
		}
	}
	return best, bestCount == 0
}

// readRecords parses text with the stdlib CSV reader, which handles quoted
// fields, doubled quotes, and delimiters/newlines inside quotes.
func readRecords(text string, delim rune, maxRows int) (headers []string, records [][]string, warnings []string) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		if err != io.EOF {
			warnings = append(warnings, fmt.Sprintf("header parse: %v", err))
		}
		return nil, nil, warnings
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row skipped: %v", err))
			continue
		}
		if isBlankRecord(rec) {
			continue
		}
		records = append(records, rec)
		if maxRows > 0 && len(records) >= maxRows {
			break
		}
	}
	return headers, records, warnings
}

// splitEmbedded handles exports where each row collapsed into one cell that
// is itself consistently delimited. Requires every sampled row to split into
// the same column count >= 3.
func splitEmbedded(headers []string, records [][]string) ([]string, [][]string, rune, bool) {
	sample := records
	if len(sample) > 10 {
		sample = sample[:10]
	}
	for _, d := range delimiters {
		width := strings.Count(headers[0], string(d)) + 1
		if width < 3 {
			continue
		}
		consistent := true
		for _, rec := range sample {
			if len(rec) == 0 || strings.Count(rec[0], string(d))+1 != width {
				consistent = false
				break
			}
		}
		if !consistent {
			continue
		}
		newHeaders := strings.Split(headers[0], string(d))
		newRecords := make([][]string, 0, len(records))
		for _, rec := range records {
			if len(rec) == 0 {
				continue
			}
			newRecords = append(newRecords, strings.Split(rec[0], string(d)))
		}
		return newHeaders, newRecords, d, true
	}
	return nil, nil, 0, false
}

// naiveSplit splits on the raw delimiter without quote handling. Last resort
// for inputs whose quoting already defeated the CSV reader.
func naiveSplit(headerLine string, records [][]string, delim rune) ([]string, [][]string) {
	headers := strings.Split(headerLine, string(delim))
	out := make([][]string, 0, len(records))
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		out = append(out, strings.Split(rec[0], string(delim)))
	}
	return headers, out
}

func fillBlankHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		out[i] = h
	}
	return out
}

func buildRowMaps(headers []string, records [][]string) []map[string]string {
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		if isBlankRecord(rec) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, v := range rec {
			key := ""
			if i < len(headers) {
				key = headers[i]
			} else {
				key = fmt.Sprintf("Column %d", i+1)
			}
			row[key] = strings.TrimSpace(v)
		}
		// Columns the record was too short to reach stay present but empty,
		// so downstream null counting sees a rectangular table.
		for i := len(rec); i < len(headers); i++ {
			row[headers[i]] = ""
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
