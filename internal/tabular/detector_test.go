package tabular

import "testing"

func rowsFromColumn(name string, values []string) ([]string, []map[string]string) {
	headers := []string{name}
	rows := make([]map[string]string, len(values))
	for i, v := range values {
		rows[i] = map[string]string{name: v}
	}
	return headers, rows
}

func TestDetectColumnsTypes(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ColumnType
	}{
		{"currency", []string{"$1,200.50", "$45.00", "$3.99", "€12.00"}, TypeCurrency},
		{"percentage", []string{"45%", "1.2%", "100%", "0.5 %"}, TypePercentage},
		{"iso dates", []string{"2026-01-01", "2026-01-02", "2026-01-03"}, TypeDate},
		{"us dates", []string{"1/15/2026", "1/16/2026", "01/17/2026"}, TypeDate},
		{"numbers with separators", []string{"1,200", "45", "3.5", "12 000"}, TypeNumber},
		{"booleans", []string{"yes", "no", "Yes", "NO"}, TypeBoolean},
		{"ones and zeros are numbers first", []string{"1", "0", "1", "0"}, TypeNumber},
		{"text", []string{"Summer Sale", "Brand Push", "Retargeting"}, TypeText},
		{"mixed falls through to text", []string{"$5", "abc", "2026-01-01", "x", "y", "z"}, TypeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, rows := rowsFromColumn("col", tt.values)
			cols := DetectColumns(headers, rows)
			if len(cols) != 1 {
				t.Fatalf("expected 1 column, got %d", len(cols))
			}
			if cols[0].Type != tt.want {
				t.Errorf("type = %s, want %s (confidence %.2f)", cols[0].Type, tt.want, cols[0].Confidence)
			}
		})
	}
}

func TestDetectColumnsConfidence(t *testing.T) {
	// 3 of 4 values are currency: accepted at 0.75 confidence.
	headers, rows := rowsFromColumn("spend", []string{"$1.00", "$2.00", "$3.00", "n/a"})
	cols := DetectColumns(headers, rows)
	if cols[0].Type != TypeCurrency {
		t.Fatalf("type = %s", cols[0].Type)
	}
	if cols[0].Confidence < 0.74 || cols[0].Confidence > 0.76 {
		t.Errorf("confidence = %.3f, want 0.75", cols[0].Confidence)
	}
}

func TestDetectColumnsStats(t *testing.T) {
	headers, rows := rowsFromColumn("campaign", []string{"a", "", "a", "b", ""})
	cols := DetectColumns(headers, rows)
	c := cols[0]
	if c.NullCount != 2 {
		t.Errorf("null count = %d, want 2", c.NullCount)
	}
	if c.UniqueCount != 2 {
		t.Errorf("unique count = %d, want 2", c.UniqueCount)
	}
	if c.Type != TypeText {
		t.Errorf("type = %s", c.Type)
	}
}

func TestDetectColumnsEmpty(t *testing.T) {
	headers, rows := rowsFromColumn("empty", []string{"", "", ""})
	cols := DetectColumns(headers, rows)
	if cols[0].Type != TypeUnknown {
		t.Errorf("all-empty column should be unknown, got %s", cols[0].Type)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Amount Spent (USD)", "amount_spent_usd"},
		{"  Campaign Name ", "campaign_name"},
		{"CTR%", "ctr"},
		{"impressions", "impressions"},
		{"Ad Set ID", "ad_set_id"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
