package tabular

import (
	"strings"
	"testing"
)

func TestParseDelimiterDetection(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{"comma header", "campaign,impressions,clicks\na,1,2\n", ','},
		{"semicolons no commas", "campaign;impressions;clicks\na;1;2\n", ';'},
		{"tab separated", "campaign\timpressions\tclicks\na\t1\t2\n", '\t'},
		{"pipe separated", "campaign|impressions|clicks\na|1|2\n", '|'},
		{"semicolon beats single comma", "name;spend;notes, extra\nx;1;hello\n", ';'},
		{"body vote when header has no repeats", "name\na,b\nc,d\ne,f\n", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text, 0)
			if got.Delimiter != tt.want {
				t.Errorf("Parse(%q) delimiter = %q, want %q", tt.text, got.Delimiter, tt.want)
			}
		})
	}
}

func TestParseQuoting(t *testing.T) {
	text := "campaign,spend,note\n\"Acme, Inc\",100,\"said \"\"hi\"\"\"\n\"multi\nline\",5,x\n"
	res := Parse(text, 0)

	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if got := res.Rows[0]["campaign"]; got != "Acme, Inc" {
		t.Errorf("quoted delimiter: got %q", got)
	}
	if got := res.Rows[0]["note"]; got != `said "hi"` {
		t.Errorf("escaped quotes: got %q", got)
	}
	if got := res.Rows[1]["campaign"]; got != "multi\nline" {
		t.Errorf("newline in quotes: got %q", got)
	}
}

func TestParseHygiene(t *testing.T) {
	text := "\ufeffcampaign,,clicks\r\nacme,x,1\r\n\r\n   ,  ,\nbeta,y,2\r\n"
	res := Parse(text, 0)

	want := []string{"campaign", "Column 2", "clicks"}
	if len(res.Headers) != 3 {
		t.Fatalf("headers = %v", res.Headers)
	}
	for i, h := range want {
		if res.Headers[i] != h {
			t.Errorf("header[%d] = %q, want %q", i, res.Headers[i], h)
		}
	}
	if len(res.Rows) != 2 {
		t.Errorf("blank rows should be dropped, got %d rows", len(res.Rows))
	}
}

func TestParseEmbeddedSingleColumn(t *testing.T) {
	// Export wrapped by a second tool: each line is one quoted cell whose
	// contents are themselves delimited.
	text := "\"campaign;impressions;spend\"\n\"acme;1200;45.50\"\n\"beta;800;12.00\"\n"
	res := Parse(text, 0)

	if len(res.Headers) != 3 {
		t.Fatalf("expected 3 headers after re-split, got %v", res.Headers)
	}
	if res.Headers[0] != "campaign" || res.Headers[2] != "spend" {
		t.Errorf("headers = %v", res.Headers)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if got := res.Rows[1]["impressions"]; got != "800" {
		t.Errorf("rows[1][impressions] = %q", got)
	}
	if len(res.Warnings) == 0 {
		t.Error("re-split should be reported as a warning")
	}
}

func TestParseMaxRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("campaign,clicks\n")
	for i := 0; i < 50; i++ {
		b.WriteString("acme,1\n")
	}
	res := Parse(b.String(), 10)
	if len(res.Rows) != 10 {
		t.Errorf("maxRows cap: got %d rows, want 10", len(res.Rows))
	}
}

func TestParseEmptyInput(t *testing.T) {
	res := Parse("   \n\n", 0)
	if len(res.Headers) != 0 || len(res.Rows) != 0 {
		t.Errorf("empty input should yield empty table, got %v / %v", res.Headers, res.Rows)
	}
}

func TestParseShortRecordsStayRectangular(t *testing.T) {
	res := Parse("a,b,c\n1,2\n", 0)
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d", len(res.Rows))
	}
	if v, ok := res.Rows[0]["c"]; !ok || v != "" {
		t.Errorf("missing trailing cell should be empty string, got %q (present=%v)", v, ok)
	}
}
