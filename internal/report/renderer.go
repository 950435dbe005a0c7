package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// Renderer turns report documents into operator-facing text. Templates
// are Liquid with a few domain filters and are cached after first parse.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewRenderer creates a renderer with the domain filters registered.
func NewRenderer() *Renderer {
	r := &Renderer{engine: liquid.NewEngine()}
	r.registerFilters()
	return r
}

func (r *Renderer) registerFilters() {
	// Percentage from a 0..1 fraction: {{ confidence | pct }}
	r.engine.RegisterFilter("pct", func(value interface{}) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("%.1f%%", f*100)
	})

	// Currency formatting: {{ spend | money }}
	r.engine.RegisterFilter("money", func(value interface{}) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("$%.2f", f)
	})

	// Thousand separators: {{ rows_in | count }}
	r.engine.RegisterFilter("count", func(value interface{}) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		n := int64(f)

		str := fmt.Sprintf("%d", n)
		if n < 0 {
			str = str[1:]
		}
		var result strings.Builder
		for i, c := range str {
			if i > 0 && (len(str)-i)%3 == 0 {
				result.WriteRune(',')
			}
			result.WriteRune(c)
		}
		if n < 0 {
			return "-" + result.String()
		}
		return result.String()
	})
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Render processes a template with the given bindings, caching the parsed
// template under cacheKey when one is provided.
func (r *Renderer) Render(cacheKey, templateStr string, ctx map[string]interface{}) (string, error) {
	if cacheKey != "" {
		if cached, ok := r.cache.Load(cacheKey); ok {
			tpl := cached.(*liquid.Template)
			return tpl.RenderString(ctx)
		}
	}

	tpl, err := r.engine.ParseString(templateStr)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	if cacheKey != "" {
		r.cache.Store(cacheKey, tpl)
	}

	out, err := tpl.RenderString(ctx)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

const summaryTemplate = `Import {{ batch_id }} ({{ source_tag }})
Platform: {{ platform }}   Status: {{ status }}
Rows: {{ rows_in | count }} in / {{ rows_accepted | count }} accepted / {{ rows_rejected | count }} rejected / {{ rows_merged | count }} merged
{% if mean_mapping_confidence > 0 %}Mapping confidence: {{ mean_mapping_confidence | pct }}
{% endif %}{% if schema %}Dataset: {{ schema.row_count | count }} rows x {{ schema.column_count }} columns, completeness {{ schema.completeness | pct }}
{% endif %}{% if mappings %}Mapped columns:
{% for m in mappings %}  {{ m.source_column_name }} -> {{ m.target_field_id }} ({{ m.confidence | pct }}, {{ m.match_type }})
{% endfor %}{% endif %}{% if row_errors %}Row problems:
{% for e in row_errors %}  row {{ e.row }}: {{ e.message }}
{% endfor %}{% endif %}{% if warnings %}Warnings:
{% for w in warnings %}  {{ w }}
{% endfor %}{% endif %}{% if fail_reason %}FAILED: {{ fail_reason }}
{% endif %}`

// Summary renders the standard text summary of a report.
func (r *Renderer) Summary(rep *ImportReport) (string, error) {
	ctx, err := bindings(rep)
	if err != nil {
		return "", err
	}
	return r.Render("import_summary", summaryTemplate, ctx)
}

// bindings flattens the report into Liquid bindings through its JSON
// form, so templates address fields by their wire names.
func bindings(rep *ImportReport) (map[string]interface{}, error) {
	data, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var ctx map[string]interface{}
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return ctx, nil
}
