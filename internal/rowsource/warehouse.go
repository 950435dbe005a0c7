package rowsource

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/adpulse/metrics-engine/internal/config"
	"github.com/adpulse/metrics-engine/internal/tabular"
)

// OpenWarehouse opens a Snowflake connection for warehouse-landed exports.
// DSN format: user:password@account/database/schema?warehouse=xxx
func OpenWarehouse(cfg config.SnowflakeConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// WarehouseSource reads an export that an ELT job landed in a Snowflake
// table or view. Values come back typed and are stringified so the
// pipeline sees the same shape it gets from a CSV.
type WarehouseSource struct {
	DB      *sql.DB
	Table   string
	MaxRows int
}

func (s *WarehouseSource) Tag() string { return "warehouse:" + s.Table }

func (s *WarehouseSource) Fetch(ctx context.Context) (*tabular.ParseResult, error) {
	if !identPattern.MatchString(s.Table) {
		return nil, fmt.Errorf("invalid warehouse table name %q", s.Table)
	}

	q := "SELECT * FROM " + s.Table
	if s.MaxRows > 0 {
		q += fmt.Sprintf(" LIMIT %d", s.MaxRows)
	}

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var records [][]string
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = stringifyCell(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return tabular.FromRecords(cols, records, s.MaxRows), nil
}

func stringifyCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		// DATE columns keep the plain day form the date parser expects.
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", t)
	}
}
