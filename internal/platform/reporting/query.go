// Package reporting serves the dashboard, the predefined reports, CSV
// exports and the CSV backup. Every statement is static SQL run through a
// Querier, so reports never build SQL from request input.
package reporting

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/pkg/wallclock"
)

// Table is a query result kept in column order.
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// Maps converts rows to column-keyed maps for JSON output.
func (t *Table) Maps() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]interface{}, len(t.Columns))
		for i, col := range t.Columns {
			m[col] = row[i]
		}
		out = append(out, m)
	}
	return out
}

// Querier runs a read-only statement.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (*Table, error)
}

type pgQuerier struct {
	pool *pgxpool.Pool
}

func NewQuerier(pool *pgxpool.Pool) Querier {
	return &pgQuerier{pool: pool}
}

func (q *pgQuerier) Query(ctx context.Context, sql string, args ...interface{}) (*Table, error) {
	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Storage("run report query", err)
	}
	defer rows.Close()

	t := &Table{}
	for _, fd := range rows.FieldDescriptions() {
		t.Columns = append(t.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, apperr.Storage("scan report row", err)
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("run report query", err)
	}
	return t, nil
}

// scalar returns the first cell, or nil for an empty result.
func (t *Table) scalar() interface{} {
	if len(t.Rows) == 0 || len(t.Rows[0]) == 0 {
		return nil
	}
	return t.Rows[0][0]
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func asDecimal(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case nil:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(fmt.Sprint(v))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// formatCell renders one value for CSV output. Dates without a clock part
// print as YYYY-MM-DD.
func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case decimal.Decimal:
		return x.StringFixed(2)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format(wallclock.DateLayout)
		}
		return x.Format(wallclock.DateTimeLayout)
	}
	return fmt.Sprint(v)
}
