package dspool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/rizrmd/claystudio/internal/model"
)

// clickHouseConnector caches one clickhouse.Conn per fingerprint — HTTP
// keep-alive on the underlying transport provides the real pooling, so
// the manager never opens a second client for the same datasource.
type clickHouseConnector struct {
	conn     driver.Conn
	database string
}

func newClickHouseConnector(cfg Config, opts Options) (*clickHouseConnector, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Protocol:    clickhouse.HTTP,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, model.Wrap(model.ErrConnectionFail, "open clickhouse", err)
	}
	return &clickHouseConnector{conn: conn, database: cfg.Database}, nil
}

// TestConnection validates the cached client with a short SELECT 1
// probe; Manager.Get runs it on every borrow and evicts and recreates
// the entry when it fails.
func (c *clickHouseConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.conn.Exec(ctx, "SELECT 1"); err != nil {
		return model.Wrap(model.ErrConnectionFail, "probe clickhouse", err)
	}
	return nil
}

func (c *clickHouseConnector) Close() error { return c.conn.Close() }

func (c *clickHouseConnector) ExecuteQuery(ctx context.Context, query string, limit int) (*QueryResult, error) {
	if limit <= 0 {
		limit = 1_000_000
	}
	q := strings.TrimSpace(query)
	if !strings.Contains(strings.ToUpper(q), "LIMIT") {
		q = fmt.Sprintf("%s LIMIT %d", strings.TrimSuffix(q, ";"), limit)
	}

	start := time.Now()
	rows, err := c.conn.Query(ctx, q)
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "execute clickhouse query", err)
	}
	defer rows.Close()

	types := rows.ColumnTypes()
	cols := make([]string, len(types))
	for i, t := range types {
		cols[i] = t.Name()
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		if len(result.Rows) >= limit {
			break
		}
		ptrs := make([]any, len(types))
		for i := range types {
			var holder any
			ptrs[i] = &holder
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan clickhouse row", err)
		}
		row := make([]any, len(cols))
		for i, p := range ptrs {
			row[i] = scalarize(derefAny(p))
		}
		result.Rows = append(result.Rows, row)
	}
	result.RowCount = len(result.Rows)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func derefAny(p any) any {
	if ptr, ok := p.(*any); ok {
		return *ptr
	}
	return p
}

func (c *clickHouseConnector) FetchSchema(ctx context.Context) (*Schema, error) {
	rows, err := c.conn.Query(ctx,
		`SELECT table, name, type, is_in_partition_key = 0 as nullable
		 FROM system.columns WHERE database = ?`, c.database)
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "fetch clickhouse schema", err)
	}
	defer rows.Close()

	tables := make(map[string][]TableColumn)
	for rows.Next() {
		var table, name, typ string
		var nullable bool
		if err := rows.Scan(&table, &name, &typ, &nullable); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan clickhouse schema row", err)
		}
		fq := c.database + "." + table
		tables[fq] = append(tables[fq], TableColumn{Name: name, Type: typ, Nullable: nullable})
	}
	return &Schema{Tables: tables}, nil
}

func (c *clickHouseConnector) ListTables(ctx context.Context) ([]string, error) {
	schema, err := c.FetchSchema(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for t := range schema.Tables {
		out = append(out, t)
	}
	return out, nil
}

func (c *clickHouseConnector) SearchTables(ctx context.Context, pattern string) ([]string, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return matchGlob(tables, pattern), nil
}

// GetRelatedTables has no foreign-key metadata in ClickHouse; results
// are name-pattern heuristics (shared prefix/suffix), always flagged.
func (c *clickHouseConnector) GetRelatedTables(ctx context.Context, table string) ([]RelatedTable, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(strings.TrimPrefix(table, c.database+"."), "")
	var out []RelatedTable
	for _, t := range tables {
		if t == table {
			continue
		}
		short := strings.TrimPrefix(t, c.database+".")
		if sharesPrefix(base, short) {
			out = append(out, RelatedTable{Table: t, Heuristic: true, Confidence: "name-pattern"})
		}
	}
	return out, nil
}

func sharesPrefix(a, b string) bool {
	n := min(len(a), len(b))
	if n < 3 {
		return false
	}
	return a[:3] == b[:3]
}

func (c *clickHouseConnector) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	row := c.conn.QueryRow(ctx,
		`SELECT count(), sum(bytes_on_disk) FROM system.parts WHERE database = ? AND active`, c.database)
	var tableCount int
	var totalBytes int64
	if err := row.Scan(&tableCount, &totalBytes); err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "fetch clickhouse stats", err)
	}
	return &DatabaseStats{TableCount: tableCount, TotalBytes: totalBytes}, nil
}
