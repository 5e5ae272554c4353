package dspool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/rizrmd/claystudio/internal/model"
)

// sqlServerConnector opens a fresh TCP+TDS session per call: the
// go-mssqldb client does not support safe multiplexing across
// goroutines the way a pgx/mysql pool does, so DPM never hands out a
// persistent handle for this dialect.
type sqlServerConnector struct {
	dsn string
}

func newSQLServerConnector(cfg Config) (*sqlServerConnector, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	}
	return &sqlServerConnector{dsn: dsn}, nil
}

func (c *sqlServerConnector) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", c.dsn)
	if err != nil {
		return nil, model.Wrap(model.ErrConnectionFail, "open sqlserver session", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, model.Wrap(model.ErrConnectionFail, "ping sqlserver", err)
	}
	return db, nil
}

func (c *sqlServerConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}

// Close is a no-op: there is no persistent session to release.
func (c *sqlServerConnector) Close() error { return nil }

func (c *sqlServerConnector) ExecuteQuery(ctx context.Context, query string, limit int) (*QueryResult, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if limit <= 0 {
		limit = 1_000_000
	}
	q := strings.TrimSpace(query)
	if !strings.Contains(strings.ToUpper(q), "TOP") && !strings.Contains(strings.ToUpper(q), "LIMIT") {
		q = fmt.Sprintf("SELECT TOP %d * FROM (%s) t", limit, strings.TrimSuffix(q, ";"))
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "execute sqlserver query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "read sqlserver columns", err)
	}
	result := &QueryResult{Columns: cols}
	for rows.Next() {
		if len(result.Rows) >= limit {
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan sqlserver row", err)
		}
		row := make([]any, len(cols))
		for i, v := range vals {
			row[i] = scalarize(v)
		}
		result.Rows = append(result.Rows, row)
	}
	result.RowCount = len(result.Rows)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func (c *sqlServerConnector) FetchSchema(ctx context.Context) (*Schema, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT table_schema, table_name, column_name, data_type, is_nullable
		 FROM information_schema.columns
		 WHERE table_schema NOT IN ('sys','INFORMATION_SCHEMA')
		 ORDER BY table_schema, table_name, ordinal_position`)
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "fetch sqlserver schema", err)
	}
	defer rows.Close()

	tables := make(map[string][]TableColumn)
	for rows.Next() {
		var schemaName, tableName, columnName, dataType, nullable string
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType, &nullable); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan sqlserver schema row", err)
		}
		fq := schemaName + "." + tableName
		tables[fq] = append(tables[fq], TableColumn{Name: columnName, Type: dataType, Nullable: strings.EqualFold(nullable, "YES")})
	}
	return &Schema{Tables: tables}, nil
}

func (c *sqlServerConnector) ListTables(ctx context.Context) ([]string, error) {
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

func (c *sqlServerConnector) SearchTables(ctx context.Context, pattern string) ([]string, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return matchGlob(tables, pattern), nil
}

func (c *sqlServerConnector) GetRelatedTables(ctx context.Context, table string) ([]RelatedTable, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	parts := strings.SplitN(table, ".", 2)
	tableName := parts[len(parts)-1]

	rows, err := db.QueryContext(ctx,
		`SELECT OBJECT_NAME(fk.referenced_object_id), COL_NAME(fkc.parent_object_id, fkc.parent_column_id)
		 FROM sys.foreign_keys fk
		 JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		 WHERE OBJECT_NAME(fk.parent_object_id) = @p1`, tableName)
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "fetch sqlserver related tables", err)
	}
	defer rows.Close()

	var out []RelatedTable
	for rows.Next() {
		var relTable, viaColumn string
		if err := rows.Scan(&relTable, &viaColumn); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan sqlserver related table", err)
		}
		out = append(out, RelatedTable{Table: relTable, ViaColumn: viaColumn})
	}
	return out, nil
}

func (c *sqlServerConnector) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return &DatabaseStats{TableCount: len(tables)}, nil
}
