package dspool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/rizrmd/claystudio/internal/model"
)

// sqlConnector backs Postgres, MySQL and SQLite: dialects with a genuine
// database/sql connection pool. Queries run directly against the pool;
// borrowed connections return to it when the row iterator closes.
type sqlConnector struct {
	driver string
	db     *sql.DB
}

func newSQLConnector(driver string, cfg Config, opts Options) (*sqlConnector, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildDSN(driver, cfg)
	}
	db, err := sql.Open(driverName(driver), dsn)
	if err != nil {
		return nil, model.Wrap(model.ErrConnectionFail, "open "+driver, err)
	}
	if opts.MaxOpenConnsPerPool > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConnsPerPool)
	}
	if opts.MaxIdleConnsPerPool > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConnsPerPool)
	}
	if opts.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(opts.IdleTimeout)
	}
	return &sqlConnector{driver: driver, db: db}, nil
}

// driverName maps our dialect label to the database/sql driver name
// registered by the imported driver package's init().
func driverName(driver string) string {
	if driver == "pgx" {
		return "pgx"
	}
	return driver
}

func buildDSN(driver string, cfg Config) string {
	switch driver {
	case "pgx":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	case "sqlite":
		return cfg.Database
	default:
		return ""
	}
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.db.PingContext(ctx); err != nil {
		return model.Wrap(model.ErrConnectionFail, "ping", err)
	}
	return nil
}

func (c *sqlConnector) Close() error { return c.db.Close() }

func (c *sqlConnector) ExecuteQuery(ctx context.Context, query string, limit int) (*QueryResult, error) {
	q := strings.TrimSpace(query)
	if limit <= 0 {
		limit = 1_000_000
	}
	if c.driver != "sqlite" && !strings.Contains(strings.ToUpper(q), "LIMIT") {
		q = fmt.Sprintf("%s LIMIT %d", strings.TrimSuffix(q, ";"), limit)
	}

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "execute query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "read columns", err)
	}

	result := &QueryResult{Columns: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if len(result.Rows) >= limit {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan row", err)
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

// scalarize converts a database/sql driver value into a JSON-friendly
// scalar: []byte becomes string (or a "[BLOB]" marker for non-UTF8 data).
func scalarize(v any) any {
	switch t := v.(type) {
	case []byte:
		if isPrintableUTF8(t) {
			return string(t)
		}
		return "[BLOB]"
	case nil:
		return nil
	default:
		return t
	}
}

func isPrintableUTF8(b []byte) bool {
	for _, r := range string(b) {
		if r == 0xFFFD {
			return false
		}
	}
	return true
}

var systemSchemas = map[string]bool{
	"pg_catalog":          true,
	"information_schema":  true,
	"sys":                 true,
	"performance_schema":  true,
	"mysql":               true,
}

func (c *sqlConnector) FetchSchema(ctx context.Context) (*Schema, error) {
	query := schemaQuery(c.driver)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "fetch schema", err)
	}
	defer rows.Close()

	tables := make(map[string][]TableColumn)
	for rows.Next() {
		var schemaName, tableName, columnName, dataType string
		var nullable string
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType, &nullable); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan schema row", err)
		}
		if systemSchemas[strings.ToLower(schemaName)] {
			continue
		}
		fq := tableName
		if schemaName != "" && schemaName != "main" {
			fq = schemaName + "." + tableName
		}
		tables[fq] = append(tables[fq], TableColumn{
			Name: columnName, Type: dataType,
			Nullable: strings.EqualFold(nullable, "YES") || strings.EqualFold(nullable, "true"),
		})
	}
	return &Schema{Tables: tables}, nil
}

func schemaQuery(driver string) string {
	switch driver {
	case "pgx":
		return `SELECT table_schema, table_name, column_name, data_type, is_nullable
				FROM information_schema.columns
				WHERE table_schema NOT IN ('pg_catalog','information_schema')
				ORDER BY table_schema, table_name, ordinal_position`
	case "mysql":
		return `SELECT table_schema, table_name, column_name, data_type, is_nullable
				FROM information_schema.columns
				WHERE table_schema = DATABASE()
				ORDER BY table_name, ordinal_position`
	default: // sqlite: sqlite_master joined to pragma_table_info
		return `SELECT 'main' as table_schema, m.name as table_name, p.name as column_name,
				p."type" as data_type, CASE WHEN p."notnull" = 0 THEN 'YES' ELSE 'NO' END as is_nullable
				FROM sqlite_master m JOIN pragma_table_info(m.name) p
				WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'`
	}
}

func (c *sqlConnector) ListTables(ctx context.Context) ([]string, error) {
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

func (c *sqlConnector) SearchTables(ctx context.Context, pattern string) ([]string, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return matchGlob(tables, pattern), nil
}

func (c *sqlConnector) GetRelatedTables(ctx context.Context, table string) ([]RelatedTable, error) {
	query := fkQuery(c.driver)
	if query == "" {
		return nil, unsupported(model.DatasourceSQLite, "get_related_tables")
	}
	rows, err := c.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "fetch related tables", err)
	}
	defer rows.Close()

	var out []RelatedTable
	for rows.Next() {
		var relTable, viaColumn string
		if err := rows.Scan(&relTable, &viaColumn); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan related table", err)
		}
		out = append(out, RelatedTable{Table: relTable, ViaColumn: viaColumn})
	}
	return out, nil
}

func fkQuery(driver string) string {
	switch driver {
	case "pgx":
		return `SELECT ccu.table_name, kcu.column_name
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
				JOIN information_schema.constraint_column_usage ccu ON tc.constraint_name = ccu.constraint_name
				WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1`
	case "mysql":
		return `SELECT referenced_table_name, column_name
				FROM information_schema.key_column_usage
				WHERE table_schema = DATABASE() AND table_name = ? AND referenced_table_name IS NOT NULL`
	default:
		return ""
	}
}

func (c *sqlConnector) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return &DatabaseStats{TableCount: len(tables)}, nil
}

func matchGlob(candidates []string, pattern string) []string {
	p := strings.ToLower(strings.ReplaceAll(pattern, "%", "*"))
	var out []string
	for _, c := range candidates {
		if globMatch(p, strings.ToLower(c)) {
			out = append(out, c)
		}
	}
	return out
}

// globMatch supports a single '*' wildcard, the common case for
// table-name search patterns.
func globMatch(pattern, s string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == s
	}
	parts := strings.SplitN(pattern, "*", 2)
	return strings.HasPrefix(s, parts[0]) && strings.HasSuffix(s, parts[1])
}
