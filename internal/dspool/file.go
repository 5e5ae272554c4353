package dspool

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
	"github.com/xuri/excelize/v2"

	"github.com/rizrmd/claystudio/internal/model"
)

// fileConnector substitutes an embedded analytical engine (no DuckDB Go
// binding exists in the reference corpus) with modernc.org/sqlite opened
// :memory: per call. The backing file is loaded into a temp table named
// after the logical table ("data"), and only SELECT/WITH is accepted
// against it.
type fileConnector struct {
	dsType   model.DatasourceType
	path     string
	tableKey string
}

func newFileConnector(dsType model.DatasourceType, cfg Config) (*fileConnector, error) {
	path := cfg.DSN
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return nil, model.NewError(model.ErrBadRequest, "file datasource missing path")
	}
	return &fileConnector{dsType: dsType, path: path, tableKey: "data"}, nil
}

func (c *fileConnector) TestConnection(ctx context.Context) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}

func (c *fileConnector) Close() error { return nil }

func (c *fileConnector) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, model.Wrap(model.ErrConnectionFail, "open in-memory engine", err)
	}
	if err := c.load(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// load materializes the backing file into the "data" table, standing in
// for DuckDB's read_csv_auto/read_excel/read_json against the file path.
func (c *fileConnector) load(ctx context.Context, db *sql.DB) error {
	switch c.dsType {
	case model.DatasourceCSV:
		return c.loadCSV(ctx, db)
	case model.DatasourceJSON:
		return c.loadJSON(ctx, db)
	case model.DatasourceExcel:
		return c.loadExcel(ctx, db)
	default:
		return unsupported(c.dsType, "load")
	}
}

func (c *fileConnector) loadCSV(ctx context.Context, db *sql.DB) error {
	f, err := os.Open(c.path)
	if err != nil {
		return model.Wrap(model.ErrConnectionFail, "open csv file", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return model.Wrap(model.ErrQueryFailed, "read csv header", err)
	}
	if err := createTable(db, c.tableKey, header); err != nil {
		return err
	}
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		if err := insertRow(db, c.tableKey, header, toAnySlice(record)); err != nil {
			return err
		}
	}
	return nil
}

func (c *fileConnector) loadJSON(ctx context.Context, db *sql.DB) error {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return model.Wrap(model.ErrConnectionFail, "open json file", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(b, &records); err != nil {
		return model.Wrap(model.ErrQueryFailed, "parse json array", err)
	}
	if len(records) == 0 {
		return createTable(db, c.tableKey, nil)
	}
	header := make([]string, 0, len(records[0]))
	for k := range records[0] {
		header = append(header, k)
	}
	if err := createTable(db, c.tableKey, header); err != nil {
		return err
	}
	for _, rec := range records {
		vals := make([]any, len(header))
		for i, h := range header {
			vals[i] = fmt.Sprint(rec[h])
		}
		if err := insertRow(db, c.tableKey, header, vals); err != nil {
			return err
		}
	}
	return nil
}

func (c *fileConnector) loadExcel(ctx context.Context, db *sql.DB) error {
	wb, err := excelize.OpenFile(c.path)
	if err != nil {
		return model.Wrap(model.ErrConnectionFail, "open excel file", err)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	rowsData, err := wb.GetRows(sheet)
	if err != nil || len(rowsData) == 0 {
		return model.Wrap(model.ErrQueryFailed, "read excel sheet", err)
	}
	header := rowsData[0]
	if err := createTable(db, c.tableKey, header); err != nil {
		return err
	}
	for _, row := range rowsData[1:] {
		if err := insertRow(db, c.tableKey, header, toAnySlice(row)); err != nil {
			return err
		}
	}
	return nil
}

func createTable(db *sql.DB, table string, header []string) error {
	if len(header) == 0 {
		header = []string{"value"}
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = fmt.Sprintf(`"%s" TEXT`, sanitizeIdent(h))
	}
	_, err := db.Exec(fmt.Sprintf(`CREATE TABLE "%s" (%s)`, table, strings.Join(cols, ", ")))
	if err != nil {
		return model.Wrap(model.ErrInternal, "create temp table", err)
	}
	return nil
}

func insertRow(db *sql.DB, table string, header []string, vals []any) error {
	placeholders := make([]string, len(header))
	for i := range header {
		placeholders[i] = "?"
	}
	for len(vals) < len(header) {
		vals = append(vals, nil)
	}
	_, err := db.Exec(fmt.Sprintf(`INSERT INTO "%s" VALUES (%s)`, table, strings.Join(placeholders, ", ")), vals...)
	if err != nil {
		return model.Wrap(model.ErrInternal, "insert row", err)
	}
	return nil
}

func sanitizeIdent(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func (c *fileConnector) ExecuteQuery(ctx context.Context, query string, limit int) (*QueryResult, error) {
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, model.NewError(model.ErrBadRequest, "file datasource queries must be SELECT or WITH")
	}
	q = strings.ReplaceAll(q, "FROM "+string(c.dsType), "FROM "+c.tableKey)

	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	conn := &sqlConnector{driver: "sqlite", db: db}
	return conn.ExecuteQuery(ctx, q, limit)
}

func (c *fileConnector) FetchSchema(ctx context.Context) (*Schema, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf(`SELECT name, type FROM pragma_table_info('%s')`, c.tableKey))
	if err != nil {
		return nil, model.Wrap(model.ErrQueryFailed, "fetch file schema", err)
	}
	defer rows.Close()

	var cols []TableColumn
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, model.Wrap(model.ErrQueryFailed, "scan file schema row", err)
		}
		cols = append(cols, TableColumn{Name: name, Type: typ, Nullable: true})
	}
	return &Schema{Tables: map[string][]TableColumn{c.tableKey: cols}}, nil
}

func (c *fileConnector) ListTables(ctx context.Context) ([]string, error) {
	return []string{c.tableKey}, nil
}

func (c *fileConnector) SearchTables(ctx context.Context, pattern string) ([]string, error) {
	return matchGlob([]string{c.tableKey}, pattern), nil
}

func (c *fileConnector) GetRelatedTables(ctx context.Context, table string) ([]RelatedTable, error) {
	return nil, nil
}

func (c *fileConnector) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	return &DatabaseStats{TableCount: 1}, nil
}
